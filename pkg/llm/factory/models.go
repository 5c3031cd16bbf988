// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package factory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Provider           string   `json:"provider"`
	Capabilities       []string `json:"capabilities"`
	ContextWindow      int      `json:"context_window"`
	CostPer1MInputUSD  float64  `json:"cost_per_1m_input_usd"`
	CostPer1MOutputUSD float64  `json:"cost_per_1m_output_usd"`
	Available          bool     `json:"available"`
}

// ModelRegistry holds information about all supported models across providers.
type ModelRegistry struct {
	models map[string][]ModelInfo
}

// NewModelRegistry creates a new model registry with all supported models.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: map[string][]ModelInfo{
			"anthropic": {
				{
					ID:                 "claude-sonnet-4-5-20250929",
					Name:               "Claude Sonnet 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "claude-haiku-4-5-20251001",
					Name:               "Claude Haiku 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  0.8,
					CostPer1MOutputUSD: 4.0,
				},
				{
					ID:                 "claude-opus-4-5-20251101",
					Name:               "Claude Opus 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  15.0,
					CostPer1MOutputUSD: 75.0,
				},
			},
			"bedrock": {
				{
					ID:                 "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
					Name:               "Claude Sonnet 4.5 (Bedrock)",
					Provider:           "bedrock",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "us.anthropic.claude-opus-4-5-20251101-v1:0",
					Name:               "Claude Opus 4.5 (Bedrock)",
					Provider:           "bedrock",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  15.0,
					CostPer1MOutputUSD: 75.0,
				},
				{
					ID:                 "us.anthropic.claude-haiku-4-5-20251001-v1:0",
					Name:               "Claude Haiku 4.5 (Bedrock)",
					Provider:           "bedrock",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  0.8,
					CostPer1MOutputUSD: 4.0,
				},
			},
			"gemini": {
				{
					ID:                 "gemini-2.5-flash",
					Name:               "Gemini 2.5 Flash",
					Provider:           "gemini",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      1000000,
					CostPer1MInputUSD:  0.30,
					CostPer1MOutputUSD: 2.50,
				},
				{
					ID:                 "gemini-2.5-pro",
					Name:               "Gemini 2.5 Pro",
					Provider:           "gemini",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      1000000,
					CostPer1MInputUSD:  1.25,
					CostPer1MOutputUSD: 10.0,
				},
				{
					ID:                 "gemini-2.5-flash-lite",
					Name:               "Gemini 2.5 Flash-Lite",
					Provider:           "gemini",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      1000000,
					CostPer1MInputUSD:  0.30,
					CostPer1MOutputUSD: 2.50,
				},
			},
			"ollama": {
				{
					ID:                 "llama3.1",
					Name:               "Llama 3.1 (Ollama)",
					Provider:           "ollama",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  0.0,
					CostPer1MOutputUSD: 0.0,
				},
				{
					ID:                 "llama3.2",
					Name:               "Llama 3.2 (Ollama)",
					Provider:           "ollama",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  0.0,
					CostPer1MOutputUSD: 0.0,
				},
				{
					ID:                 "qwen2.5",
					Name:               "Qwen 2.5 (Ollama)",
					Provider:           "ollama",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  0.0,
					CostPer1MOutputUSD: 0.0,
				},
			},
		},
	}
}

// GetModelsForProvider returns all models for a specific provider.
func (r *ModelRegistry) GetModelsForProvider(provider string) []ModelInfo {
	models := r.models[provider]
	if models == nil {
		return nil
	}

	// Return copies to prevent modification
	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}

// GetAllModels returns all models from all providers.
func (r *ModelRegistry) GetAllModels() []ModelInfo {
	var all []ModelInfo
	for _, models := range r.models {
		all = append(all, models...)
	}
	return all
}

// GetAvailableModels returns every known model, marking whether its
// provider is currently configured with working credentials.
func (r *ModelRegistry) GetAvailableModels(factory *ProviderFactory) []ModelInfo {
	var result []ModelInfo

	for provider, models := range r.models {
		available := factory.IsProviderAvailable(provider)
		for _, m := range models {
			m.Available = available
			result = append(result, m)
		}
	}

	return result
}

// DiscoverOllamaModels replaces the static Ollama entries with the models
// actually installed on the local server. The static defaults survive when
// the server is unreachable or reports nothing.
func (r *ModelRegistry) DiscoverOllamaModels(endpoint string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(strings.TrimRight(endpoint, "/") + "/api/tags")
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama tags request failed: status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode ollama tags: %w", err)
	}

	if len(tags.Models) == 0 {
		return nil
	}

	discovered := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		discovered = append(discovered, ModelInfo{
			ID:            m.Name,
			Name:          formatOllamaDisplayName(m.Name),
			Provider:      "ollama",
			Capabilities:  []string{"text", "tool-use"},
			ContextWindow: 128000,
			Available:     true,
		})
	}
	r.models["ollama"] = discovered

	return nil
}

type ollamaTagsResponse struct {
	Models []ollamaModelEntry `json:"models"`
}

type ollamaModelEntry struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size"`
}

// formatOllamaDisplayName turns an Ollama model ID like "qwen3-coder:30b"
// into a human-readable name like "Qwen3 coder 30B (Ollama)".
func formatOllamaDisplayName(id string) string {
	base, tag := id, ""
	if i := strings.IndexByte(id, ':'); i >= 0 {
		base, tag = id[:i], id[i+1:]
	}

	name := strings.ReplaceAll(base, "-", " ")
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	if tag != "" && tag != "latest" {
		name += " " + strings.ToUpper(tag)
	}
	return name + " (Ollama)"
}
