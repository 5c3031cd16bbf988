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

// Package factory creates LLM providers from configuration. It resolves
// credentials from config values with environment fallbacks, applies
// per-provider model defaults, and optionally wraps every provider with
// tracing instrumentation.
package factory

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/llm/anthropic"
	"github.com/teradata-labs/wayfarer/pkg/llm/bedrock"
	"github.com/teradata-labs/wayfarer/pkg/llm/gemini"
	"github.com/teradata-labs/wayfarer/pkg/llm/ollama"
	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// ProviderFactory creates LLM providers dynamically based on configuration.
type ProviderFactory struct {
	config FactoryConfig
}

// FactoryConfig holds configuration for creating LLM providers.
type FactoryConfig struct {
	// Default provider to use
	DefaultProvider string
	DefaultModel    string

	// Anthropic configuration
	AnthropicAPIKey string
	AnthropicModel  string

	// Bedrock configuration
	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string
	BedrockModelID         string

	// Gemini configuration
	GeminiAPIKey string
	GeminiModel  string

	// Ollama configuration
	OllamaEndpoint string
	OllamaModel    string
	OllamaToolMode string

	// Common settings
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds

	// RateLimiter is passed through to every provider; each merges it
	// with its own defaults when Enabled is set.
	RateLimiter llm.RateLimiterConfig

	// Tracer, when set, wraps every created provider with span and
	// metric instrumentation.
	Tracer observability.Tracer

	// Logger receives provider diagnostics (tool-argument parse
	// failures, throttling events).
	Logger *zap.Logger
}

// SupportedProviders returns the provider names CreateProvider accepts.
func SupportedProviders() []string {
	return []string{"anthropic", "bedrock", "gemini", "ollama"}
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(config FactoryConfig) *ProviderFactory {
	// Set defaults
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Temperature == 0 {
		config.Temperature = 1.0
	}
	if config.Timeout == 0 {
		config.Timeout = 60
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.RateLimiter.Logger == nil {
		config.RateLimiter.Logger = config.Logger
	}

	return &ProviderFactory{
		config: config,
	}
}

// CreateProvider creates an LLM provider for the specified provider type
// and model. Empty arguments fall back to the configured defaults.
func (f *ProviderFactory) CreateProvider(ctx context.Context, provider, model string) (types.LLMProvider, error) {
	if provider == "" {
		provider = f.config.DefaultProvider
	}
	if model == "" {
		model = f.config.DefaultModel
	}

	var (
		p   types.LLMProvider
		err error
	)
	switch provider {
	case "anthropic":
		p, err = f.createAnthropicProvider(model)
	case "bedrock":
		p, err = f.createBedrockProvider(ctx, model)
	case "gemini", "google":
		p, err = f.createGeminiProvider(ctx, model)
	case "ollama":
		p, err = f.createOllamaProvider(model)
	default:
		return nil, fmt.Errorf("unsupported provider %q (supported: %v)", provider, SupportedProviders())
	}
	if err != nil {
		return nil, err
	}

	if f.config.Tracer != nil {
		p = llm.NewInstrumentedProvider(p, f.config.Tracer)
	}
	return p, nil
}

func (f *ProviderFactory) createAnthropicProvider(model string) (types.LLMProvider, error) {
	apiKey := f.config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}

	if model == "" {
		model = f.config.AnthropicModel
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:            apiKey,
		Model:             model,
		MaxTokens:         f.config.MaxTokens,
		Temperature:       f.config.Temperature,
		Timeout:           time.Duration(f.config.Timeout) * time.Second,
		RateLimiterConfig: f.config.RateLimiter,
	}), nil
}

func (f *ProviderFactory) createBedrockProvider(ctx context.Context, model string) (types.LLMProvider, error) {
	if model == "" {
		model = f.config.BedrockModelID
	}

	region := f.config.BedrockRegion
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return bedrock.NewClient(ctx, bedrock.Config{
		Region:            region,
		AccessKeyID:       f.config.BedrockAccessKeyID,
		SecretAccessKey:   f.config.BedrockSecretAccessKey,
		SessionToken:      f.config.BedrockSessionToken,
		Profile:           f.config.BedrockProfile,
		ModelID:           model,
		MaxTokens:         f.config.MaxTokens,
		Temperature:       f.config.Temperature,
		RateLimiterConfig: f.config.RateLimiter,
	})
}

func (f *ProviderFactory) createGeminiProvider(ctx context.Context, model string) (types.LLMProvider, error) {
	if model == "" {
		model = f.config.GeminiModel
	}

	// The gemini constructor handles GEMINI_API_KEY / GOOGLE_API_KEY
	// fallback itself.
	return gemini.NewClient(ctx, gemini.Config{
		APIKey:            f.config.GeminiAPIKey,
		Model:             model,
		MaxTokens:         f.config.MaxTokens,
		Temperature:       f.config.Temperature,
		RateLimiterConfig: f.config.RateLimiter,
	})
}

func (f *ProviderFactory) createOllamaProvider(model string) (types.LLMProvider, error) {
	endpoint := f.config.OllamaEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("OLLAMA_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = os.Getenv("OLLAMA_HOST")
	}

	if model == "" {
		model = f.config.OllamaModel
	}

	return ollama.NewClient(ollama.Config{
		Endpoint:    endpoint,
		Model:       model,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
		Timeout:     time.Duration(f.config.Timeout) * time.Second,
		ToolMode:    ollama.ToolMode(f.config.OllamaToolMode),
		Logger:      f.config.Logger,
	}), nil
}

// IsProviderAvailable checks if a provider is available (credentials/config present).
func (f *ProviderFactory) IsProviderAvailable(provider string) bool {
	_, err := f.CreateProvider(context.Background(), provider, "")
	return err == nil
}
