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

// Package anthropic implements the LLMProvider interface against the
// Anthropic Messages API over plain HTTP.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

const (
	// DefaultAnthropicModel is the default Claude model
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	// DefaultAnthropicEndpoint is the default Anthropic API endpoint
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 4096
	// DefaultTemperature is the default LLM temperature
	DefaultTemperature = 1.0
	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
)

// Global singleton rate limiter shared across all Anthropic clients
var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

// DefaultAnthropicRateLimiterConfig returns safe defaults for Anthropic's
// API. The numbers target Tier 1 accounts (50 RPM, 30K-100K input tokens
// per minute); higher tiers raise requests_per_second and tokens_per_minute
// in wayfarer.yaml.
func DefaultAnthropicRateLimiterConfig() llm.RateLimiterConfig {
	return llm.RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.7,
		TokensPerMinute:   80000,
		BurstCapacity:     3,
		MinDelay:          800 * time.Millisecond,
		MaxRetries:        5,
		RetryBackoff:      2 * time.Second,
		QueueTimeout:      5 * time.Minute,
	}
}

// Client implements the LLMProvider interface for Anthropic's Claude API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
	rateLimiter *llm.RateLimiter
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey            string
	Model             string // Default: claude-sonnet-4-5-20250929
	Endpoint          string // Default: https://api.anthropic.com/v1/messages
	Timeout           time.Duration
	MaxTokens         int     // Default: 4096
	Temperature       float64 // Default: 1.0
	RateLimiterConfig llm.RateLimiterConfig
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultAnthropicModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("ANTHROPIC_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultAnthropicEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}

	var rateLimiter *llm.RateLimiter
	if config.RateLimiterConfig.Enabled {
		rateLimiter = getOrCreateGlobalRateLimiter(config.RateLimiterConfig)
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    config.Endpoint,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		rateLimiter: rateLimiter,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// getOrCreateGlobalRateLimiter returns the global rate limiter, creating it
// if necessary. Starting from the Anthropic base keeps Tier 1 accounts
// under their limits even when the caller passes the generic defaults.
func getOrCreateGlobalRateLimiter(config llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		merged := llm.MergeRateLimiterConfig(DefaultAnthropicRateLimiterConfig(), config)
		globalRateLimiter = llm.NewRateLimiter(merged)
	})
	return globalRateLimiter
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	systemPrompt, apiMessages := convertMessages(messages)
	apiTools := convertTools(tools)

	req := &MessagesRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if len(systemPrompt) > 0 {
		req.System = systemPrompt
	}
	if len(apiTools) > 0 {
		req.Tools = apiTools
	}

	resp, err := c.callAPI(ctx, req, llm.GetTokenCounter().EstimateMessagesTokens(messages))
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	return c.convertResponse(resp), nil
}

// convertMessages converts planner messages to Anthropic format. System
// messages are combined into the separate "system" field the Messages API
// requires, with cache_control on the block so the prompt prefix is cached.
func convertMessages(messages []types.Message) ([]TextBlockParam, []Message) {
	var systemPrompts []string
	var apiMessages []Message

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}

		case "user":
			apiMessages = append(apiMessages, Message{
				Role: "user",
				Content: []ContentBlock{
					{Type: "text", Text: msg.Content},
				},
			})

		case "assistant":
			content := convertAssistantBlocks(msg)
			if len(content) > 0 {
				apiMessages = append(apiMessages, Message{
					Role:    "assistant",
					Content: content,
				})
			}

		case "tool":
			apiMessages = append(apiMessages, Message{
				Role: "user",
				Content: []ContentBlock{
					{
						Type:      "tool_result",
						ToolUseID: msg.ToolUseID,
						Content:   msg.Content,
					},
				},
			})
		}
	}

	if len(systemPrompts) == 0 {
		return nil, apiMessages
	}
	systemBlocks := []TextBlockParam{
		{
			Type:         "text",
			Text:         strings.Join(systemPrompts, "\n\n"),
			CacheControl: &CacheControl{Type: "ephemeral"},
		},
	}
	return systemBlocks, apiMessages
}

// convertAssistantBlocks maps an assistant message to API content blocks.
// Block sequences pass through as-is so multi-turn tool use round-trips;
// plain messages fall back to Content plus ToolCalls.
func convertAssistantBlocks(msg types.Message) []ContentBlock {
	if len(msg.ContentBlocks) > 0 {
		var content []ContentBlock
		for _, block := range msg.ContentBlocks {
			switch block.Type {
			case types.BlockText:
				if block.Text != "" {
					content = append(content, ContentBlock{Type: "text", Text: block.Text})
				}
			case types.BlockToolUse:
				content = append(content, ContentBlock{
					Type:  "tool_use",
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				})
			case types.BlockThinking:
				content = append(content, ContentBlock{
					Type:      "thinking",
					Thinking:  block.Text,
					Signature: block.Signature,
				})
			}
		}
		return content
	}

	var content []ContentBlock
	if msg.Content != "" {
		content = append(content, ContentBlock{Type: "text", Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		content = append(content, ContentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: tc.Input,
		})
	}
	return content
}

// convertTools converts porter tools to Anthropic format. The last tool is
// marked with cache_control: ephemeral so the entire tool list is cached
// and cached tokens stop counting against the input-token rate limit.
func convertTools(tools []porter.Tool) []CacheableTool {
	var apiTools []CacheableTool

	for _, tool := range tools {
		apiTool := CacheableTool{
			Name:        tool.Name(),
			Description: tool.Description(),
		}

		schema := tool.InputSchema()
		if schema != nil {
			apiTool.InputSchema = InputSchema{
				Type:       schema.Type,
				Properties: convertSchemaProperties(schema.Properties),
				Required:   schema.Required,
			}
		}

		apiTools = append(apiTools, apiTool)
	}

	if len(apiTools) > 0 {
		apiTools[len(apiTools)-1].CacheControl = &CacheControl{Type: "ephemeral"}
	}

	return apiTools
}

// convertSchemaProperties converts JSONSchema properties to Anthropic format.
func convertSchemaProperties(props map[string]*porter.JSONSchema) map[string]map[string]interface{} {
	if props == nil {
		return nil
	}

	result := make(map[string]map[string]interface{})
	for key, schema := range props {
		propMap := make(map[string]interface{})
		propMap["type"] = schema.Type

		if schema.Description != "" {
			propMap["description"] = schema.Description
		}
		if schema.Enum != nil {
			propMap["enum"] = schema.Enum
		}
		if schema.Default != nil {
			propMap["default"] = schema.Default
		}
		if schema.Properties != nil {
			propMap["properties"] = convertSchemaProperties(schema.Properties)
		}
		if schema.Items != nil {
			propMap["items"] = map[string]interface{}{
				"type": schema.Items.Type,
			}
		}

		result[key] = propMap
	}
	return result
}

// convertResponse converts an Anthropic response to planner format. The
// raw block sequence is preserved so the agent loop can echo it back on the
// next turn; Content carries only the joined text.
func (c *Client) convertResponse(resp *MessagesResponse) *types.LLMResponse {
	llmResp := &types.LLMResponse{
		StopReason: resp.StopReason,
		Usage: types.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CostUSD: calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens,
				resp.Usage.CacheReadInputTokens, resp.Usage.CacheCreationInputTokens),
		},
		Metadata: map[string]interface{}{
			"model":       resp.Model,
			"stop_reason": resp.StopReason,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			llmResp.Content += block.Text
			llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
				Type: types.BlockText,
				Text: block.Text,
			})

		case "tool_use":
			llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
			llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
				Type:  types.BlockToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})

		case "thinking":
			llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
				Type:      types.BlockThinking,
				Text:      block.Thinking,
				Signature: block.Signature,
			})
		}
	}

	return llmResp
}

// calculateCost estimates the cost in USD based on token usage.
// Claude Sonnet pricing: $3 per million input tokens, $15 per million
// output tokens, cache writes at 1.25x input, cache reads at 0.10x input.
func calculateCost(inputTokens, outputTokens, cacheReadTokens, cacheCreationTokens int) float64 {
	inputCost := float64(inputTokens) * 3.0 / 1_000_000
	outputCost := float64(outputTokens) * 15.0 / 1_000_000
	cacheWriteCost := float64(cacheCreationTokens) * 3.75 / 1_000_000
	cacheReadCost := float64(cacheReadTokens) * 0.30 / 1_000_000
	return inputCost + outputCost + cacheWriteCost + cacheReadCost
}

// callAPI makes the HTTP request to Anthropic's API. The closure builds a
// fresh request per attempt so the body can be re-sent when the rate
// limiter retries a 429.
func (c *Client) callAPI(ctx context.Context, req *MessagesRequest, estimatedTokens int) (*MessagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	buildAPIReq := func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("x-api-key", c.apiKey)
		r.Header.Set("anthropic-version", "2023-06-01")
		// Cached prompt tokens do not count against the input-token rate limit.
		r.Header.Set("anthropic-beta", "prompt-caching-2024-07-31")
		return r, nil
	}

	send := func(ctx context.Context) (interface{}, error) {
		httpReq, err := buildAPIReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		// A 429 becomes an error so the rate limiter backs off and retries.
		if resp.StatusCode == http.StatusTooManyRequests {
			respBody, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("API error (status 429): %s", string(respBody))
		}
		return resp, nil
	}

	var httpResp *http.Response
	if c.rateLimiter != nil {
		result, err := c.rateLimiter.DoWithTokens(ctx, estimatedTokens, send)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		httpResp = result.(*http.Response)
	} else {
		result, err := send(ctx)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		httpResp = result.(*http.Response)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

// Ensure Client implements LLMProvider interface.
var _ types.LLMProvider = (*Client)(nil)
