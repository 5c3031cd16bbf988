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

// Package ollama implements the LLMProvider interface against a local
// Ollama server's /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Global singleton rate limiter shared across all Ollama clients
var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

// Client implements the LLMProvider interface for Ollama.
type Client struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
	toolMode    ToolMode
	rateLimiter *llm.RateLimiter
	logger      *zap.Logger
}

// Models known to support native tool calling (Ollama v0.12.3+)
var toolSupportedModels = map[string]bool{
	"llama3.3":      true,
	"llama3.2":      true,
	"llama3.1":      true,
	"qwen2.5":       true,
	"qwen2.5-coder": true,
	"mistral":       true,
	"mixtral":       true,
	"deepseek-r1":   true,
	"functionary":   true,
}

// ToolMode defines how tools are handled.
type ToolMode string

const (
	// ToolModeAuto automatically detects if the model supports native tool calling
	ToolModeAuto ToolMode = "auto"
	// ToolModeNative uses Ollama's native tool calling API (requires Ollama v0.12.3+)
	ToolModeNative ToolMode = "native"
	// ToolModePrompt disables native tool calling and delivers tool results as
	// plain user messages
	ToolModePrompt ToolMode = "prompt"
)

// Config holds configuration for the Ollama client.
type Config struct {
	Endpoint          string        // Default: http://localhost:11434
	Model             string        // e.g., llama3.1, mistral, qwen2.5-coder
	MaxTokens         int           // Default: model-aware
	Temperature       float64       // Default: 0.8
	Timeout           time.Duration // Default: 120s
	ToolMode          ToolMode      // Default: auto (detect native support)
	RateLimiterConfig llm.RateLimiterConfig
	Logger            *zap.Logger
}

// getDefaultMaxTokens returns max_tokens sized to the model. Smaller models
// drift on long outputs, so they get a shorter budget.
func getDefaultMaxTokens(model string) int {
	modelLower := strings.ToLower(model)

	if strings.Contains(modelLower, "70b") || strings.Contains(modelLower, "72b") ||
		strings.Contains(modelLower, "405b") {
		return 8192
	}

	if strings.Contains(modelLower, "13b") || strings.Contains(modelLower, "14b") ||
		strings.Contains(modelLower, "20b") || strings.Contains(modelLower, "32b") {
		return 6144
	}

	// 7B-8B models and base names without a size suffix.
	return 4096
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = getDefaultMaxTokens(cfg.Model)
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ToolMode == "" {
		cfg.ToolMode = ToolModeAuto
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	var rateLimiter *llm.RateLimiter
	if cfg.RateLimiterConfig.Enabled {
		rateLimiter = getOrCreateGlobalRateLimiter(cfg.RateLimiterConfig)
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		toolMode:    cfg.ToolMode,
		rateLimiter: rateLimiter,
		logger:      cfg.Logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// getOrCreateGlobalRateLimiter returns the global rate limiter, creating it if necessary.
func getOrCreateGlobalRateLimiter(config llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		globalRateLimiter = llm.NewRateLimiter(config)
	})
	return globalRateLimiter
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "ollama"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// supportsNativeTools checks if the model supports native tool calling.
func (c *Client) supportsNativeTools() bool {
	if c.toolMode == ToolModeNative {
		return true
	}
	if c.toolMode == ToolModePrompt {
		return false
	}

	// Auto mode: match the base model name, ignoring :tag suffixes.
	for baseModel := range toolSupportedModels {
		if strings.HasPrefix(c.model, baseModel) {
			return true
		}
	}
	return false
}

// Chat sends a conversation to Ollama and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: c.convertMessages(messages),
		Stream:   false,
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}

	if c.supportsNativeTools() && len(tools) > 0 {
		req.Tools = convertTools(tools)
	}

	resp, err := c.callAPI(ctx, req, llm.GetTokenCounter().EstimateMessagesTokens(messages))
	if err != nil {
		return nil, fmt.Errorf("ollama API call failed: %w", err)
	}

	return c.convertResponse(resp), nil
}

// convertTools converts porter tools to Ollama tool format.
func convertTools(tools []porter.Tool) []ollamaTool {
	ollamaTools := make([]ollamaTool, len(tools))
	for i, tool := range tools {
		ollamaTools[i] = ollamaTool{
			Type: "function",
			Function: ollamaFunction{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.InputSchema(),
			},
		}
	}
	return ollamaTools
}

// convertMessages converts planner messages to Ollama format.
func (c *Client) convertMessages(messages []types.Message) []ollamaMessage {
	var apiMessages []ollamaMessage

	for _, msg := range messages {
		switch msg.Role {
		case "system", "user":
			apiMessages = append(apiMessages, ollamaMessage{
				Role:    msg.Role,
				Content: messageText(msg),
			})

		case "assistant":
			apiMsg := ollamaMessage{
				Role:    "assistant",
				Content: messageText(msg),
			}
			if c.supportsNativeTools() {
				for _, tc := range msg.ToolCalls {
					apiMsg.ToolCalls = append(apiMsg.ToolCalls, ollamaToolCall{
						ID:   tc.ID,
						Type: "function",
						Function: ollamaFunctionCall{
							Name:      tc.Name,
							Arguments: tc.Input,
						},
					})
				}
			}
			apiMessages = append(apiMessages, apiMsg)

		case "tool":
			if c.supportsNativeTools() {
				apiMessages = append(apiMessages, ollamaMessage{
					Role:    "tool",
					Content: msg.Content,
				})
			} else {
				apiMessages = append(apiMessages, ollamaMessage{
					Role:    "user",
					Content: fmt.Sprintf("Tool result: %s", msg.Content),
				})
			}
		}
	}

	return apiMessages
}

// messageText flattens a message to plain text; block sequences keep only
// their text blocks.
func messageText(msg types.Message) string {
	if len(msg.ContentBlocks) == 0 {
		return msg.Content
	}
	var parts []string
	for _, block := range msg.ContentBlocks {
		if block.Type == types.BlockText && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return msg.Content
	}
	return strings.Join(parts, "\n")
}

// cleanJSONString removes common formatting issues from JSON strings.
func cleanJSONString(s string) string {
	s = strings.TrimSpace(s)

	// Strip surrounding backticks (common in Ollama responses).
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		s = s[1 : len(s)-1]
	}

	// Strip a "json" language marker left over from a fence.
	if strings.HasPrefix(s, "json") {
		if len(s) > 4 && (s[4] == '\n' || s[4] == '\r' || s[4] == ' ' || s[4] == '\t') {
			s = strings.TrimSpace(s[4:])
		}
	}

	return s
}

// convertResponse converts an Ollama response to planner format.
func (c *Client) convertResponse(resp *chatResponse) *types.LLMResponse {
	var toolCalls []types.ToolCall
	if len(resp.Message.ToolCalls) > 0 {
		toolCalls = make([]types.ToolCall, len(resp.Message.ToolCalls))
		for i, tc := range resp.Message.ToolCalls {
			// Arguments arrive as a string or a map depending on the model.
			var params map[string]interface{}
			switch args := tc.Function.Arguments.(type) {
			case string:
				cleanedArgs := cleanJSONString(args)
				if err := json.Unmarshal([]byte(cleanedArgs), &params); err != nil {
					c.logger.Warn("failed to parse tool arguments",
						zap.String("tool", tc.Function.Name),
						zap.String("raw", args),
						zap.Error(err))
					params = make(map[string]interface{})
				}
			case map[string]interface{}:
				params = args
			default:
				params = make(map[string]interface{})
			}

			toolCalls[i] = types.ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: params,
			}
		}
	}

	return &types.LLMResponse{
		Content:    resp.Message.Content,
		ToolCalls:  toolCalls,
		StopReason: "stop",
		Usage: types.Usage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
			TotalTokens:  resp.PromptEvalCount + resp.EvalCount,
			CostUSD:      0, // local inference
		},
		Metadata: map[string]interface{}{
			"model":         resp.Model,
			"eval_duration": resp.EvalDuration,
			"native_tools":  c.supportsNativeTools(),
			"tool_mode":     string(c.toolMode),
		},
	}
}

// callAPI makes the HTTP request to Ollama.
func (c *Client) callAPI(ctx context.Context, req chatRequest, estimatedTokens int) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	send := func(ctx context.Context) (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(httpReq)
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

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

// Ollama API types

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Tools    []ollamaTool           `json:"tools,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ollamaFunction `json:"function"`
}

type ollamaFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *porter.JSONSchema `json:"parameters"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments"` // string or map depending on the model
}

type chatResponse struct {
	Model           string        `json:"model"`
	CreatedAt       string        `json:"created_at"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	TotalDuration   int64         `json:"total_duration"`
	LoadDuration    int64         `json:"load_duration"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	EvalDuration    int64         `json:"eval_duration"`
}

// Ensure Client implements LLMProvider interface.
var _ types.LLMProvider = (*Client)(nil)
