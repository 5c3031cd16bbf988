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

// Package gemini implements the LLMProvider interface for Google Gemini
// using the official generative AI SDK. Tool use is native: tool schemas
// become function declarations and tool results travel back to the model
// as function responses.
package gemini

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Global singleton rate limiter shared across all Gemini clients
var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

// Client implements the LLMProvider interface for Google Gemini.
type Client struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	rateLimiter *llm.RateLimiter
}

// Config holds configuration for the Gemini client.
type Config struct {
	// Required: Gemini API key from https://aistudio.google.com/
	// Falls back to the GEMINI_API_KEY and GOOGLE_API_KEY environment
	// variables when empty.
	APIKey string

	// Model to use (default: "gemini-2.5-flash")
	// Available models:
	// - gemini-2.5-pro: Complex reasoning, $1.25-2.50/$10-15 per 1M tokens
	// - gemini-2.5-flash: Best price/performance, $0.30/$2.50 per 1M tokens
	// - gemini-2.5-flash-lite: Fastest/cheapest, similar to Flash pricing
	Model string

	// Optional configuration
	MaxTokens         int     // Default: 8192
	Temperature       float64 // Default: 1.0
	RateLimiterConfig llm.RateLimiterConfig
}

// DefaultGeminiRateLimiterConfig returns limits sized for the Gemini API
// free tier. Paid tiers can raise these through the config file.
func DefaultGeminiRateLimiterConfig() llm.RateLimiterConfig {
	return llm.RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.15, // ~9 RPM, under the 10 RPM free-tier cap
		TokensPerMinute:   240000,
		BurstCapacity:     2,
		MinDelay:          2 * time.Second,
		MaxRetries:        5,
		RetryBackoff:      5 * time.Second,
		QueueTimeout:      5 * time.Minute,
	}
}

// NewClient creates a new Google Gemini client. Unlike the other provider
// constructors this one can fail: the SDK resolves credentials eagerly.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key required: set GEMINI_API_KEY or GOOGLE_API_KEY")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 8192
	}
	if config.Temperature == 0 {
		config.Temperature = 1.0
	}

	// Initialize rate limiter if enabled
	var rateLimiter *llm.RateLimiter
	if config.RateLimiterConfig.Enabled {
		rateLimiter = getOrCreateGlobalRateLimiter(config.RateLimiterConfig)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:      client,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		rateLimiter: rateLimiter,
	}, nil
}

// getOrCreateGlobalRateLimiter returns the global rate limiter, creating it
// if necessary. Starting from the Gemini base keeps free-tier keys under
// their request-per-minute cap even with generic defaults.
func getOrCreateGlobalRateLimiter(config llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		merged := llm.MergeRateLimiterConfig(DefaultGeminiRateLimiterConfig(), config)
		globalRateLimiter = llm.NewRateLimiter(merged)
	})
	return globalRateLimiter
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "gemini"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Close releases the underlying SDK connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Chat sends a conversation to Google Gemini and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	system, contents := convertMessages(messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}
	last := contents[len(contents)-1]
	if last.Role != roleUser {
		return nil, fmt.Errorf("conversation must end with a user or tool message")
	}
	history := contents[:len(contents)-1]

	model := c.client.GenerativeModel(c.model)
	model.SetMaxOutputTokens(int32(c.maxTokens))
	model.SetTemperature(float32(c.temperature))
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	if len(tools) > 0 {
		model.Tools = convertTools(tools)
	}

	// A fresh chat session per attempt keeps retries from duplicating
	// the final user turn in the session history.
	send := func(callCtx context.Context) (interface{}, error) {
		session := model.StartChat()
		session.History = history
		return session.SendMessage(callCtx, last.Parts...)
	}

	var resp *genai.GenerateContentResponse
	if c.rateLimiter != nil {
		tokenEstimate := llm.GetTokenCounter().EstimateMessagesTokens(messages)
		result, err := c.rateLimiter.DoWithTokens(ctx, tokenEstimate, send)
		if err != nil {
			return nil, fmt.Errorf("API call failed: %w", err)
		}
		resp = result.(*genai.GenerateContentResponse)
	} else {
		result, err := send(ctx)
		if err != nil {
			return nil, fmt.Errorf("API call failed: %w", err)
		}
		resp = result.(*genai.GenerateContentResponse)
	}

	return convertResponse(resp, c.model)
}

// Ensure Client implements LLMProvider interface.
var _ types.LLMProvider = (*Client)(nil)
