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

// Package bedrock implements the LLMProvider interface for Claude models
// hosted on AWS Bedrock. It rides on the official Anthropic SDK, which
// handles SigV4 signing and endpoint resolution through its Bedrock
// backend; AWS credentials come from explicit config, a named profile,
// or the default credential chain.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Global rate limiter shared across all Bedrock clients. AWS throttles
// per account, so concurrent planners must coordinate through one limiter.
var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

// Default Bedrock configuration values.
// Can be overridden via environment variables:
//   - AWS_BEDROCK_MODEL_ID / WAYFARER_LLM_BEDROCK_MODEL_ID
//   - AWS_DEFAULT_REGION / WAYFARER_LLM_BEDROCK_REGION
const (
	// DefaultBedrockModelID uses Claude Sonnet 4.5 with cross-region inference profile (us.* prefix)
	DefaultBedrockModelID     = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	DefaultBedrockRegion      = "us-west-2"
	DefaultBedrockMaxTokens   = 4096
	DefaultBedrockTemperature = 1.0
)

// Config holds configuration for the Bedrock client.
type Config struct {
	// AWS Configuration
	Region          string // Required: AWS region (e.g., us-east-1, us-west-2)
	AccessKeyID     string // Optional: if not using IAM role/profile
	SecretAccessKey string // Optional: if not using IAM role/profile
	SessionToken    string // Optional: for temporary credentials
	Profile         string // Optional: AWS profile name from ~/.aws/config

	// Model Configuration
	ModelID     string  // Default: us.anthropic.claude-sonnet-4-5-20250929-v1:0
	MaxTokens   int     // Default: 4096
	Temperature float64 // Default: 1.0

	// Rate Limiting Configuration
	RateLimiterConfig llm.RateLimiterConfig // Optional: enables automatic throttle handling
}

// Client implements the LLMProvider interface for AWS Bedrock.
type Client struct {
	client      anthropic.Client
	modelID     string
	region      string
	maxTokens   int64
	temperature float64
	rateLimiter *llm.RateLimiter
}

// NewClient creates a new Bedrock client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	// Set defaults - check environment variables first
	if cfg.ModelID == "" {
		if envModel := os.Getenv("AWS_BEDROCK_MODEL_ID"); envModel != "" {
			cfg.ModelID = envModel
		} else if envModel := os.Getenv("WAYFARER_LLM_BEDROCK_MODEL_ID"); envModel != "" {
			cfg.ModelID = envModel
		} else {
			cfg.ModelID = DefaultBedrockModelID
		}
	}
	if cfg.Region == "" {
		if envRegion := os.Getenv("AWS_DEFAULT_REGION"); envRegion != "" {
			cfg.Region = envRegion
		} else if envRegion := os.Getenv("WAYFARER_LLM_BEDROCK_REGION"); envRegion != "" {
			cfg.Region = envRegion
		} else {
			cfg.Region = DefaultBedrockRegion
		}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultBedrockMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultBedrockTemperature
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Initialize rate limiter if enabled
	var rateLimiter *llm.RateLimiter
	if cfg.RateLimiterConfig.Enabled {
		rlCfg := llm.MergeRateLimiterConfig(llm.DefaultRateLimiterConfig(), cfg.RateLimiterConfig)
		rateLimiter = getOrCreateGlobalRateLimiter(rlCfg)
	}

	// The bedrock backend handles SigV4 signing and endpoint configuration.
	client := anthropic.NewClient(
		bedrock.WithConfig(awsCfg),
	)

	return &Client{
		client:      client,
		modelID:     cfg.ModelID,
		region:      cfg.Region,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		rateLimiter: rateLimiter,
	}, nil
}

// loadAWSConfig resolves AWS credentials in precedence order: explicit
// static credentials, then a named profile, then the default chain.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	}
	if cfg.Profile != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithSharedConfigProfile(cfg.Profile),
		)
	}
	return config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
}

// getOrCreateGlobalRateLimiter returns the singleton rate limiter for all
// Bedrock clients. The first call initializes it; later calls return the
// existing limiter regardless of config.
func getOrCreateGlobalRateLimiter(config llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		globalRateLimiter = llm.NewRateLimiter(config)
	})
	return globalRateLimiter
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "bedrock"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.modelID
}

// Chat sends a conversation to Bedrock and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	systemPrompt, sdkMessages := convertMessages(messages)
	if len(sdkMessages) == 0 {
		return nil, fmt.Errorf("no valid messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelID),
		Messages:    sdkMessages,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	if len(tools) > 0 {
		sdkTools := convertTools(tools)
		toolUnions := make([]anthropic.ToolUnionParam, len(sdkTools))
		for i := range sdkTools {
			toolUnions[i] = anthropic.ToolUnionParam{
				OfTool: &sdkTools[i],
			}
		}
		params.Tools = toolUnions
	}

	var message *anthropic.Message
	var err error

	if c.rateLimiter != nil {
		tokenEstimate := llm.GetTokenCounter().EstimateMessagesTokens(messages)
		result, rlErr := c.rateLimiter.DoWithTokens(ctx, tokenEstimate, func(callCtx context.Context) (interface{}, error) {
			return c.client.Messages.New(callCtx, params)
		})
		if rlErr != nil {
			return nil, fmt.Errorf("bedrock invocation failed: %w", rlErr)
		}
		message = result.(*anthropic.Message)
	} else {
		message, err = c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("bedrock invocation failed: %w", err)
		}
	}

	return c.convertResponse(message), nil
}

// convertMessages converts planner messages to Anthropic SDK format.
// Returns the combined system prompt and the API messages.
func convertMessages(messages []types.Message) (string, []anthropic.MessageParam) {
	var systemPrompts []string
	var sdkMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}

		case "user":
			if msg.Content != "" {
				sdkMessages = append(sdkMessages, anthropic.NewUserMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			}

		case "assistant":
			var content []anthropic.ContentBlockParamUnion

			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}

			for _, tc := range msg.ToolCalls {
				// Ensure input is never null
				var input interface{}
				if tc.Input != nil {
					input = tc.Input
				} else {
					input = map[string]interface{}{}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}

			if len(content) > 0 {
				sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(content...))
			}

		case "tool":
			isError := msg.ToolResult != nil && !msg.ToolResult.Success
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolUseID, msg.Content, isError),
			))
		}
	}

	return strings.Join(systemPrompts, "\n\n"), sdkMessages
}

// convertTools converts tools to Anthropic SDK format.
func convertTools(tools []porter.Tool) []anthropic.ToolParam {
	var sdkTools []anthropic.ToolParam

	for _, tool := range tools {
		sdkTool := anthropic.ToolParam{
			Name:        tool.Name(),
			Description: anthropic.String(tool.Description()),
		}

		if schema := tool.InputSchema(); schema != nil {
			// Round-trip through JSON to populate the SDK's schema param.
			schemaJSON, _ := json.Marshal(porter.NormalizeSchema(schema))
			var inputSchema anthropic.ToolInputSchemaParam
			_ = json.Unmarshal(schemaJSON, &inputSchema)
			sdkTool.InputSchema = inputSchema
		}

		sdkTools = append(sdkTools, sdkTool)
	}

	return sdkTools
}

// convertResponse converts an Anthropic SDK response to the
// provider-independent format.
func (c *Client) convertResponse(message *anthropic.Message) *types.LLMResponse {
	llmResp := &types.LLMResponse{
		StopReason: string(message.StopReason),
		Usage: types.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
			CostUSD:      c.calculateCost(int(message.Usage.InputTokens), int(message.Usage.OutputTokens)),
		},
		Metadata: map[string]interface{}{
			"provider":   "bedrock",
			"model":      c.modelID,
			"message_id": message.ID,
		},
	}

	for _, block := range message.Content {
		switch block.Type {
		case "text":
			llmResp.Content += block.Text
			llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
				Type: types.BlockText,
				Text: block.Text,
			})
		case "tool_use":
			var input map[string]interface{}
			if block.Input != nil {
				_ = json.Unmarshal(block.Input, &input)
			}
			if input == nil {
				input = map[string]interface{}{}
			}

			llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
			llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
				Type:  types.BlockToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	return llmResp
}

// calculateCost estimates cost for Bedrock Claude models. Bedrock bills
// the same per-token rates as the first-party API.
func (c *Client) calculateCost(inputTokens, outputTokens int) float64 {
	var inputPricePerMillion, outputPricePerMillion float64

	switch {
	case strings.Contains(c.modelID, "claude-sonnet-4"):
		inputPricePerMillion = 3.0
		outputPricePerMillion = 15.0
	case strings.Contains(c.modelID, "claude-haiku-4"):
		inputPricePerMillion = 0.8
		outputPricePerMillion = 4.0
	case strings.Contains(c.modelID, "claude-opus-4"):
		inputPricePerMillion = 15.0
		outputPricePerMillion = 75.0
	default:
		inputPricePerMillion = 3.0
		outputPricePerMillion = 15.0
	}

	inputCost := float64(inputTokens) * inputPricePerMillion / 1_000_000
	outputCost := float64(outputTokens) * outputPricePerMillion / 1_000_000
	return inputCost + outputCost
}

// Ensure Client implements LLMProvider interface.
var _ types.LLMProvider = (*Client)(nil)
