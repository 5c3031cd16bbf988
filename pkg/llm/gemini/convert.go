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
package gemini

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Gemini turn roles. The API uses "model" where other providers say
// "assistant", and tool results travel inside user turns.
const (
	roleUser  = "user"
	roleModel = "model"
)

// convertMessages maps messages to Gemini contents. System messages are
// collected separately because the API carries them as a dedicated system
// instruction rather than a turn. Consecutive same-role turns are merged:
// parallel tool results must arrive as parts of a single user turn.
func convertMessages(messages []types.Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	appendContent := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if msg.Content != "" {
				system = append(system, msg.Content)
			}

		case "user":
			if text := messageText(msg); text != "" {
				appendContent(roleUser, genai.Text(text))
			}

		case "assistant":
			appendContent(roleModel, assistantParts(msg)...)

		case "tool":
			// Gemini matches function responses by name, not by call ID.
			// Responses carry the tool call ID, which for this provider is
			// the function name.
			appendContent(roleUser, genai.FunctionResponse{
				Name: msg.ToolUseID,
				Response: map[string]interface{}{
					"result": msg.Content,
				},
			})
		}
	}

	return strings.Join(system, "\n\n"), contents
}

// assistantParts converts an assistant turn to Gemini parts, preferring
// the structured block sequence when the message carries one.
func assistantParts(msg types.Message) []genai.Part {
	var parts []genai.Part

	if len(msg.ContentBlocks) > 0 {
		for _, block := range msg.ContentBlocks {
			switch block.Type {
			case types.BlockText, types.BlockThinking:
				if block.Text != "" {
					parts = append(parts, genai.Text(block.Text))
				}
			case types.BlockToolUse:
				parts = append(parts, genai.FunctionCall{
					Name: block.Name,
					Args: block.Input,
				})
			}
		}
		return parts
	}

	if msg.Content != "" {
		parts = append(parts, genai.Text(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		parts = append(parts, genai.FunctionCall{
			Name: tc.Name,
			Args: tc.Input,
		})
	}
	return parts
}

// messageText flattens a message to plain text.
func messageText(msg types.Message) string {
	if len(msg.ContentBlocks) == 0 {
		return msg.Content
	}
	var texts []string
	for _, block := range msg.ContentBlocks {
		if block.Type == types.BlockText && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// convertTools converts tools to Gemini function declarations. All
// declarations travel inside a single Tool entry.
func convertTools(tools []porter.Tool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))

	for _, tool := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
		}

		// Gemini rejects object schemas without properties; declarations
		// for parameterless tools omit the schema entirely.
		if params := convertSchema(tool.InputSchema()); params != nil {
			if params.Type != genai.TypeObject || len(params.Properties) > 0 {
				decl.Parameters = params
			}
		}

		declarations = append(declarations, decl)
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertSchema maps a JSON schema to the Gemini schema type.
func convertSchema(schema *porter.JSONSchema) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        convertSchemaType(schema.Type),
		Description: schema.Description,
		Format:      schema.Format,
		Required:    schema.Required,
	}

	if len(schema.Enum) > 0 {
		out.Enum = make([]string, 0, len(schema.Enum))
		for _, v := range schema.Enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			} else {
				out.Enum = append(out.Enum, fmt.Sprintf("%v", v))
			}
		}
	}

	if schema.Items != nil {
		out.Items = convertSchema(schema.Items)
	}

	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for key, prop := range schema.Properties {
			out.Properties[key] = convertSchema(prop)
		}
	}

	return out
}

func convertSchemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// convertResponse converts a Gemini response to the provider-independent format.
func convertResponse(resp *genai.GenerateContentResponse, model string) (*types.LLMResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("response contained no candidates")
	}
	candidate := resp.Candidates[0]

	llmResp := &types.LLMResponse{
		StopReason: mapFinishReason(candidate.FinishReason),
		Metadata: map[string]interface{}{
			"provider": "gemini",
			"model":    model,
		},
	}

	if resp.UsageMetadata != nil {
		inputTokens := int(resp.UsageMetadata.PromptTokenCount)
		outputTokens := int(resp.UsageMetadata.CandidatesTokenCount)
		llmResp.Usage = types.Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
			CostUSD:      calculateCost(model, inputTokens, outputTokens),
		}
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				llmResp.Content += string(v)
				llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
					Type: types.BlockText,
					Text: string(v),
				})
			case genai.FunctionCall:
				// Gemini doesn't provide call IDs; the name serves as one.
				llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
					ID:    v.Name,
					Name:  v.Name,
					Input: v.Args,
				})
				llmResp.ContentBlocks = append(llmResp.ContentBlocks, types.ContentBlock{
					Type:  types.BlockToolUse,
					ID:    v.Name,
					Name:  v.Name,
					Input: v.Args,
				})
			}
		}
	}

	if len(llmResp.ToolCalls) > 0 {
		llmResp.StopReason = "tool_use"
	}

	return llmResp, nil
}

// mapFinishReason maps Gemini finish reasons to the stop_reason vocabulary
// the rest of the codebase expects.
func mapFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "content_filter"
	default:
		return "other"
	}
}

// calculateCost estimates the cost in USD based on token usage.
// Pricing as of 2025-01 (per million tokens):
//
// Gemini 2.5 Pro:
// - Input: $1.25-$2.50
// - Output: $10.00-$15.00
//
// Gemini 2.5 Flash:
// - Input: $0.30
// - Output: $2.50
//
// Gemini 2.5 Flash-Lite:
// - Input: ~$0.30
// - Output: ~$2.50
//
// Note: Prices may vary. Check https://ai.google.dev/pricing for current rates.
func calculateCost(model string, inputTokens, outputTokens int) float64 {
	var inputCostPerM, outputCostPerM float64

	switch model {
	case "gemini-2.5-pro":
		// Use mid-range pricing
		inputCostPerM = 1.875
		outputCostPerM = 12.50

	case "gemini-2.5-flash":
		inputCostPerM = 0.30
		outputCostPerM = 2.50

	case "gemini-2.5-flash-lite":
		inputCostPerM = 0.30
		outputCostPerM = 2.50

	default:
		// Default to Flash pricing for unknown models
		inputCostPerM = 0.30
		outputCostPerM = 2.50
	}

	inputCost := float64(inputTokens) * inputCostPerM / 1_000_000
	outputCost := float64(outputTokens) * outputCostPerM / 1_000_000
	return inputCost + outputCost
}
