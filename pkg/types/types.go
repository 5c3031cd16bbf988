// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types contains shared types used across the wayfarer engine.
// This package breaks import cycles by providing common types that both
// pkg/planner and the pkg/llm providers depend on.
package types

import (
	"context"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

// Content block types. Generated content is a closed set of tagged
// variants; everything that is not plain text is tool or reasoning
// machinery and gets stripped before a stage interprets the output.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockThinking   = "thinking"
)

// ToolCall represents a tool invocation by the LLM.
type ToolCall struct {
	// ID is a unique identifier for this tool call
	ID string

	// Name is the tool name
	Name string

	// Input contains the tool parameters as JSON
	Input map[string]interface{}
}

// ContentBlock is one tagged variant of generated content.
// Exactly the fields for the block's Type are populated.
type ContentBlock struct {
	// Type is one of the Block* constants
	Type string

	// Text carries the payload for text and thinking blocks
	Text string

	// ID is the tool_use identifier (when Type is tool_use)
	ID string

	// Name is the invoked tool name (when Type is tool_use)
	Name string

	// Input contains tool parameters (when Type is tool_use)
	Input map[string]interface{}

	// ToolUseID links a tool_result block to its tool_use block
	ToolUseID string

	// Content carries the serialized result for tool_result blocks
	Content string

	// Signature carries signed-reasoning metadata for thinking blocks
	Signature string
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is the message sender (system, user, assistant, tool)
	Role string

	// Content is the message text (for text-only messages)
	Content string

	// ContentBlocks contains mixed content; when present it takes
	// precedence over Content
	ContentBlocks []ContentBlock

	// ToolCalls contains tool invocations (if role is assistant)
	ToolCalls []ToolCall

	// ToolUseID is the ID of the tool_use block this result corresponds to
	// (if role is tool). Providers like Bedrock/Anthropic need it to match
	// tool results to tool requests.
	ToolUseID string

	// ToolResult contains the tool execution result (if role is tool)
	ToolResult *porter.Result

	// Timestamp when the message was created
	Timestamp time.Time

	// TokenCount for cost tracking
	TokenCount int

	// CostUSD for cost tracking
	CostUSD float64
}

// Usage tracks LLM token usage and costs.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// Add accumulates another usage sample into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// LLMResponse represents a response from the LLM.
type LLMResponse struct {
	// Content is the joined text response (if no tool calls)
	Content string

	// ContentBlocks preserves the raw block sequence as returned by the
	// provider, tool traces included. Callers that need clean text run
	// the sanitizer over this instead of trusting Content.
	ContentBlocks []ContentBlock

	// ToolCalls contains requested tool executions
	ToolCalls []ToolCall

	// StopReason indicates why the LLM stopped
	StopReason string

	// Usage tracks token usage
	Usage Usage

	// Metadata contains provider-specific metadata
	Metadata map[string]interface{}
}

// LLMProvider defines the interface for LLM providers.
// This allows pluggable backends (Anthropic, Bedrock, Gemini, Ollama).
//
// Note: Chat accepts context.Context so providers stay free of planner
// concerns; stage state and tracing live at the planner layer.
type LLMProvider interface {
	// Chat sends a conversation to the LLM and returns the response
	Chat(ctx context.Context, messages []Message, tools []porter.Tool) (*LLMResponse, error)

	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string
}

// SystemMessage builds a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text, Timestamp: time.Now()}
}

// UserMessage builds a user-role message.
func UserMessage(text string) Message {
	return Message{Role: "user", Content: text, Timestamp: time.Now()}
}

// JoinedText returns the newline-joined text of the response's plain text
// blocks, falling back to Content when no blocks are present.
func (r *LLMResponse) JoinedText() string {
	if len(r.ContentBlocks) == 0 {
		return r.Content
	}
	var out string
	for _, b := range r.ContentBlocks {
		if b.Type != BlockText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += b.Text
	}
	if out == "" {
		return r.Content
	}
	return out
}
