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
package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/wayfarer/pkg/types"
)

// TokenCounter estimates prompt sizes for rate limiting and cost tracking.
// Uses tiktoken with cl100k_base encoding, a close approximation for the
// tokenizers of the supported providers.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	globalTokenCounter *TokenCounter
	counterInitOnce    sync.Once
)

// GetTokenCounter returns the singleton token counter.
func GetTokenCounter() *TokenCounter {
	counterInitOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Character-based estimation when the encoding data is
			// unavailable (offline builds).
			globalTokenCounter = &TokenCounter{encoder: nil}
			return
		}
		globalTokenCounter = &TokenCounter{encoder: tkm}
	})
	return globalTokenCounter
}

// CountTokens returns the token count for a text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoder == nil {
		return len(text) / 4
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	return len(tc.encoder.Encode(text, nil, nil))
}

// EstimateMessagesTokens estimates the prompt size of a conversation,
// including per-message formatting overhead. Providers feed this to the
// rate limiter's token bucket before each call.
func (tc *TokenCounter) EstimateMessagesTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		// Role plus message framing costs roughly 10 tokens.
		total += 10
		total += tc.CountTokens(msg.Content)
		for _, block := range msg.ContentBlocks {
			switch block.Type {
			case types.BlockText, types.BlockThinking:
				total += tc.CountTokens(block.Text)
			case types.BlockToolUse:
				total += tc.CountTokens(block.Name)
				total += tc.CountTokens(fmt.Sprintf("%v", block.Input))
			case types.BlockToolResult:
				total += tc.CountTokens(block.Content)
			}
		}
		if len(msg.ToolCalls) > 0 {
			total += tc.CountTokens(fmt.Sprintf("%v", msg.ToolCalls))
		}
		if msg.ToolResult != nil {
			total += tc.CountTokens(fmt.Sprintf("%v", *msg.ToolResult))
		}
	}
	return total
}
