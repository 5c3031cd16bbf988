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

// Package llm provides the provider-independent generation layer: content
// sanitization, plain and schema-constrained generation, client-side rate
// limiting, and token counting. Concrete providers live in subpackages.
package llm

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Markers that identify serialized tool or reasoning machinery inside
// generated text. A JSON object region containing one of these is internal
// plumbing, not user-facing content.
var toolMarkers = []string{
	`"tool_use"`,
	`"tool_result"`,
	`"tool_calls"`,
	`"thinking"`,
	`"signature"`,
}

// SanitizeContent normalizes any generated content value into clean text.
//
// Block sequences keep only their text blocks, joined by newlines. Plain
// strings are scanned line by line: a JSON object region carrying a tool or
// signature marker is dropped through its matching closing brace, everything
// else passes through. Primitives are stringified. The function never panics
// and is idempotent: sanitized output sanitizes to itself.
func SanitizeContent(content interface{}) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return sanitizeText(v)
	case []types.ContentBlock:
		return joinTextBlocks(v)
	case types.ContentBlock:
		if v.Type == types.BlockText {
			return strings.TrimSpace(v.Text)
		}
		return ""
	case *types.LLMResponse:
		if v == nil {
			return ""
		}
		if len(v.ContentBlocks) > 0 {
			return joinTextBlocks(v.ContentBlocks)
		}
		return sanitizeText(v.Content)
	case []interface{}:
		return joinBlockMaps(v)
	case map[string]interface{}:
		return joinBlockMaps([]interface{}{v})
	case fmt.Stringer:
		return sanitizeText(v.String())
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// joinTextBlocks keeps the text blocks of a typed block sequence.
func joinTextBlocks(blocks []types.ContentBlock) string {
	var parts []string
	for _, block := range blocks {
		if block.Type != types.BlockText {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// joinBlockMaps handles block sequences that arrive as decoded JSON rather
// than typed blocks.
func joinBlockMaps(items []interface{}) string {
	var parts []string
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _ := m["type"].(string); t != types.BlockText {
			continue
		}
		if text, _ := m["text"].(string); strings.TrimSpace(text) != "" {
			parts = append(parts, strings.TrimSpace(text))
		}
	}
	return strings.Join(parts, "\n")
}

// sanitizeText removes serialized tool machinery from free text.
func sanitizeText(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "{") {
			kept = append(kept, lines[i])
			i++
			continue
		}

		// A JSON object region: find its matching top-level close, then
		// decide whether the whole region is tool plumbing.
		end := scanObjectRegion(lines, i)
		region := strings.Join(lines[i:end+1], "\n")
		if hasToolMarker(region) {
			i = end + 1
			continue
		}
		kept = append(kept, lines[i:end+1]...)
		i = end + 1
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// scanObjectRegion returns the index of the line on which the object opened
// at line start reaches brace balance. An unbalanced object runs to the last
// line.
func scanObjectRegion(lines []string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(lines); i++ {
		for _, ch := range lines[i] {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				if inString {
					escaped = true
				}
			case '"':
				inString = !inString
			case '{':
				if !inString {
					depth++
				}
			case '}':
				if !inString {
					depth--
					if depth == 0 {
						return i
					}
				}
			}
		}
		// Strings do not span lines in well-formed JSON.
		inString = false
		escaped = false
	}
	return len(lines) - 1
}

func hasToolMarker(region string) bool {
	for _, marker := range toolMarkers {
		if strings.Contains(region, marker) {
			return true
		}
	}
	return false
}
