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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// generateObjectAttempts bounds schema-constrained generation: the initial
// call plus one corrective re-ask.
const generateObjectAttempts = 2

// SchemaViolationError reports a structured generation that still did not
// satisfy its schema after the corrective re-ask. Raw preserves the final
// model reply for diagnostics.
type SchemaViolationError struct {
	Violations []string
	Raw        string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("response does not satisfy the requested schema: %s",
		strings.Join(e.Violations, "; "))
}

// GenerateText runs a single system+user completion and returns the
// sanitized text reply.
func GenerateText(ctx context.Context, provider types.LLMProvider, system, human string) (string, types.Usage, error) {
	var usage types.Usage

	messages := make([]types.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, types.SystemMessage(system))
	}
	messages = append(messages, types.UserMessage(human))

	resp, err := provider.Chat(ctx, messages, nil)
	if err != nil {
		return "", usage, fmt.Errorf("completion failed: %w", err)
	}
	usage.Add(resp.Usage)

	return SanitizeContent(resp), usage, nil
}

// GenerateObject runs a completion constrained to a JSON schema and decodes
// the reply into out. The schema is appended to the system prompt; the first
// balanced JSON document in the reply is extracted, validated, and decoded.
// A reply that violates the schema triggers exactly one corrective re-ask
// carrying the violation list; a second failure returns a
// *SchemaViolationError. Usage is accumulated across both calls.
func GenerateObject(ctx context.Context, provider types.LLMProvider, system, human string, schema *porter.JSONSchema, out interface{}) (types.Usage, error) {
	var usage types.Usage

	prompt := system
	if schema != nil {
		doc, err := json.MarshalIndent(porter.NormalizeSchema(schema), "", "  ")
		if err != nil {
			return usage, fmt.Errorf("failed to encode schema: %w", err)
		}
		prompt += "\n\nRespond with a single JSON document matching this schema. No prose, no code fences:\n" + string(doc)
	}

	messages := []types.Message{
		types.SystemMessage(prompt),
		types.UserMessage(human),
	}

	var lastErr *SchemaViolationError
	for attempt := 0; attempt < generateObjectAttempts; attempt++ {
		resp, err := provider.Chat(ctx, messages, nil)
		if err != nil {
			return usage, fmt.Errorf("completion failed: %w", err)
		}
		usage.Add(resp.Usage)

		raw := resp.JoinedText()
		lastErr = decodeDocument(raw, schema, out)
		if lastErr == nil {
			return usage, nil
		}

		messages = append(messages,
			types.Message{Role: "assistant", Content: raw, Timestamp: time.Now()},
			types.UserMessage(reaskPrompt(lastErr)),
		)
	}

	return usage, lastErr
}

// decodeDocument extracts, validates, and unmarshals one JSON document.
func decodeDocument(raw string, schema *porter.JSONSchema, out interface{}) *SchemaViolationError {
	doc, ok := extractJSONDocument(raw)
	if !ok {
		return &SchemaViolationError{
			Violations: []string{"no JSON document found in response"},
			Raw:        raw,
		}
	}

	if violations := validateDocument(schema, doc); len(violations) > 0 {
		return &SchemaViolationError{Violations: violations, Raw: raw}
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return &SchemaViolationError{
			Violations: []string{fmt.Sprintf("document does not decode: %v", err)},
			Raw:        raw,
		}
	}
	return nil
}

// validateDocument checks a JSON document against the schema and returns the
// individual violations. A nil schema validates everything.
func validateDocument(schema *porter.JSONSchema, doc string) []string {
	if schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(porter.NormalizeSchema(schema))
	if err != nil {
		return []string{fmt.Sprintf("schema does not encode: %v", err)}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return []string{fmt.Sprintf("validation failed: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations
}

func reaskPrompt(violation *SchemaViolationError) string {
	return fmt.Sprintf(
		"Your previous reply did not satisfy the required schema: %s. "+
			"Reply again with a single JSON document matching the schema exactly. No prose, no code fences.",
		strings.Join(violation.Violations, "; "))
}

// extractJSONDocument returns the first balanced JSON object or array in the
// text. The scanner is string-aware, so braces inside JSON strings do not
// affect nesting; code fences need no special handling because scanning
// starts at the first structural delimiter.
func extractJSONDocument(text string) (string, bool) {
	start := -1
	for i, ch := range text {
		if ch == '{' || ch == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
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
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}
