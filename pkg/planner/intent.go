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
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Intent tokens the classifier is allowed to emit.
const (
	IntentTravel    = "TRAVEL"
	IntentNotTravel = "NOT_TRAVEL"
)

// IntentError reports a classifier reply outside the two-token contract.
// It is fatal for the run; the classifier must never silently default.
type IntentError struct {
	Raw string
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("intent classifier replied %q, want %s or %s", e.Raw, IntentTravel, IntentNotTravel)
}

// classifyIntent runs the two-token classification over the latest user
// message.
func (p *Planner) classifyIntent(ctx context.Context, message string) (string, types.Usage, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanIntentClassify)
	defer p.tracer.EndSpan(span)

	var usage types.Usage
	system, err := p.prompts.Get(ctx, prompts.PromptIntent)
	if err != nil {
		return "", usage, fmt.Errorf("intent prompt: %w", err)
	}

	reply, usage, err := llm.GenerateText(ctx, p.provider, system, message)
	if err != nil {
		return "", usage, fmt.Errorf("intent classification: %w", err)
	}

	intent := normalizeIntent(reply)
	switch intent {
	case IntentTravel, IntentNotTravel:
		span.SetAttribute(observability.AttrIntent, intent)
		return intent, usage, nil
	}

	err = &IntentError{Raw: strings.TrimSpace(reply)}
	span.RecordError(err)
	return "", usage, err
}

// normalizeIntent strips markdown fences and whitespace and upper-cases the
// reply. It does not repair anything beyond that; a decorated or hedged
// answer stays invalid.
func normalizeIntent(reply string) string {
	s := strings.ReplaceAll(reply, "`", "")
	// A fenced reply may carry a language tag on its own line; the token is
	// the last non-empty line either way.
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" {
			return strings.ToUpper(t)
		}
	}
	return ""
}
