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
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/trip"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// extractFields runs the schema-constrained extraction over the latest user
// message, merges the result into the state, and applies the deterministic
// date rules. A schema violation is a hard failure: nothing is merged.
func (p *Planner) extractFields(ctx context.Context, state *trip.PlanningState, message string) (types.Usage, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanFieldExtract)
	defer p.tracer.EndSpan(span)

	var usage types.Usage
	system, err := p.prompts.GetWithVariables(ctx, prompts.PromptExtract, map[string]interface{}{
		"current_date": p.currentDate(),
	})
	if err != nil {
		return usage, fmt.Errorf("extraction prompt: %w", err)
	}

	human := message
	if len(state.MissingFields) > 0 {
		human += "\n\nFields still missing from earlier turns: " + strings.Join(state.MissingFields, ", ")
	}

	var extraction trip.Extraction
	usage, err = llm.GenerateObject(ctx, p.provider, system, human, extractionSchema(), &extraction)
	if err != nil {
		span.RecordError(err)
		return usage, fmt.Errorf("field extraction: %w", err)
	}

	extraction.Merge(state)
	trip.ApplyDateRules(state, p.now())

	span.SetAttribute("fields.missing", len(state.MissingFields))
	return usage, nil
}

// extractionSchema declares the shape the extractor must reply with. Every
// planning field is optional; missing_fields lists what the extractor still
// needs, most important first.
func extractionSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Travel planning fields found in the user message",
		map[string]*porter.JSONSchema{
			"destination":     porter.NewStringSchema("Destination city or region"),
			"budget":          porter.NewStringSchema("Budget exactly as the user stated it, including any currency words"),
			"native_currency": porter.NewStringSchema("Currency the user thinks in, as an ISO 4217 code when clear"),
			"start_date":      porter.NewStringSchema("Trip start date").WithFormat("date"),
			"end_date":        porter.NewStringSchema("Trip end date").WithFormat("date"),
			"days":            porter.NewStringSchema("Trip length as the user stated it"),
			"group_size":      porter.NewStringSchema("Number of travellers"),
			"activity_preferences": porter.NewStringSchema(
				"Stated interests and activities"),
			"accommodation_type": porter.NewStringSchema(
				"Preferred accommodation style"),
			"dietary_restrictions": porter.NewStringSchema(
				"Dietary needs"),
			"transportation_preferences": porter.NewStringSchema(
				"Transportation preferences"),
			"missing_fields": porter.NewArraySchema(
				"Planning fields still unknown, most important first",
				porter.NewStringSchema("field name")),
		},
		nil,
	)
}
