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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/trip"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// itineraryStage writes the day-by-day plan from everything the run has
// gathered. No tools; one generation call.
func (p *Planner) itineraryStage(ctx context.Context, state *trip.PlanningState) (types.Usage, error) {
	system, err := p.prompts.Get(ctx, prompts.PromptItinerary)
	if err != nil {
		return types.Usage{}, fmt.Errorf("itinerary prompt: %w", err)
	}

	text, usage, err := llm.GenerateText(ctx, p.provider, system, tripBrief(state))
	if err != nil {
		return usage, fmt.Errorf("itinerary stage: %w", err)
	}
	state.Itinerary = text
	return usage, nil
}

// summaryStage writes the traveller-facing summary over the curated subset
// of the state, then appends the itinerary verbatim as a trailing section.
// The generated text ends with the editor's verdict line, which the router
// reads afterwards.
func (p *Planner) summaryStage(ctx context.Context, state *trip.PlanningState) (types.Usage, error) {
	system, err := p.prompts.Get(ctx, prompts.PromptSummary)
	if err != nil {
		return types.Usage{}, fmt.Errorf("summary prompt: %w", err)
	}

	text, usage, err := llm.GenerateText(ctx, p.provider, system, summaryBrief(state))
	if err != nil {
		return usage, fmt.Errorf("summary stage: %w", err)
	}

	state.Summary = text
	if state.Itinerary != "" {
		state.Summary = text + "\n\n" + state.Itinerary
	}
	return usage, nil
}

// briefBuilder renders labelled trip facts for a stage's human message,
// one per line, blanks skipped.
type briefBuilder struct {
	lines []string
}

func (b *briefBuilder) add(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if strings.Contains(value, "\n") {
		b.lines = append(b.lines, label+":\n"+value)
		return
	}
	b.lines = append(b.lines, label+": "+value)
}

func (b *briefBuilder) String() string {
	if len(b.lines) == 0 {
		return "(no trip details known yet)"
	}
	return strings.Join(b.lines, "\n")
}

func hotelBrief(state *trip.PlanningState) string {
	var b briefBuilder
	b.add("Destination", state.DestinationValue())
	b.add("Check-in", state.StartDateValue())
	b.add("Check-out", state.EndDateValue())
	b.add("Days", state.DaysValue())
	b.add("Group size", state.GroupSize)
	b.add("Accommodation type", state.AccommodationTypeValue())
	b.add("Budget", state.BudgetValue())
	return b.String()
}

func weatherBrief(state *trip.PlanningState) string {
	var b briefBuilder
	b.add("Destination", state.DestinationValue())
	b.add("Start date", state.StartDateValue())
	b.add("End date", state.EndDateValue())
	b.add("Days", state.DaysValue())
	return b.String()
}

func attractionsBrief(state *trip.PlanningState) string {
	var b briefBuilder
	b.add("Destination", state.DestinationValue())
	b.add("Days", state.DaysValue())
	b.add("Group size", state.GroupSize)
	b.add("Activity preferences", state.ActivityPreferencesValue())
	b.add("Dietary restrictions", state.DietaryRestrictionsValue())
	return b.String()
}

func budgetBrief(state *trip.PlanningState) string {
	var b briefBuilder
	b.add("Destination", state.DestinationValue())
	b.add("Budget", state.BudgetValue())
	b.add("Native currency", state.NativeCurrencyValue())
	b.add("Group size", state.GroupSize)
	b.add("Start date", state.StartDateValue())
	b.add("End date", state.EndDateValue())
	b.add("Days", state.DaysValue())
	b.add("Hotel options", hotelsJSON(state.Hotels))
	b.add("Attractions", state.Attractions)
	return b.String()
}

// tripBrief binds the whole state for the itinerary writer.
func tripBrief(state *trip.PlanningState) string {
	var b briefBuilder
	b.add("Destination", state.DestinationValue())
	b.add("Start date", state.StartDateValue())
	b.add("End date", state.EndDateValue())
	b.add("Days", state.DaysValue())
	b.add("Group size", state.GroupSize)
	b.add("Budget", state.BudgetValue())
	b.add("Native currency", state.NativeCurrencyValue())
	b.add("Activity preferences", state.ActivityPreferencesValue())
	b.add("Accommodation type", state.AccommodationTypeValue())
	b.add("Dietary restrictions", state.DietaryRestrictionsValue())
	b.add("Transportation preferences", state.TransportationPreferencesValue())
	b.add("Hotel options", hotelsJSON(state.Hotels))
	b.add("Weather outlook", state.Weather)
	b.add("Attractions", state.Attractions)
	b.add("Budget figures", state.CalculatorResult)
	return b.String()
}

// summaryBrief binds the curated subset the editor reviews.
func summaryBrief(state *trip.PlanningState) string {
	var b briefBuilder
	b.add("Destination", state.DestinationValue())
	b.add("Days", state.DaysValue())
	b.add("Attractions", state.Attractions)
	b.add("Hotel options", hotelsJSON(state.Hotels))
	b.add("Weather outlook", state.Weather)
	b.add("Itinerary", state.Itinerary)
	b.add("Budget figures", state.CalculatorResult)
	return b.String()
}

func hotelsJSON(offers []trip.HotelOffer) string {
	if len(offers) == 0 {
		return ""
	}
	raw, err := json.Marshal(offers)
	if err != nil {
		return ""
	}
	return string(raw)
}
