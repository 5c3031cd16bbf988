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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/trip"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// sep10 pins the extractor's idea of today.
var sep10 = time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

func extractPlanner(t *testing.T, replies ...*types.LLMResponse) (*Planner, *seqProvider) {
	t.Helper()
	p, provider := seqPlanner(t, porter.NewRegistry(), nil, replies...)
	p.now = func() time.Time { return sep10 }
	return p, provider
}

func TestExtractFields_MergesAndAppliesDateRules(t *testing.T) {
	p, provider := extractPlanner(t,
		textResponse(`{"destination":"Lisbon","end_date":"2026-09-20","missing_fields":["start_date","budget"]}`))

	state := trip.NewPlanningState()
	usage, err := p.extractFields(context.Background(), state, "I want to be back from Lisbon by the 20th")
	require.NoError(t, err)
	assert.Equal(t, 30, usage.TotalTokens)

	assert.Equal(t, "Lisbon", state.DestinationValue())
	assert.Equal(t, "2026-09-20", state.EndDateValue())

	// An end without a start anchors the start to today and settles the
	// start_date question.
	assert.Equal(t, "2026-09-10", state.StartDateValue())
	assert.Equal(t, []string{"budget"}, state.MissingFields)

	// The prompt carried the pinned date for relative-date resolution.
	system := provider.calls[0].messages[0].Content
	assert.Contains(t, system, "Today's date is 2026-09-10.")
}

func TestExtractFields_BothBoundsOverwriteDays(t *testing.T) {
	p, _ := extractPlanner(t,
		textResponse(`{"start_date":"2026-09-12","end_date":"2026-09-14","days":"maybe a week"}`))

	state := trip.NewPlanningState()
	_, err := p.extractFields(context.Background(), state, "12th to 14th of September")
	require.NoError(t, err)

	// Two concrete bounds beat whatever the user said about length.
	assert.Equal(t, "3", state.DaysValue())
}

func TestExtractFields_TellsExtractorWhatIsMissing(t *testing.T) {
	p, provider := extractPlanner(t, textResponse(`{}`))

	state := trip.NewPlanningState()
	state.SetMissingFields([]string{"budget", "start_date"})

	_, err := p.extractFields(context.Background(), state, "somewhere warm please")
	require.NoError(t, err)

	human := provider.calls[0].messages[len(provider.calls[0].messages)-1].Content
	assert.Contains(t, human, "somewhere warm please")
	assert.Contains(t, human, "Fields still missing from earlier turns: budget, start_date")

	// An empty extraction reports nothing and clears nothing.
	assert.Equal(t, []string{"budget", "start_date"}, state.MissingFields)
	assert.Nil(t, state.Destination)
}

func TestExtractFields_SchemaViolationIsFatal(t *testing.T) {
	p, provider := extractPlanner(t,
		textResponse("I could not find structured details."),
		textResponse("Still nothing structured, I am afraid."))

	state := trip.NewPlanningState()
	_, err := p.extractFields(context.Background(), state, "plan something nice")
	require.Error(t, err)

	var violation *llm.SchemaViolationError
	require.ErrorAs(t, err, &violation)

	// One corrective re-ask, then the failure surfaces with nothing merged.
	assert.Len(t, provider.calls, 2)
	assert.Nil(t, state.Destination)
	assert.Empty(t, state.MissingFields)
}

func TestExtractFields_RecoversOnReask(t *testing.T) {
	p, provider := extractPlanner(t,
		textResponse("Sure! Here are the details you asked for."),
		textResponse(`{"destination":"Porto","days":"2"}`))

	state := trip.NewPlanningState()
	usage, err := p.extractFields(context.Background(), state, "two days in Porto")
	require.NoError(t, err)

	assert.Len(t, provider.calls, 2)
	assert.Equal(t, "Porto", state.DestinationValue())
	assert.Equal(t, "2", state.DaysValue())
	assert.Equal(t, 60, usage.TotalTokens)
}

func TestExtractionSchema(t *testing.T) {
	schema := extractionSchema()
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema.Type)

	// Every planning field is optional; the extractor reports only what the
	// message answers.
	assert.Empty(t, schema.Required)

	for _, field := range []string{
		"destination", "budget", "native_currency", "start_date", "end_date",
		"days", "group_size", "activity_preferences", "accommodation_type",
		"dietary_restrictions", "transportation_preferences", "missing_fields",
	} {
		assert.Containsf(t, schema.Properties, field, "schema must declare %s", field)
	}

	missing := schema.Properties["missing_fields"]
	require.NotNil(t, missing)
	assert.Equal(t, "array", missing.Type)
	require.NotNil(t, missing.Items)
	assert.Equal(t, "string", missing.Items.Type)

	assert.Equal(t, "date", schema.Properties["start_date"].Format)
}
