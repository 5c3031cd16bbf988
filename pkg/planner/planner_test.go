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
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/trip"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// promptMarkers identify which pipeline prompt a system message carries, so
// scripted replies survive reordering of provider calls.
var promptMarkers = map[string]string{
	"intent":      "intent gate",
	"extract":     "extract trip planning details",
	"hotel":       "accommodation scout",
	"weather":     "weather briefer",
	"attractions": "local guide",
	"budget":      "budget analyst",
	"itinerary":   "itinerary writer",
	"summary":     "supervising editor",
}

type replyFunc func(call int, messages []types.Message) *types.LLMResponse

type providerCall struct {
	prompt   string
	messages []types.Message
	tools    []string
}

// scriptedProvider routes each chat call to the handler registered for the
// prompt carried in the system message, recording every call.
type scriptedProvider struct {
	mu      sync.Mutex
	replies map[string]replyFunc
	calls   []providerCall
	counts  map[string]int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		replies: make(map[string]replyFunc),
		counts:  make(map[string]int),
	}
}

func (s *scriptedProvider) on(prompt string, fn replyFunc) *scriptedProvider {
	s.replies[prompt] = fn
	return s
}

func (s *scriptedProvider) reply(prompt, text string) *scriptedProvider {
	return s.on(prompt, func(int, []types.Message) *types.LLMResponse {
		return textResponse(text)
	})
}

func (s *scriptedProvider) Chat(_ context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt := "unknown"
	if len(messages) > 0 {
		for name, marker := range promptMarkers {
			if strings.Contains(messages[0].Content, marker) {
				prompt = name
				break
			}
		}
	}

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
	}
	s.calls = append(s.calls, providerCall{prompt: prompt, messages: messages, tools: names})

	fn, ok := s.replies[prompt]
	if !ok {
		return nil, fmt.Errorf("no scripted reply for prompt %q", prompt)
	}
	n := s.counts[prompt]
	s.counts[prompt]++
	return fn(n, messages), nil
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "scripted-test" }

func (s *scriptedProvider) callsFor(prompt string) []providerCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []providerCall
	for _, c := range s.calls {
		if c.prompt == prompt {
			out = append(out, c)
		}
	}
	return out
}

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// seqProvider pops canned responses in order; used for direct stage tests
// where routing by prompt is overkill.
type seqProvider struct {
	mu        sync.Mutex
	responses []*types.LLMResponse
	calls     []providerCall
}

func (s *seqProvider) Chat(_ context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
	}
	s.calls = append(s.calls, providerCall{messages: messages, tools: names})

	if len(s.responses) == 0 {
		return nil, errors.New("scripted responses exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *seqProvider) Name() string  { return "seq" }
func (s *seqProvider) Model() string { return "seq-test" }

func textResponse(text string) *types.LLMResponse {
	return &types.LLMResponse{
		Content:       text,
		ContentBlocks: []types.ContentBlock{{Type: types.BlockText, Text: text}},
		StopReason:    "end_turn",
		Usage:         types.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
	}
}

func toolCallResponse(id, name string, input map[string]interface{}) *types.LLMResponse {
	return &types.LLMResponse{
		ToolCalls: []types.ToolCall{{ID: id, Name: name, Input: input}},
		ContentBlocks: []types.ContentBlock{
			{Type: types.BlockToolUse, ID: id, Name: name, Input: input},
		},
		StopReason: "tool_use",
		Usage:      types.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
}

// stubTool is a registrable tool double whose executions are counted.
type stubTool struct {
	name       string
	capability string
	result     *porter.Result
	calls      int
	lastParams map[string]interface{}
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.name + " test double" }
func (s *stubTool) Capability() string  { return s.capability }

func (s *stubTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(s.name+" input", map[string]*porter.JSONSchema{}, nil)
}

func (s *stubTool) Execute(_ context.Context, params map[string]interface{}) (*porter.Result, error) {
	s.calls++
	s.lastParams = params
	if s.result != nil {
		return s.result, nil
	}
	return &porter.Result{Success: true, Data: map[string]interface{}{"ok": true}}, nil
}

// planningTools registers a stub for every capability the stages bind.
func planningTools(reg *porter.Registry) map[string]*stubTool {
	tools := map[string]*stubTool{
		toolSearchHotels:    {name: toolSearchHotels, capability: porter.CapabilityHotels},
		toolGetWeather:      {name: toolGetWeather, capability: porter.CapabilityWeather},
		toolFindAttractions: {name: toolFindAttractions, capability: porter.CapabilityAttractions},
		toolConvertCurrency: {name: toolConvertCurrency, capability: porter.CapabilityCurrency},
		toolCalculator:      {name: toolCalculator, capability: porter.CapabilityArithmetic},
		toolWebSearch:       {name: toolWebSearch, capability: porter.CapabilitySearch},
	}
	for _, tool := range tools {
		reg.Register(tool)
	}
	return tools
}

type capturingStore struct {
	runs      []*RunResult
	snapshots []*trip.Snapshot
	err       error
}

func (c *capturingStore) Save(_ context.Context, run *RunResult, snapshot *trip.Snapshot) error {
	c.runs = append(c.runs, run)
	c.snapshots = append(c.snapshots, snapshot)
	return c.err
}

// parisProvider scripts a complete single-pass run for a three-day Paris
// trip on a 1000 EUR budget.
func parisProvider() *scriptedProvider {
	p := newScriptedProvider()
	p.reply("intent", "TRAVEL")
	p.reply("extract", `{"destination":"Paris","budget":"1000 EUR","native_currency":"EUR","days":"3","activity_preferences":"art and culture","missing_fields":["start_date"]}`)
	p.on("hotel", func(call int, _ []types.Message) *types.LLMResponse {
		if call == 0 {
			return toolCallResponse("tc-hotel-1", toolSearchHotels, map[string]interface{}{"destination": "Paris"})
		}
		return textResponse(`[{"name":"Hotel du Louvre","price_per_night":240,"review_count":1200,"rating":4.5}]`)
	})
	p.reply("weather", "Mild and bright, highs near 21C. Pack a light jacket.")
	p.reply("attractions", "Musee d'Orsay for the impressionists; the Marais for galleries.")
	p.reply("budget", "Hotel 720 EUR, food 150 EUR, museums 60 EUR. Total 930 EUR of 1000 EUR.")
	p.reply("itinerary", "Day 1: Louvre morning, Tuileries afternoon.\nDay 2: Orsay and the Marais.\nDay 3: Montmartre.")
	p.reply("summary", "Three days of art in Paris for under 1000 EUR, staying at Hotel du Louvre.\nFINAL")
	return p
}

func visitedStages(run *RunResult) []Stage {
	out := make([]Stage, 0, len(run.Stages))
	for _, visit := range run.Stages {
		out = append(out, visit.Stage)
	}
	return out
}

func TestPlan_SinglePass(t *testing.T) {
	provider := parisProvider()
	registry := porter.NewRegistry()
	tools := planningTools(registry)
	tracer := observability.NewMockTracer()
	store := &capturingStore{}

	p, err := New(provider, prompts.NewStaticRegistry(), registry,
		WithTracer(tracer),
		WithRunStore(store),
	)
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "3 days in Paris for art and culture, budget 1000 EUR")
	require.NoError(t, err)

	assert.Equal(t, IntentTravel, run.Intent)
	assert.Equal(t, EndReasonFinal, run.EndReason)
	assert.Equal(t, 0, run.Regenerations)
	assert.Equal(t, pipelineOrder, visitedStages(run))

	state := run.State
	assert.Equal(t, "Paris", state.DestinationValue())
	assert.Equal(t, "1000 EUR", state.BudgetValue())
	assert.Equal(t, "3", state.DaysValue())
	require.Len(t, state.Hotels, 1)
	assert.Equal(t, "Hotel du Louvre", state.Hotels[0].Name)
	require.NotNil(t, state.Hotels[0].PricePerNight)
	assert.InDelta(t, 240, *state.Hotels[0].PricePerNight, 0.01)
	assert.Contains(t, state.Weather, "light jacket")
	assert.Contains(t, state.Attractions, "Musee d'Orsay")
	assert.Contains(t, state.CalculatorResult, "930 EUR")
	assert.Contains(t, state.Itinerary, "Day 3: Montmartre.")

	// The itinerary rides behind the generated summary, verdict included.
	assert.Equal(t,
		"Three days of art in Paris for under 1000 EUR, staying at Hotel du Louvre.\nFINAL\n\n"+
			"Day 1: Louvre morning, Tuileries afternoon.\nDay 2: Orsay and the Marais.\nDay 3: Montmartre.",
		state.Summary)

	// The presented reply drops the verdict line but keeps everything else.
	assert.NotContains(t, run.Reply, "FINAL")
	assert.Contains(t, run.Reply, "Three days of art in Paris")
	assert.Contains(t, run.Reply, "Day 3: Montmartre.")

	// One user message in, one assistant reply out.
	require.Len(t, state.MessageHistory, 2)
	assert.Equal(t, "user", state.MessageHistory[0].Role)
	assert.Equal(t, "assistant", state.MessageHistory[1].Role)
	assert.Equal(t, run.Reply, state.MessageHistory[1].Content)

	// Only the hotel stage reached for a tool.
	assert.Equal(t, 1, tools[toolSearchHotels].calls)
	assert.Equal(t, "Paris", tools[toolSearchHotels].lastParams["destination"])
	assert.Equal(t, 0, tools[toolGetWeather].calls)
	assert.Equal(t, 0, tools[toolWebSearch].calls)

	// Stage tool bindings as offered to the provider.
	hotelCalls := provider.callsFor("hotel")
	require.Len(t, hotelCalls, 2)
	assert.Equal(t, []string{toolSearchHotels}, hotelCalls[0].tools)
	assert.Equal(t, []string{toolGetWeather}, provider.callsFor("weather")[0].tools)
	assert.Equal(t, []string{toolFindAttractions}, provider.callsFor("attractions")[0].tools)
	assert.Equal(t, []string{toolCalculator, toolConvertCurrency}, provider.callsFor("budget")[0].tools)
	assert.Empty(t, provider.callsFor("itinerary")[0].tools)
	assert.Empty(t, provider.callsFor("summary")[0].tools)

	// Usage accumulates across every provider call of the run.
	assert.Equal(t, 255, run.Usage.TotalTokens)

	// Spans and metrics for the whole run.
	runSpan := tracer.GetSpanByName(observability.SpanPlannerRun)
	require.NotNil(t, runSpan)
	assert.Equal(t, run.RunID, runSpan.Attributes[observability.AttrRunID])
	assert.Equal(t, EndReasonFinal, runSpan.Attributes[observability.AttrEndReason])
	assert.Len(t, tracer.GetSpansByName(observability.SpanPipelineStage), 6)
	assert.Len(t, tracer.GetSpansByName(observability.SpanRouteDecision), 1)
	assert.Equal(t, []float64{1}, tracer.GetMetric(observability.MetricPlannerRuns))
	assert.Len(t, tracer.GetMetric(observability.MetricStageDurationMs), 6)
	assert.Equal(t, []float64{0}, tracer.GetMetric(observability.MetricRegenerations))

	// The finished run reached the store with a snapshot.
	require.Len(t, store.runs, 1)
	assert.Same(t, run, store.runs[0])
	require.Len(t, store.snapshots, 1)
	assert.Equal(t, "Paris", store.snapshots[0].Destination)
	assert.Equal(t, run.State.Summary, store.snapshots[0].Summary)
}

func TestPlan_NotTravelEndsBeforePipeline(t *testing.T) {
	provider := newScriptedProvider()
	provider.reply("intent", "NOT_TRAVEL")

	registry := porter.NewRegistry()
	tools := planningTools(registry)
	tracer := observability.NewMockTracer()
	store := &capturingStore{}

	p, err := New(provider, prompts.NewStaticRegistry(), registry,
		WithTracer(tracer),
		WithRunStore(store),
	)
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "write me a sorting algorithm in Go")
	require.NoError(t, err)

	assert.Equal(t, IntentNotTravel, run.Intent)
	assert.Equal(t, EndReasonNotTravel, run.EndReason)
	assert.Equal(t, notTravelReply, run.Reply)
	assert.Empty(t, run.Stages)
	assert.Equal(t, 0, run.Regenerations)

	// Exactly one model call, no extraction, no tools, no stage spans.
	assert.Equal(t, 1, provider.callCount())
	for name, tool := range tools {
		assert.Zerof(t, tool.calls, "tool %s must not run", name)
	}
	assert.Nil(t, run.State.Destination)
	assert.Nil(t, tracer.GetSpanByName(observability.SpanFieldExtract))
	assert.Empty(t, tracer.GetSpansByName(observability.SpanPipelineStage))

	// The short answer still lands in history and in the store.
	require.Len(t, run.State.MessageHistory, 2)
	assert.Equal(t, notTravelReply, run.State.MessageHistory[1].Content)
	require.Len(t, store.runs, 1)
	assert.Equal(t, EndReasonNotTravel, store.runs[0].EndReason)
}

func TestPlan_RegenerationRewalksDownstream(t *testing.T) {
	provider := parisProvider()
	provider.on("attractions", func(call int, _ []types.Message) *types.LLMResponse {
		if call == 0 {
			return textResponse("Some museums, probably.")
		}
		return textResponse("Musee d'Orsay (book ahead), Orangerie, and the Marais galleries.")
	})
	provider.on("summary", func(call int, _ []types.Message) *types.LLMResponse {
		if call == 0 {
			return textResponse("The sights list is too vague to plan around.\nREGENERATE: attractions")
		}
		return textResponse("Three days of art in Paris, now with concrete sights.\nFINAL")
	})

	registry := porter.NewRegistry()
	planningTools(registry)
	tracer := observability.NewMockTracer()

	p, err := New(provider, prompts.NewStaticRegistry(), registry, WithTracer(tracer))
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "3 days in Paris for art and culture, budget 1000 EUR")
	require.NoError(t, err)

	assert.Equal(t, EndReasonFinal, run.EndReason)
	assert.Equal(t, 1, run.Regenerations)

	// Upstream stages run once; the target and everything after it twice.
	assert.Equal(t, []Stage{
		StageHotel, StageWeather, StageAttractions, StageBudget, StageItinerary, StageSummary,
		StageAttractions, StageBudget, StageItinerary, StageSummary,
	}, visitedStages(run))

	// The re-entered guide gains web search; the first pass did not have it.
	attractionCalls := provider.callsFor("attractions")
	require.Len(t, attractionCalls, 2)
	assert.Equal(t, []string{toolFindAttractions}, attractionCalls[0].tools)
	assert.Equal(t, []string{toolFindAttractions, toolWebSearch}, attractionCalls[1].tools)

	assert.Equal(t, "Musee d'Orsay (book ahead), Orangerie, and the Marais galleries.", run.State.Attractions)
	assert.Contains(t, run.Reply, "now with concrete sights")
	assert.NotContains(t, run.Reply, "REGENERATE")

	runSpan := tracer.GetSpanByName(observability.SpanPlannerRun)
	require.NotNil(t, runSpan)
	assert.Equal(t, "attractions", runSpan.Attributes[observability.AttrRegenTarget])
	assert.Equal(t, []float64{1}, tracer.GetMetric(observability.MetricRegenerations))
}

func TestPlan_RegenerationLimit(t *testing.T) {
	provider := parisProvider()
	provider.reply("summary", "The numbers do not add up.\nREGENERATE: budget")

	registry := porter.NewRegistry()
	planningTools(registry)

	p, err := New(provider, prompts.NewStaticRegistry(), registry, WithMaxRegenerations(2))
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "3 days in Paris for art and culture, budget 1000 EUR")
	require.NoError(t, err)

	assert.Equal(t, EndReasonRegenerationLimit, run.EndReason)
	assert.Equal(t, 2, run.Regenerations)

	// Initial walk plus two budget-to-summary regenerations.
	counts := make(map[Stage]int)
	for _, stage := range visitedStages(run) {
		counts[stage]++
	}
	assert.Equal(t, 1, counts[StageHotel])
	assert.Equal(t, 1, counts[StageAttractions])
	assert.Equal(t, 3, counts[StageBudget])
	assert.Equal(t, 3, counts[StageSummary])

	require.NotEmpty(t, run.Warnings)
	assert.Contains(t, run.Warnings[len(run.Warnings)-1], "regeneration limit 2 reached")

	// The run still answers with the last summary, verdict stripped.
	assert.Contains(t, run.Reply, "The numbers do not add up.")
	assert.NotContains(t, run.Reply, "REGENERATE")
}

func TestPlan_ZeroRegenerationAllowance(t *testing.T) {
	provider := parisProvider()
	provider.reply("summary", "Hotels look wrong.\nREGENERATE: hotel")

	registry := porter.NewRegistry()
	planningTools(registry)

	p, err := New(provider, prompts.NewStaticRegistry(), registry, WithMaxRegenerations(0))
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "3 days in Paris, budget 1000 EUR")
	require.NoError(t, err)

	assert.Equal(t, EndReasonRegenerationLimit, run.EndReason)
	assert.Equal(t, 0, run.Regenerations)
	assert.Equal(t, pipelineOrder, visitedStages(run))
}

func TestPlan_IntentContractViolationIsFatal(t *testing.T) {
	provider := newScriptedProvider()
	provider.reply("intent", "Sounds fun! TRAVEL")

	registry := porter.NewRegistry()
	planningTools(registry)

	p, err := New(provider, prompts.NewStaticRegistry(), registry)
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "plan me a weekend in Rome")
	require.Error(t, err)
	assert.Nil(t, run)

	var intentErr *IntentError
	require.ErrorAs(t, err, &intentErr)
	assert.Equal(t, "Sounds fun! TRAVEL", intentErr.Raw)
	assert.Equal(t, 1, provider.callCount())
}

func TestPlan_StoreFailureDoesNotFailRun(t *testing.T) {
	provider := parisProvider()
	registry := porter.NewRegistry()
	planningTools(registry)
	store := &capturingStore{err: errors.New("disk full")}

	p, err := New(provider, prompts.NewStaticRegistry(), registry, WithRunStore(store))
	require.NoError(t, err)

	run, err := p.Plan(context.Background(), "3 days in Paris, budget 1000 EUR")
	require.NoError(t, err)
	assert.Equal(t, EndReasonFinal, run.EndReason)
	require.Len(t, store.runs, 1)
}

func TestPlanWithState_CarriesEarlierTurns(t *testing.T) {
	provider := parisProvider()
	provider.reply("extract", `{"start_date":"2026-09-12","end_date":"2026-09-14","missing_fields":[]}`)

	registry := porter.NewRegistry()
	planningTools(registry)

	p, err := New(provider, prompts.NewStaticRegistry(), registry)
	require.NoError(t, err)

	state := trip.NewPlanningState()
	destination := "Paris"
	state.Destination = &destination
	state.SetMissingFields([]string{"start_date"})

	run, err := p.PlanWithState(context.Background(), state, "I'll go from the 12th to the 14th of September 2026")
	require.NoError(t, err)

	// The extractor was told what was still missing.
	extractCalls := provider.callsFor("extract")
	require.Len(t, extractCalls, 1)
	human := extractCalls[0].messages[len(extractCalls[0].messages)-1].Content
	assert.Contains(t, human, "Fields still missing from earlier turns: start_date")

	// New fields landed without clobbering the earlier turn's destination.
	assert.Equal(t, "Paris", state.DestinationValue())
	assert.Equal(t, "2026-09-12", state.StartDateValue())
	assert.Equal(t, "2026-09-14", state.EndDateValue())
	assert.Equal(t, "3", state.DaysValue())
	assert.Empty(t, state.MissingFields)
	assert.Equal(t, EndReasonFinal, run.EndReason)
}

func TestNew_RequiredDependencies(t *testing.T) {
	provider := newScriptedProvider()
	registry := porter.NewRegistry()
	promptReg := prompts.NewStaticRegistry()

	_, err := New(nil, promptReg, registry)
	assert.EqualError(t, err, "llm provider is required")

	_, err = New(provider, nil, registry)
	assert.EqualError(t, err, "prompt registry is required")

	_, err = New(provider, promptReg, nil)
	assert.EqualError(t, err, "tool registry is required")
}
