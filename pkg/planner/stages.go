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

	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/trip"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Capability names the stages bind. The planner addresses tools by name
// only; registration happens in the caller's registry.
const (
	toolSearchHotels    = "search_hotels"
	toolGetWeather      = "get_weather"
	toolFindAttractions = "find_attractions"
	toolConvertCurrency = "convert_currency"
	toolCalculator      = "calculator"
	toolWebSearch       = "web_search"
)

// synthesisNudge closes a tool loop that hit its round limit.
const synthesisNudge = "No more tool calls are available. Answer now from " +
	"the results gathered above, following your output format."

// runStage dispatches one pipeline stage against the state.
func (p *Planner) runStage(ctx context.Context, state *trip.PlanningState, stage Stage, regen bool) (types.Usage, []string, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanPipelineStage,
		observability.WithAttribute(observability.AttrStage, string(stage)))
	defer p.tracer.EndSpan(span)

	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	var (
		usage    types.Usage
		warnings []string
		err      error
	)
	switch stage {
	case StageHotel:
		usage, warnings, err = p.hotelStage(ctx, state)
	case StageWeather:
		usage, warnings, err = p.weatherStage(ctx, state)
	case StageAttractions:
		usage, warnings, err = p.attractionsStage(ctx, state, regen)
	case StageBudget:
		usage, warnings, err = p.budgetStage(ctx, state)
	case StageItinerary:
		usage, err = p.itineraryStage(ctx, state)
	case StageSummary:
		usage, err = p.summaryStage(ctx, state)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		span.RecordError(err)
	}
	return usage, warnings, err
}

// hotelStage asks the accommodation scout for offers and replaces the
// state's hotel list wholesale. Unparseable offers degrade to an empty
// list, never to a failed run.
func (p *Planner) hotelStage(ctx context.Context, state *trip.PlanningState) (types.Usage, []string, error) {
	system, err := p.stagePrompt(ctx, prompts.PromptHotel)
	if err != nil {
		return types.Usage{}, nil, err
	}

	turn, err := p.agentLoop(ctx, StageHotel, system, hotelBrief(state), stageTools(StageHotel, state, false))
	if err != nil {
		return types.Usage{}, nil, err
	}

	raw := llm.SanitizeContent(turn.response)
	offers, perr := trip.ParseHotelOffers(raw)
	if perr != nil {
		p.logger.Warn("hotel stage reply did not parse as offers",
			zap.Error(perr),
			zap.String("content", raw))
		turn.warnings = append(turn.warnings, "hotel: offers did not parse, continuing with none")
		offers = []trip.HotelOffer{}
	}
	state.Hotels = offers
	return turn.usage, turn.warnings, nil
}

// weatherStage assigns the briefer's first text block to the state.
func (p *Planner) weatherStage(ctx context.Context, state *trip.PlanningState) (types.Usage, []string, error) {
	system, err := p.stagePrompt(ctx, prompts.PromptWeather)
	if err != nil {
		return types.Usage{}, nil, err
	}

	turn, err := p.agentLoop(ctx, StageWeather, system, weatherBrief(state), stageTools(StageWeather, state, false))
	if err != nil {
		return types.Usage{}, nil, err
	}

	state.Weather = firstTextBlock(turn.response)
	return turn.usage, turn.warnings, nil
}

// attractionsStage assigns the guide's sanitized reply to the state. On a
// regeneration pass the guide may also search the web.
func (p *Planner) attractionsStage(ctx context.Context, state *trip.PlanningState, regen bool) (types.Usage, []string, error) {
	system, err := p.stagePrompt(ctx, prompts.PromptAttractions)
	if err != nil {
		return types.Usage{}, nil, err
	}

	turn, err := p.agentLoop(ctx, StageAttractions, system, attractionsBrief(state), stageTools(StageAttractions, state, regen))
	if err != nil {
		return types.Usage{}, nil, err
	}

	state.Attractions = llm.SanitizeContent(turn.response)
	return turn.usage, turn.warnings, nil
}

// budgetStage assigns the analyst's sanitized reply to calculator_result
// and keeps any conversion rates the analyst fetched on the way.
func (p *Planner) budgetStage(ctx context.Context, state *trip.PlanningState) (types.Usage, []string, error) {
	system, err := p.stagePrompt(ctx, prompts.PromptBudget)
	if err != nil {
		return types.Usage{}, nil, err
	}

	turn, err := p.agentLoop(ctx, StageBudget, system, budgetBrief(state), stageTools(StageBudget, state, false))
	if err != nil {
		return types.Usage{}, nil, err
	}

	if rates := currencyObservations(turn.messages); rates != "" {
		state.CurrencyRates = rates
	}
	state.CalculatorResult = llm.SanitizeContent(turn.response)
	return turn.usage, turn.warnings, nil
}

// stagePrompt fetches a stage's system prompt with the run date bound.
func (p *Planner) stagePrompt(ctx context.Context, name string) (string, error) {
	system, err := p.prompts.GetWithVariables(ctx, name, map[string]interface{}{
		"current_date": p.currentDate(),
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt: %w", name, err)
	}
	return system, nil
}

// stageTools returns the capability subset a stage may call. Bindings are
// fixed except for two widenings: attractions gains web search on a
// regeneration pass, and budget gains it when the state holds no cost data.
func stageTools(stage Stage, state *trip.PlanningState, regen bool) []string {
	switch stage {
	case StageHotel:
		return []string{toolSearchHotels}
	case StageWeather:
		return []string{toolGetWeather}
	case StageAttractions:
		names := []string{toolFindAttractions}
		if regen {
			names = append(names, toolWebSearch)
		}
		return names
	case StageBudget:
		names := []string{toolCalculator, toolConvertCurrency}
		if stateLacksCosts(state) {
			names = append(names, toolWebSearch)
		}
		return names
	}
	return nil
}

// stateLacksCosts reports whether the budget stage would work without a
// single concrete number: the user stated no budget, or no hotel offer
// carries a price.
func stateLacksCosts(state *trip.PlanningState) bool {
	if strings.TrimSpace(state.BudgetValue()) == "" {
		return true
	}
	for _, offer := range state.Hotels {
		if offer.PricePerNight != nil {
			return false
		}
	}
	return true
}

// agentTurn captures one stage's bounded tool conversation.
type agentTurn struct {
	response *types.LLMResponse
	messages []types.Message
	usage    types.Usage
	warnings []string
}

// agentLoop runs one stage's conversation: call the provider with the
// stage's tool subset; while the reply carries tool calls, append the
// assistant message, execute each call, append its result as a tool-role
// message, and call again. Tool failures are narrated back to the model as
// structured results, never surfaced as Go errors. When the round limit is
// hit with the model still asking for tools, one final call without any
// forces a text answer.
func (p *Planner) agentLoop(ctx context.Context, stage Stage, system, human string, toolNames []string) (*agentTurn, error) {
	turn := &agentTurn{}
	tools := p.registry.Subset(toolNames...)
	allowed := make(map[string]bool, len(toolNames))
	for _, name := range toolNames {
		allowed[name] = true
	}

	messages := []types.Message{
		types.SystemMessage(system),
		types.UserMessage(human),
	}

	for round := 0; round < p.maxToolRounds; round++ {
		resp, err := p.provider.Chat(ctx, messages, tools)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage, err)
		}
		turn.usage.Add(resp.Usage)
		turn.response = resp

		if len(resp.ToolCalls) == 0 {
			turn.messages = messages
			return turn, nil
		}

		// The assistant message carrying the tool_use blocks must precede
		// the tool results in the conversation.
		messages = append(messages, types.Message{
			Role:          "assistant",
			Content:       resp.JoinedText(),
			ContentBlocks: resp.ContentBlocks,
			ToolCalls:     resp.ToolCalls,
			Timestamp:     p.now(),
		})

		for _, call := range resp.ToolCalls {
			result := p.executeCall(ctx, stage, call, allowed)
			if !result.Success && result.Error != nil {
				turn.warnings = append(turn.warnings,
					fmt.Sprintf("%s: %s: %s", stage, call.Name, result.Error.Message))
			}
			messages = append(messages, types.Message{
				Role:       "tool",
				Content:    formatToolResult(call.Name, result),
				ToolUseID:  call.ID,
				ToolResult: result,
				Timestamp:  p.now(),
			})
		}
	}

	turn.warnings = append(turn.warnings, fmt.Sprintf("%s: tool round limit reached", stage))
	messages = append(messages, types.UserMessage(synthesisNudge))
	resp, err := p.provider.Chat(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", stage, err)
	}
	turn.usage.Add(resp.Usage)
	turn.response = resp
	turn.messages = messages
	return turn, nil
}

// executeCall routes one tool call through the executor, turning calls
// outside the stage's binding and executor-level failures into structured
// error results the model can react to.
func (p *Planner) executeCall(ctx context.Context, stage Stage, call types.ToolCall, allowed map[string]bool) *porter.Result {
	if !allowed[call.Name] {
		return &porter.Result{
			Success: false,
			Error: &porter.Error{
				Code:       porter.CodeInvalidInput,
				Message:    fmt.Sprintf("tool %q is not available during the %s stage", call.Name, stage),
				Suggestion: "Use only the tools provided for this step.",
			},
		}
	}

	result, err := p.executor.Execute(ctx, call.Name, call.Input)
	if err != nil {
		return &porter.Result{
			Success: false,
			Error: &porter.Error{
				Code:       porter.CodeInvalidInput,
				Message:    err.Error(),
				Suggestion: "Use only the tools provided for this step.",
			},
		}
	}
	return result
}

// formatToolResult renders an execution result for the tool-role message.
// Successes carry the data payload as JSON; failures carry a one-line
// account the model can act on.
func formatToolResult(name string, result *porter.Result) string {
	if result.Success {
		raw, err := json.Marshal(result.Data)
		if err != nil {
			return fmt.Sprintf("%v", result.Data)
		}
		return string(raw)
	}
	if result.Error == nil {
		return name + " failed"
	}
	s := fmt.Sprintf("%s failed with %s: %s", name, result.Error.Code, result.Error.Message)
	if result.Error.Suggestion != "" {
		s += " (" + result.Error.Suggestion + ")"
	}
	return s
}

// currencyObservations collects the narrated results of successful currency
// conversions from a stage transcript, so the rates the analyst actually
// used stay on the state.
func currencyObservations(messages []types.Message) string {
	names := make(map[string]string)
	var lines []string
	for _, m := range messages {
		for _, call := range m.ToolCalls {
			names[call.ID] = call.Name
		}
		if m.Role != "tool" || m.ToolResult == nil || !m.ToolResult.Success {
			continue
		}
		if names[m.ToolUseID] != toolConvertCurrency {
			continue
		}
		lines = append(lines, m.Content)
	}
	return strings.Join(lines, "\n")
}

// firstTextBlock returns the response's first non-blank text block, falling
// back to the sanitized content when the provider returned no blocks.
func firstTextBlock(resp *types.LLMResponse) string {
	for _, block := range resp.ContentBlocks {
		if block.Type == types.BlockText && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text)
		}
	}
	return strings.TrimSpace(llm.SanitizeContent(resp))
}
