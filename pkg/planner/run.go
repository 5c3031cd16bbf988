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
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/trip"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// End reasons recorded on a finished run.
const (
	EndReasonNotTravel         = "not_travel"
	EndReasonFinal             = "final"
	EndReasonRegenerationLimit = "regeneration_limit"
)

// notTravelReply answers out-of-scope requests. The pipeline never starts
// for these.
const notTravelReply = "I plan trips: destinations, places to stay, weather, " +
	"attractions, and budgets. Ask me about an upcoming journey and I can help."

// StageVisit records one pass through a stage.
type StageVisit struct {
	Stage      Stage `json:"stage"`
	DurationMs int64 `json:"duration_ms"`
}

// RunResult is what a finished run hands back. State points at the planning
// state the run mutated, so multi-turn callers can feed it into the next
// PlanWithState call.
type RunResult struct {
	RunID         string              `json:"run_id"`
	Reply         string              `json:"reply"`
	Intent        string              `json:"intent"`
	EndReason     string              `json:"end_reason"`
	Stages        []StageVisit        `json:"stages"`
	Regenerations int                 `json:"regenerations"`
	Usage         types.Usage         `json:"usage"`
	Warnings      []string            `json:"warnings,omitempty"`
	State         *trip.PlanningState `json:"state"`
}

// RunStore persists finished runs. The storage package provides the SQLite
// implementation; saves that fail are logged, never fatal.
type RunStore interface {
	Save(ctx context.Context, run *RunResult, snapshot *trip.Snapshot) error
}

// Plan runs the full pipeline over a fresh planning state.
func (p *Planner) Plan(ctx context.Context, message string) (*RunResult, error) {
	return p.PlanWithState(ctx, trip.NewPlanningState(), message)
}

// PlanWithState runs the pipeline over an existing state, carrying fields
// and history from earlier turns. The state is mutated in place.
func (p *Planner) PlanWithState(ctx context.Context, state *trip.PlanningState, message string) (*RunResult, error) {
	if state == nil {
		state = trip.NewPlanningState()
	}
	runID := uuid.NewString()[:8]
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanPlannerRun,
		observability.WithAttribute(observability.AttrRunID, runID))
	defer p.tracer.EndSpan(span)

	start := time.Now()
	run := &RunResult{RunID: runID, State: state}
	log := p.logger.With(zap.String("run_id", runID))

	state.AppendMessage(types.UserMessage(message))

	intent, usage, err := p.classifyIntent(ctx, message)
	run.Usage.Add(usage)
	if err != nil {
		return nil, err
	}
	run.Intent = intent

	if intent == IntentNotTravel {
		run.EndReason = EndReasonNotTravel
		run.Reply = notTravelReply
		state.AppendMessage(types.Message{Role: "assistant", Content: run.Reply, Timestamp: p.now()})
		span.SetAttribute(observability.AttrEndReason, run.EndReason)
		log.Info("request is not about travel, pipeline skipped")
		p.finishRun(ctx, run, start, log)
		return run, nil
	}

	usage, err = p.extractFields(ctx, state, message)
	run.Usage.Add(usage)
	if err != nil {
		return nil, err
	}

	if err := p.walk(ctx, run, state, StageHotel, false, log); err != nil {
		return nil, err
	}

	for {
		_, rspan := p.tracer.StartSpan(ctx, observability.SpanRouteDecision)
		decision := DecideRoute(state.Summary)
		rspan.SetAttribute("route.reason", decision.Reason)
		p.tracer.EndSpan(rspan)

		if decision.Action == ActionEnd {
			run.EndReason = EndReasonFinal
			break
		}
		if run.Regenerations >= p.maxRegenerations {
			log.Warn("regeneration limit reached, keeping current summary",
				zap.Int("limit", p.maxRegenerations),
				zap.String("target", string(decision.Target)))
			run.Warnings = append(run.Warnings,
				fmt.Sprintf("regeneration limit %d reached, keeping current summary", p.maxRegenerations))
			run.EndReason = EndReasonRegenerationLimit
			break
		}

		run.Regenerations++
		span.SetAttribute(observability.AttrRegenTarget, string(decision.Target))
		log.Info("summary asked for regeneration",
			zap.String("target", string(decision.Target)),
			zap.Int("pass", run.Regenerations))
		if err := p.walk(ctx, run, state, decision.Target, true, log); err != nil {
			return nil, err
		}
	}

	run.Reply = stripVerdict(state.Summary)
	state.AppendMessage(types.Message{Role: "assistant", Content: run.Reply, Timestamp: p.now()})

	span.SetAttribute(observability.AttrEndReason, run.EndReason)
	p.finishRun(ctx, run, start, log)
	return run, nil
}

// walk runs the pipeline from a stage through summary, accumulating stage
// visits, usage, and warnings on the run.
func (p *Planner) walk(ctx context.Context, run *RunResult, state *trip.PlanningState, from Stage, regen bool, log *zap.Logger) error {
	idx := slices.Index(pipelineOrder, from)
	if idx < 0 {
		return fmt.Errorf("stage %q is not on the pipeline", from)
	}

	for _, stage := range pipelineOrder[idx:] {
		stageStart := time.Now()
		usage, warnings, err := p.runStage(ctx, state, stage, regen)
		durMs := time.Since(stageStart).Milliseconds()

		run.Usage.Add(usage)
		run.Warnings = append(run.Warnings, warnings...)
		run.Stages = append(run.Stages, StageVisit{Stage: stage, DurationMs: durMs})
		p.tracer.RecordMetric(observability.MetricStageDurationMs, float64(durMs),
			map[string]string{observability.AttrStage: string(stage)})
		if err != nil {
			return err
		}
		log.Debug("stage complete",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", durMs))
	}
	return nil
}

// finishRun records run metrics and hands the snapshot to the store.
func (p *Planner) finishRun(ctx context.Context, run *RunResult, start time.Time, log *zap.Logger) {
	durMs := time.Since(start).Milliseconds()
	p.tracer.RecordMetric(observability.MetricPlannerRuns, 1,
		map[string]string{observability.AttrEndReason: run.EndReason})
	p.tracer.RecordMetric(observability.MetricRunDurationMs, float64(durMs), nil)
	p.tracer.RecordMetric(observability.MetricRegenerations, float64(run.Regenerations), nil)

	log.Info("run finished",
		zap.String("end_reason", run.EndReason),
		zap.Int("regenerations", run.Regenerations),
		zap.Int("stages", len(run.Stages)),
		zap.Int64("duration_ms", durMs),
		zap.Int("total_tokens", run.Usage.TotalTokens))

	if p.store == nil {
		return
	}
	pctx, pspan := p.tracer.StartSpan(ctx, observability.SpanRunPersist)
	defer p.tracer.EndSpan(pspan)
	if err := p.store.Save(pctx, run, run.State.Snapshot()); err != nil {
		pspan.RecordError(err)
		log.Warn("run snapshot not saved", zap.Error(err))
	}
}
