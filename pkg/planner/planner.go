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

// Package planner drives the trip-planning pipeline: one mutable planning
// state threaded through intent classification, field extraction, and the
// fixed stage sequence hotel, weather, attractions, budget, itinerary,
// summary.
//
// A run is synchronous. Stages mutate the state in place, one at a time;
// tool-capable stages run a bounded agent loop through the porter executor,
// and tool failures are narrated back to the model rather than unwinding
// the stage. After the summary stage the router scans the summary text for
// a regeneration directive; a valid directive re-enters the named stage and
// re-walks everything downstream, bounded by MaxRegenerations.
package planner

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// Stage identifies one node of the pipeline graph.
type Stage string

const (
	StageQueryAnalyzer Stage = "query_analyzer"
	StageHotel         Stage = "hotel"
	StageWeather       Stage = "weather"
	StageAttractions   Stage = "attractions"
	StageBudget        Stage = "budget"
	StageItinerary     Stage = "itinerary"
	StageSummary       Stage = "summary"
)

// pipelineOrder is the fixed forward walk after query analysis. A
// regeneration jump re-enters at the target and continues through the tail
// of this sequence.
var pipelineOrder = []Stage{
	StageHotel,
	StageWeather,
	StageAttractions,
	StageBudget,
	StageItinerary,
	StageSummary,
}

const (
	// DefaultMaxRegenerations bounds summary-directed jump-backs per run.
	DefaultMaxRegenerations = 3

	// DefaultMaxToolRounds bounds provider round-trips within one stage's
	// agent loop.
	DefaultMaxToolRounds = 4
)

// Planner executes runs against a provider, a prompt registry, and a tool
// registry. It is safe for concurrent runs: all per-run state lives on the
// PlanningState, never on the Planner.
type Planner struct {
	provider types.LLMProvider
	prompts  prompts.Registry
	registry *porter.Registry
	executor *porter.Executor
	tracer   observability.Tracer
	logger   *zap.Logger
	store    RunStore

	maxRegenerations int
	maxToolRounds    int
	stageTimeout     time.Duration

	now func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer attaches a tracer for run, stage, and tool spans.
func WithTracer(tracer observability.Tracer) Option {
	return func(p *Planner) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithRunStore attaches a store that receives a snapshot of every finished
// run. Save failures are logged and never fail the run.
func WithRunStore(store RunStore) Option {
	return func(p *Planner) {
		p.store = store
	}
}

// WithMaxRegenerations overrides the jump-back bound.
func WithMaxRegenerations(n int) Option {
	return func(p *Planner) {
		if n >= 0 {
			p.maxRegenerations = n
		}
	}
}

// WithMaxToolRounds overrides the per-stage tool round bound.
func WithMaxToolRounds(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxToolRounds = n
		}
	}
}

// WithStageTimeout applies a deadline to each stage, zero meaning none.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Planner) {
		if d > 0 {
			p.stageTimeout = d
		}
	}
}

// New creates a planner. The provider, prompt registry, and tool registry
// are required; tools the stages expect (search_hotels, get_weather,
// find_attractions, convert_currency, calculator, web_search) should
// already be registered.
func New(provider types.LLMProvider, promptRegistry prompts.Registry, toolRegistry *porter.Registry, opts ...Option) (*Planner, error) {
	if provider == nil {
		return nil, errors.New("llm provider is required")
	}
	if promptRegistry == nil {
		return nil, errors.New("prompt registry is required")
	}
	if toolRegistry == nil {
		return nil, errors.New("tool registry is required")
	}

	p := &Planner{
		provider:         provider,
		prompts:          promptRegistry,
		registry:         toolRegistry,
		tracer:           observability.NewNoOpTracer(),
		logger:           zap.NewNop(),
		maxRegenerations: DefaultMaxRegenerations,
		maxToolRounds:    DefaultMaxToolRounds,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.executor = porter.NewExecutor(toolRegistry,
		porter.WithExecutorTracer(p.tracer),
		porter.WithExecutorLogger(p.logger),
	)
	return p, nil
}

// currentDate renders the run's idea of today for prompt interpolation.
func (p *Planner) currentDate() string {
	return p.now().UTC().Format("2006-01-02")
}
