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
package observability

// Standard span names for consistency across the pipeline.
// Use these constants instead of hardcoding strings.
const (
	// Run spans
	SpanPlannerRun    = "planner.run"
	SpanPipelineStage = "pipeline.stage"
	SpanRouteDecision = "router.decide"

	// Query analysis spans
	SpanIntentClassify = "intent.classify"
	SpanFieldExtract   = "fields.extract"

	// LLM spans
	SpanLLMCompletion = "llm.completion"
	SpanLLMTokenize   = "llm.tokenize" // #nosec G101 -- not a credential, just span name

	// Tool (porter) spans
	SpanToolExecute  = "tool.execute"
	SpanToolValidate = "tool.validate"

	// Prompt spans
	SpanPromptRender = "prompt.render"

	// Persistence spans
	SpanRunPersist = "run.persist"
)

// Standard metric names for consistency.
const (
	// Run metrics
	MetricPlannerRuns     = "planner.runs.total"
	MetricRunDurationMs   = "planner.run.duration_ms"
	MetricRegenerations   = "planner.regenerations.total"
	MetricStageDurationMs = "stage.duration_ms"

	// LLM metrics
	MetricLLMCalls        = "llm.calls.total"
	MetricLLMLatencyMs    = "llm.latency_ms"
	MetricLLMTokensInput  = "llm.tokens.input"  // #nosec G101 -- not a credential, just metric name
	MetricLLMTokensOutput = "llm.tokens.output" // #nosec G101 -- not a credential, just metric name
	MetricLLMCost         = "llm.cost"
	MetricLLMErrors       = "llm.errors.total"

	// Tool metrics
	MetricToolExecutions = "tool.executions.total"
	MetricToolDurationMs = "tool.duration_ms"
	MetricToolErrors     = "tool.errors.total"
)

// Standard attribute names for consistency.
// Use these constants for span and event attributes.
const (
	// Run context
	AttrRunID   = "run.id"
	AttrTraceID = "trace.id"
	AttrSpanID  = "span.id"

	// Pipeline attributes
	AttrStage       = "stage"
	AttrIntent      = "intent"
	AttrRegenTarget = "regen.target"
	AttrEndReason   = "end.reason"

	// LLM attributes
	AttrLLMProvider    = "llm.provider"
	AttrLLMModel       = "llm.model"
	AttrLLMTemperature = "llm.temperature"
	AttrLLMMaxTokens   = "llm.max_tokens" // #nosec G101 -- not a credential, just attribute name

	// Tool attributes
	AttrToolName = "tool.name"
	AttrToolArgs = "tool.args"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
	AttrErrorStack   = "error.stack"

	// Prompt attributes
	AttrPromptKey     = "prompt.key"
	AttrPromptVersion = "prompt.version"
)
