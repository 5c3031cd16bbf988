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
package porter

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/observability"
)

// ExecutorConfig controls timeouts and retry behavior for tool execution.
type ExecutorConfig struct {
	// Timeout is the per-attempt execution deadline.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after a retryable
	// failure. Zero disables retries.
	MaxRetries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultExecutorConfig returns the standard execution settings.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Executor runs tools from a registry with parameter normalization, schema
// validation, timing, and bounded retries for retryable failures.
type Executor struct {
	registry *Registry
	tracer   observability.Tracer
	logger   *zap.Logger
	config   ExecutorConfig
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorConfig overrides the default timeout and retry settings.
func WithExecutorConfig(cfg ExecutorConfig) ExecutorOption {
	return func(e *Executor) {
		e.config = cfg
	}
}

// WithExecutorTracer attaches a tracer for spans and metrics.
func WithExecutorTracer(tracer observability.Tracer) ExecutorOption {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithExecutorLogger attaches a structured logger.
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor backed by the given registry.
// A nil registry falls back to the global registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	if registry == nil {
		registry = globalRegistry
	}
	e := &Executor{
		registry: registry,
		tracer:   observability.NewNoOpTracer(),
		logger:   zap.NewNop(),
		config:   DefaultExecutorConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the named tool with the given parameters.
//
// Business-level failures (bad input, provider NOT_FOUND, conversion errors)
// come back as a *Result with Success=false and a populated Error. The Go
// error return is reserved for infrastructure problems such as an unknown
// tool name.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanToolExecute,
		observability.WithAttribute(observability.AttrToolName, toolName),
	)
	defer e.tracer.EndSpan(span)

	tool, ok := e.registry.Get(toolName)
	if !ok {
		err := fmt.Errorf("tool not registered: %s", toolName)
		span.RecordError(err)
		return nil, err
	}

	params = normalizeParametersToSchema(params, tool.InputSchema())

	if verr := ValidateInput(tool.InputSchema(), params); verr != nil {
		e.logger.Warn("tool input rejected",
			zap.String("tool", toolName),
			zap.Error(verr))
		span.SetAttribute(observability.AttrErrorMessage, verr.Error())
		return &Result{
			Success: false,
			Error: &Error{
				Code:       CodeInvalidInput,
				Message:    verr.Error(),
				Retryable:  false,
				Suggestion: "check the parameter names and types against the tool schema",
			},
		}, nil
	}

	var result *Result
	for attempt := 0; ; attempt++ {
		result = e.runOnce(ctx, tool, params)
		if result.Success || result.Error == nil || !result.Error.Retryable || attempt >= e.config.MaxRetries {
			break
		}
		e.logger.Debug("retrying tool",
			zap.String("tool", toolName),
			zap.Int("attempt", attempt+1),
			zap.String("error", result.Error.Message))
		select {
		case <-ctx.Done():
			return &Result{
				Success: false,
				Error: &Error{
					Code:    CodeTimeout,
					Message: fmt.Sprintf("canceled while retrying %s: %v", toolName, ctx.Err()),
				},
			}, nil
		case <-time.After(e.config.RetryDelay):
		}
	}

	e.tracer.RecordMetric(observability.MetricToolDurationMs, float64(result.ExecutionTimeMs), map[string]string{
		"tool":    toolName,
		"success": fmt.Sprintf("%t", result.Success),
	})
	if !result.Success && result.Error != nil {
		span.SetAttribute("tool.error_code", result.Error.Code)
		span.SetAttribute(observability.AttrErrorMessage, result.Error.Message)
	}
	span.SetAttribute("tool.duration_ms", result.ExecutionTimeMs)

	return result, nil
}

// runOnce performs a single timed execution attempt.
func (e *Executor) runOnce(ctx context.Context, tool Tool, params map[string]interface{}) *Result {
	execCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := tool.Execute(execCtx, params)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		code := "execution_failed"
		if execCtx.Err() == context.DeadlineExceeded {
			code = CodeTimeout
		}
		result = &Result{
			Success: false,
			Error: &Error{
				Code:      code,
				Message:   err.Error(),
				Retryable: code == CodeTimeout,
			},
		}
	}
	if result == nil {
		// Tools that return (nil, nil) are treated as a silent success.
		result = &Result{Success: true}
	}
	result.ExecutionTimeMs = elapsed
	return result
}

// normalizeParametersToSchema maps parameter keys onto the schema's property
// names. Models frequently emit camelCase where the schema declares
// snake_case; rather than failing validation, remap any key whose normalized
// form matches a declared property. Keys with no match pass through unchanged.
func normalizeParametersToSchema(params map[string]interface{}, schema *JSONSchema) map[string]interface{} {
	if schema == nil || len(schema.Properties) == 0 || len(params) == 0 {
		return params
	}

	canonical := make(map[string]string, len(schema.Properties))
	for name := range schema.Properties {
		canonical[toLowerUnderscore(name)] = name
	}

	normalized := make(map[string]interface{}, len(params))
	for key, value := range params {
		if _, declared := schema.Properties[key]; declared {
			normalized[key] = value
			continue
		}
		if name, ok := canonical[toLowerUnderscore(key)]; ok && name != key {
			normalized[name] = value
			continue
		}
		normalized[key] = value
	}
	return normalized
}

// toLowerUnderscore converts CamelCase and mixedCase identifiers to
// snake_case. Existing underscores are preserved.
func toLowerUnderscore(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	var prev rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && prev != '_' {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
