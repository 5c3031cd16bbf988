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
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/types"
)

// InstrumentedProvider wraps any LLMProvider with observability
// instrumentation. Every Chat call produces one completion span plus call,
// latency, token, and cost metrics labeled by provider and model.
//
// The wrapper is transparent: it satisfies types.LLMProvider and can wrap
// any implementation, including another wrapper.
type InstrumentedProvider struct {
	provider types.LLMProvider
	tracer   observability.Tracer
}

// NewInstrumentedProvider wraps a provider with instrumentation. A nil
// tracer falls back to the no-op tracer.
func NewInstrumentedProvider(provider types.LLMProvider, tracer observability.Tracer) *InstrumentedProvider {
	if tracer == nil {
		tracer = observability.NewNoOpTracer()
	}
	return &InstrumentedProvider{provider: provider, tracer: tracer}
}

// Chat delegates to the wrapped provider, recording a span and metrics
// around the call.
func (p *InstrumentedProvider) Chat(ctx context.Context, messages []types.Message, tools []porter.Tool) (*types.LLMResponse, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanLLMCompletion,
		observability.WithSpanKind("llm"),
		observability.WithAttribute(observability.AttrLLMProvider, p.provider.Name()),
		observability.WithAttribute(observability.AttrLLMModel, p.provider.Model()),
	)
	defer p.tracer.EndSpan(span)

	span.SetAttribute("llm.messages.count", len(messages))
	span.SetAttribute("llm.tools.count", len(tools))
	if len(tools) > 0 {
		names := make([]string, len(tools))
		for i, tool := range tools {
			names[i] = tool.Name()
		}
		span.SetAttribute("llm.tools.names", strings.Join(names, ","))
	}

	labels := map[string]string{
		"provider": p.provider.Name(),
		"model":    p.provider.Model(),
	}

	p.tracer.RecordEvent(ctx, "llm.call.started", map[string]interface{}{
		"messages": len(messages),
		"tools":    len(tools),
	})

	start := time.Now()
	resp, err := p.provider.Chat(ctx, messages, tools)
	elapsed := time.Since(start)

	p.tracer.RecordMetric(observability.MetricLLMCalls, 1, labels)
	p.tracer.RecordMetric(observability.MetricLLMLatencyMs, float64(elapsed.Milliseconds()), labels)

	if err != nil {
		span.RecordError(err)
		p.tracer.RecordMetric(observability.MetricLLMErrors, 1, labels)
		p.tracer.RecordEvent(ctx, "llm.call.failed", map[string]interface{}{
			"error":       err.Error(),
			"duration_ms": elapsed.Milliseconds(),
		})
		return nil, err
	}

	p.tracer.RecordMetric(observability.MetricLLMTokensInput, float64(resp.Usage.InputTokens), labels)
	p.tracer.RecordMetric(observability.MetricLLMTokensOutput, float64(resp.Usage.OutputTokens), labels)
	p.tracer.RecordMetric(observability.MetricLLMCost, resp.Usage.CostUSD, labels)

	span.SetAttribute("llm.tokens.input", resp.Usage.InputTokens)
	span.SetAttribute("llm.tokens.output", resp.Usage.OutputTokens)
	span.SetAttribute("llm.cost_usd", resp.Usage.CostUSD)
	span.SetAttribute("llm.stop_reason", resp.StopReason)
	span.SetAttribute("llm.tool_calls.count", len(resp.ToolCalls))

	p.tracer.RecordEvent(ctx, "llm.call.completed", map[string]interface{}{
		"duration_ms":   elapsed.Milliseconds(),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	})

	return resp, nil
}

// Name returns the wrapped provider's name.
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// Model returns the wrapped provider's model identifier.
func (p *InstrumentedProvider) Model() string {
	return p.provider.Model()
}
