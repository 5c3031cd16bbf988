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
package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

func TestCalculator_Operations(t *testing.T) {
	tool := NewCalculatorTool()

	tests := []struct {
		name      string
		operation string
		a, b      float64
		want      float64
	}{
		{"add", "add", 2, 3, 5},
		{"subtract", "subtract", 10, 4, 6},
		{"multiply", "multiply", 6, 7, 42},
		{"divide", "divide", 10, 4, 2.5},
		{"negative operands", "add", -5, 3, -2},
		{"fractional nightly rate times nights", "multiply", 89.5, 4, 358},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), map[string]interface{}{
				"operation": tt.operation,
				"a":         tt.a,
				"b":         tt.b,
			})
			require.NoError(t, err)
			require.True(t, result.Success)

			data := dataMap(t, result)
			assert.Equal(t, tt.want, data["result"])
			assert.Equal(t, tt.operation, data["operation"])
		})
	}
}

func TestCalculator_DivisionByZero(t *testing.T) {
	tool := NewCalculatorTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"operation": "divide",
		"a":         42.0,
		"b":         0.0,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, porter.CodeDivisionByZero, result.Error.Code)
	assert.False(t, result.Error.Retryable)
	assert.NotEmpty(t, result.Error.Suggestion)
}

func TestCalculator_InvalidInput(t *testing.T) {
	tool := NewCalculatorTool()

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"missing operation", map[string]interface{}{"a": 1.0, "b": 2.0}},
		{"unknown operation", map[string]interface{}{"operation": "modulo", "a": 1.0, "b": 2.0}},
		{"non numeric operand", map[string]interface{}{"operation": "add", "a": "one", "b": 2.0}},
		{"missing operand", map[string]interface{}{"operation": "add", "a": 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Execute(context.Background(), tt.params)
			require.NoError(t, err)
			require.False(t, result.Success)
			require.NotNil(t, result.Error)
			assert.Equal(t, porter.CodeInvalidInput, result.Error.Code)
		})
	}
}

func TestCalculator_IntOperandsAccepted(t *testing.T) {
	tool := NewCalculatorTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"operation": "add",
		"a":         2,
		"b":         3,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 5.0, dataMap(t, result)["result"])
}

func TestCalculator_Identity(t *testing.T) {
	tool := NewCalculatorTool()

	assert.Equal(t, "calculator", tool.Name())
	assert.Equal(t, porter.CapabilityArithmetic, tool.Capability())

	schema := tool.InputSchema()
	require.NotNil(t, schema)
	assert.ElementsMatch(t, []string{"operation", "a", "b"}, schema.Required)
	require.Contains(t, schema.Properties, "operation")
	assert.Len(t, schema.Properties["operation"].Enum, 4)
}
