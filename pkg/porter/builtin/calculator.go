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
	"time"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

// CalculatorTool performs basic arithmetic. The budget stage routes every
// calculation through it so totals are never model-invented.
type CalculatorTool struct{}

var _ porter.Tool = (*CalculatorTool)(nil)

func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

func (t *CalculatorTool) Name() string { return "calculator" }

func (t *CalculatorTool) Description() string {
	return "Performs basic arithmetic (add, subtract, multiply, divide) on two numbers. Use this for every budget calculation instead of computing in your head."
}

func (t *CalculatorTool) Capability() string { return porter.CapabilityArithmetic }

func (t *CalculatorTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Arithmetic operation over two operands",
		map[string]*porter.JSONSchema{
			"operation": porter.NewStringSchema("The operation to perform").
				WithEnum("add", "subtract", "multiply", "divide"),
			"a": porter.NewNumberSchema("First operand"),
			"b": porter.NewNumberSchema("Second operand"),
		},
		[]string{"operation", "a", "b"},
	)
}

func (t *CalculatorTool) Execute(ctx context.Context, params map[string]interface{}) (*porter.Result, error) {
	start := time.Now()

	op, ok := stringParam(params, "operation")
	if !ok {
		return invalidInput(start, "operation is required"), nil
	}
	a, ok := floatParam(params, "a")
	if !ok {
		return invalidInput(start, "a must be a number"), nil
	}
	b, ok := floatParam(params, "b")
	if !ok {
		return invalidInput(start, "b must be a number"), nil
	}

	var result float64
	switch op {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return failResult(start, &porter.Error{
				Code:       porter.CodeDivisionByZero,
				Message:    "division by zero",
				Suggestion: "Provide a non-zero divisor",
			}), nil
		}
		result = a / b
	default:
		return invalidInput(start, "unknown operation %q, want add, subtract, multiply, or divide", op), nil
	}

	return okResult(start, map[string]interface{}{
		"operation": op,
		"a":         a,
		"b":         b,
		"result":    result,
	}, nil), nil
}
