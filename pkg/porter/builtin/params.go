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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

// stringParam returns the named parameter as a trimmed string. Missing,
// non-string, or blank values report false.
func stringParam(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// floatParam returns the named parameter as a float64. JSON decoding hands
// numbers over as float64, but direct callers may pass int.
func floatParam(params map[string]interface{}, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// intParam returns the named parameter as an int, or fallback when the
// parameter is absent or not numeric.
func intParam(params map[string]interface{}, key string, fallback int) int {
	f, ok := floatParam(params, key)
	if !ok {
		return fallback
	}
	return int(f)
}

func okResult(start time.Time, data map[string]interface{}, metadata map[string]interface{}) *porter.Result {
	return &porter.Result{
		Success:         true,
		Data:            data,
		Metadata:        metadata,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

func failResult(start time.Time, toolErr *porter.Error) *porter.Result {
	return &porter.Result{
		Success:         false,
		Error:           toolErr,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

func invalidInput(start time.Time, format string, args ...interface{}) *porter.Result {
	return failResult(start, &porter.Error{
		Code:    porter.CodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
	})
}

// upstreamError maps a transport failure onto the structured error code the
// stages expect. Not-found is handled by each tool where it carries domain
// meaning; this covers the generic cases.
func upstreamError(tool string, err error) *porter.Error {
	switch {
	case errors.Is(err, errUpstreamUnauthorized):
		return &porter.Error{
			Code:       porter.CodeConfiguration,
			Message:    fmt.Sprintf("%s: upstream rejected the API key", tool),
			Suggestion: "Check the configured API key",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &porter.Error{
			Code:      porter.CodeTimeout,
			Message:   fmt.Sprintf("%s: upstream call timed out", tool),
			Retryable: true,
		}
	default:
		return &porter.Error{
			Code:      porter.CodeUpstream,
			Message:   fmt.Sprintf("%s: %v", tool, err),
			Retryable: true,
		}
	}
}
