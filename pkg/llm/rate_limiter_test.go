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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testLimiterConfig returns a config fast enough for unit tests.
func testLimiterConfig(t *testing.T) RateLimiterConfig {
	t.Helper()
	config := DefaultRateLimiterConfig()
	config.Logger = zaptest.NewLogger(t)
	config.RequestsPerSecond = 100
	config.BurstCapacity = 10
	config.TokensPerMinute = 0
	config.MinDelay = 0
	config.RetryBackoff = 5 * time.Millisecond
	config.QueueTimeout = time.Second
	return config
}

func TestNewRateLimiter_AppliesDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Enabled: true})

	defaults := DefaultRateLimiterConfig()
	assert.Equal(t, defaults.RequestsPerSecond, rl.config.RequestsPerSecond)
	assert.Equal(t, defaults.BurstCapacity, rl.config.BurstCapacity)
	assert.Equal(t, defaults.RetryBackoff, rl.config.RetryBackoff)
	assert.NotNil(t, rl.requests)
	assert.NotNil(t, rl.logger)
}

func TestRateLimiter_Do_Success(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(t))

	callCount := 0
	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		callCount++
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 1, callCount)
}

func TestRateLimiter_Do_ThrottlingRetry(t *testing.T) {
	config := testLimiterConfig(t)
	config.MaxRetries = 3
	rl := NewRateLimiter(config)

	callCount := 0
	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		callCount++
		if callCount < 3 {
			return nil, errors.New("ThrottlingException: too many requests")
		}
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 3, callCount)
}

func TestRateLimiter_Do_ThrottlingExhausted(t *testing.T) {
	config := testLimiterConfig(t)
	config.MaxRetries = 2
	rl := NewRateLimiter(config)

	callCount := 0
	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		callCount++
		return nil, errors.New("HTTP 429: rate limit exceeded")
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "throttled after 2 retries")
	// MaxRetries=2 means 3 total attempts.
	assert.Equal(t, 3, callCount)
}

func TestRateLimiter_Do_NonThrottlingErrorNoRetry(t *testing.T) {
	config := testLimiterConfig(t)
	config.MaxRetries = 5
	rl := NewRateLimiter(config)

	callCount := 0
	_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		callCount++
		return nil, errors.New("invalid_request_error: model not found")
	})

	require.Error(t, err)
	assert.Equal(t, 1, callCount)
}

func TestRateLimiter_Do_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Enabled: false})

	callCount := 0
	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		callCount++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, callCount)
}

func TestRateLimiter_Do_ContextCanceled(t *testing.T) {
	rl := NewRateLimiter(testLimiterConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	_, err := rl.Do(ctx, func(ctx context.Context) (interface{}, error) {
		callCount++
		return nil, nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, callCount)
}

func TestRateLimiter_MinDelay_SpacesCalls(t *testing.T) {
	config := testLimiterConfig(t)
	config.MinDelay = 30 * time.Millisecond
	rl := NewRateLimiter(config)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }

	start := time.Now()
	_, err := rl.Do(context.Background(), noop)
	require.NoError(t, err)
	_, err = rl.Do(context.Background(), noop)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRateLimiter_DoWithTokens_ClampsOversizedEstimate(t *testing.T) {
	config := testLimiterConfig(t)
	config.TokensPerMinute = 60
	rl := NewRateLimiter(config)

	// The estimate exceeds the bucket capacity; the reservation clamps
	// instead of waiting forever.
	result, err := rl.DoWithTokens(context.Background(), 100000, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestSharedRateLimiter_Singleton(t *testing.T) {
	assert.Same(t, SharedRateLimiter(), SharedRateLimiter())
}

func TestRetryJitter_Bounded(t *testing.T) {
	for i := 0; i < 100; i++ {
		j := retryJitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 250*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), retryJitter(0))
}

func TestIsThrottlingError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		throttle bool
	}{
		{"nil", nil, false},
		{"http 429", errors.New("HTTP 429 from upstream"), true},
		{"bedrock throttling", errors.New("ThrottlingException: rate exceeded"), true},
		{"too many requests", errors.New("TooManyRequests"), true},
		{"anthropic rate limit", errors.New("rate_limit_error: tokens per minute"), true},
		{"anthropic overloaded", errors.New("overloaded_error"), true},
		{"gemini quota", errors.New("RESOURCE_EXHAUSTED: quota exceeded"), true},
		{"plain failure", errors.New("connection refused"), false},
		{"bad request", errors.New("invalid_request_error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.throttle, isThrottlingError(tt.err))
		})
	}
}
