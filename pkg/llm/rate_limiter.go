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
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// maxRetryBackoff caps the exponential backoff between throttled
	// retries.
	maxRetryBackoff = 30 * time.Second

	// defaultTokensPerCall is the token-budget reservation used when the
	// caller has no better estimate.
	defaultTokensPerCall = 1000
)

// RateLimiterConfig configures client-side throttling for LLM calls.
// Providers share one limiter so concurrent planner runs cannot
// collectively exceed the account's rate limits.
type RateLimiterConfig struct {
	// Enabled turns rate limiting on. When false, Do invokes the call
	// directly.
	Enabled bool

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64

	// TokensPerMinute is the sustained token budget. Zero disables the
	// token bucket and limits by request count only.
	TokensPerMinute int

	// BurstCapacity is how many requests may fire back-to-back before the
	// sustained rate applies.
	BurstCapacity int

	// MinDelay is the minimum spacing between consecutive calls, applied
	// after the rate limiter admits a request.
	MinDelay time.Duration

	// MaxRetries bounds retries of throttled calls.
	MaxRetries int

	// RetryBackoff is the initial backoff after a throttled call; it
	// doubles per retry up to maxRetryBackoff.
	RetryBackoff time.Duration

	// QueueTimeout bounds how long a call may wait for admission.
	QueueTimeout time.Duration

	// Logger receives throttling events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultRateLimiterConfig returns conservative defaults that stay under
// the entry-tier limits of the hosted providers.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 2.0,
		TokensPerMinute:   40000,
		BurstCapacity:     5,
		MinDelay:          300 * time.Millisecond,
		MaxRetries:        5,
		RetryBackoff:      1 * time.Second,
		QueueTimeout:      5 * time.Minute,
	}
}

// RateLimiter admits LLM calls at a bounded rate and retries throttled
// calls with exponential backoff and jitter.
type RateLimiter struct {
	config   RateLimiterConfig
	requests *rate.Limiter
	tokens   *rate.Limiter
	logger   *zap.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewRateLimiter creates a rate limiter. Zero-valued config fields fall
// back to the defaults.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.BurstCapacity <= 0 {
		config.BurstCapacity = defaults.BurstCapacity
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	r := &RateLimiter{
		config:   config,
		requests: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstCapacity),
		logger:   config.Logger,
	}
	if config.TokensPerMinute > 0 {
		r.tokens = rate.NewLimiter(rate.Limit(config.TokensPerMinute)/60, config.TokensPerMinute)
	}
	return r
}

var (
	sharedLimiter     *RateLimiter
	sharedLimiterOnce sync.Once
)

// SharedRateLimiter returns the process-wide limiter used by all providers.
func SharedRateLimiter() *RateLimiter {
	sharedLimiterOnce.Do(func() {
		sharedLimiter = NewRateLimiter(DefaultRateLimiterConfig())
	})
	return sharedLimiter
}

// MergeRateLimiterConfig overlays caller-supplied non-zero fields onto a
// provider's base config. Providers carry their own base tuned to their
// API's published limits; Enabled and Logger always follow the override.
func MergeRateLimiterConfig(base, override RateLimiterConfig) RateLimiterConfig {
	merged := base
	merged.Enabled = override.Enabled
	if override.Logger != nil {
		merged.Logger = override.Logger
	}
	if override.RequestsPerSecond > 0 {
		merged.RequestsPerSecond = override.RequestsPerSecond
	}
	if override.TokensPerMinute > 0 {
		merged.TokensPerMinute = override.TokensPerMinute
	}
	if override.BurstCapacity > 0 {
		merged.BurstCapacity = override.BurstCapacity
	}
	if override.MinDelay > 0 {
		merged.MinDelay = override.MinDelay
	}
	if override.MaxRetries > 0 {
		merged.MaxRetries = override.MaxRetries
	}
	if override.RetryBackoff > 0 {
		merged.RetryBackoff = override.RetryBackoff
	}
	if override.QueueTimeout > 0 {
		merged.QueueTimeout = override.QueueTimeout
	}
	return merged
}

// Do admits one call through the limiter, reserving the default token
// estimate.
func (r *RateLimiter) Do(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	return r.DoWithTokens(ctx, defaultTokensPerCall, call)
}

// DoWithTokens admits one call, reserving estimatedTokens against the token
// budget. Callers that count prompt tokens pass the real estimate; the
// reservation is clamped to the bucket capacity so oversized prompts cannot
// wait forever.
func (r *RateLimiter) DoWithTokens(ctx context.Context, estimatedTokens int, call func(context.Context) (interface{}, error)) (interface{}, error) {
	if !r.config.Enabled {
		return call(ctx)
	}

	waitCtx := ctx
	if r.config.QueueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.config.QueueTimeout)
		defer cancel()
	}

	if err := r.requests.Wait(waitCtx); err != nil {
		return nil, fmt.Errorf("rate limiter admission: %w", err)
	}
	if r.tokens != nil && estimatedTokens > 0 {
		n := estimatedTokens
		if n > r.tokens.Burst() {
			n = r.tokens.Burst()
		}
		if err := r.tokens.WaitN(waitCtx, n); err != nil {
			return nil, fmt.Errorf("rate limiter token budget: %w", err)
		}
	}

	if err := r.waitMinDelay(ctx); err != nil {
		return nil, err
	}

	return r.executeWithRetry(ctx, call)
}

// waitMinDelay spaces consecutive calls by at least MinDelay. The next slot
// is claimed under the lock so concurrent callers serialize correctly.
func (r *RateLimiter) waitMinDelay(ctx context.Context) error {
	if r.config.MinDelay <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	next := r.lastCall.Add(r.config.MinDelay)
	var wait time.Duration
	if now.Before(next) {
		wait = next.Sub(now)
		r.lastCall = next
	} else {
		r.lastCall = now
	}
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executeWithRetry runs the call, retrying throttling errors with doubling
// backoff plus jitter. Non-throttling errors return immediately.
func (r *RateLimiter) executeWithRetry(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	var lastErr error
	backoff := r.config.RetryBackoff

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff + retryJitter(backoff)
			r.logger.Warn("provider throttled, backing off",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.config.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			if backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		if !isThrottlingError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("throttled after %d retries: %w", r.config.MaxRetries, lastErr)
}

// retryJitter returns a random delay of up to a quarter of the backoff, so
// concurrent clients do not retry in lockstep.
func retryJitter(backoff time.Duration) time.Duration {
	if backoff <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(backoff)/4 + 1))
}

// isThrottlingError reports whether an error looks like a provider rate
// limit. Providers surface these inconsistently, so this matches the known
// markers across Anthropic, Bedrock, Gemini, and plain HTTP 429 responses.
func isThrottlingError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	markers := []string{
		"429",
		"throttl",
		"toomanyrequests",
		"too many requests",
		"rate limit",
		"rate_limit",
		"overloaded",
		"resource_exhausted",
		"quota",
	}
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
