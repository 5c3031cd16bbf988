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

// Package builtin provides the capability tools the planner stages call:
// hotel search, weather forecasts, attraction lookup, currency conversion,
// arithmetic, and web search. Every tool implements porter.Tool and is
// registered under the name the stage prompts use.
//
// Tools that talk to an upstream service take their endpoint from a config
// struct so tests can point them at a local server. All HTTP traffic goes
// through a shared client that rate-limits requests and retries transient
// failures with exponential backoff, honoring Retry-After when the upstream
// sends one.
package builtin

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultToolTimeout bounds a single upstream call, including retries.
	DefaultToolTimeout = 30 * time.Second

	defaultRequestsPerSecond = 4
	maxAttempts              = 4
	userAgent                = "wayfarer/1.0"

	// errorBodyLimit caps how much of an error response body is read for
	// diagnostics.
	errorBodyLimit = 2048
)

// Sentinel errors for upstream statuses the tools give domain meaning to.
var (
	errUpstreamNotFound     = errors.New("upstream resource not found")
	errUpstreamUnauthorized = errors.New("upstream rejected credentials")
)

// jsonClient wraps http.Client with rate limiting and bounded retries for
// the JSON APIs the tools call.
type jsonClient struct {
	hc      *http.Client
	limiter *rate.Limiter
}

func newJSONClient(timeout time.Duration, rps float64) *jsonClient {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &jsonClient{
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// getJSON fetches url and decodes the response body into out. 429 and 5xx
// responses are retried with backoff; 404 and auth failures surface as
// sentinel errors so callers can map them onto tool error codes.
func (c *jsonClient) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		// The body is consumed on each attempt, so build a fresh request.
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !sleepCtx(ctx, backoff(attempt)) {
				return ctx.Err()
			}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			drain(resp)
			return errUpstreamNotFound

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			drain(resp)
			return fmt.Errorf("%w (status %d)", errUpstreamUnauthorized, resp.StatusCode)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			drain(resp)
			if wait <= 0 {
				wait = backoff(attempt)
			}
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
			continue

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
			drain(resp)
			return fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

// retryAfter parses the Retry-After header as either a second count or an
// HTTP date. Zero means the header was absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns the wait before retry attempt i, doubling each time with
// up to 50% random jitter so concurrent callers spread out.
func backoff(i int) time.Duration {
	base := time.Duration(1<<uint(i)) * 200 * time.Millisecond
	n, err := rand.Int(rand.Reader, big.NewInt(int64(base)/2+1))
	if err != nil {
		return base
	}
	return base + time.Duration(n.Int64())
}

// sleepCtx sleeps for d unless the context ends first. It reports whether
// the full sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit)) //nolint:errcheck
	resp.Body.Close()
}
