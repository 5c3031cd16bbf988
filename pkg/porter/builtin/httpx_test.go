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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	client := newJSONClient(10*time.Second, 100)
	var out struct {
		OK bool `json:"ok"`
	}
	err := client.getJSON(context.Background(), server.URL, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetJSON_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newJSONClient(10*time.Second, 100)
	err := client.getJSON(context.Background(), server.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up")
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestGetJSON_SentinelErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, errUpstreamNotFound},
		{"unauthorized", http.StatusUnauthorized, errUpstreamUnauthorized},
		{"forbidden", http.StatusForbidden, errUpstreamUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newJSONClient(10*time.Second, 100)
			err := client.getJSON(context.Background(), server.URL, nil, &struct{}{})
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "sentinel statuses must not be retried")
		})
	}
}

func TestGetJSON_UnexpectedStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such parameter", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newJSONClient(10*time.Second, 100)
	err := client.getJSON(context.Background(), server.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "no such parameter")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_SetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "abc", r.Header.Get("X-API-Key"))
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := newJSONClient(10*time.Second, 100)
	err := client.getJSON(context.Background(), server.URL, map[string]string{"X-API-Key": "abc"}, &struct{}{})
	require.NoError(t, err)
}

func TestGetJSON_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := newJSONClient(10*time.Second, 100)
	start := time.Now()
	err := client.getJSON(ctx, server.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "must not sit out the full Retry-After")
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "3", 3 * time.Second},
		{"zero", "0", 0},
		{"absent", "", 0},
		{"garbage", "soon", 0},
		{"negative", "-5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, retryAfter(resp))
		})
	}

	t.Run("http date", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set("Retry-After", time.Now().Add(2*time.Second).UTC().Format(http.TimeFormat))
		got := retryAfter(resp)
		assert.Greater(t, got, time.Duration(0))
		assert.LessOrEqual(t, got, 2*time.Second)
	})
}

func TestBackoff_GrowsWithJitter(t *testing.T) {
	for i := 0; i < 3; i++ {
		base := time.Duration(1<<uint(i)) * 200 * time.Millisecond
		got := backoff(i)
		assert.GreaterOrEqual(t, got, base, "attempt %d", i)
		assert.LessOrEqual(t, got, base+base/2, "attempt %d", i)
	}
}

func TestSleepCtx(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		assert.True(t, sleepCtx(context.Background(), time.Millisecond))
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, sleepCtx(ctx, time.Minute))
	})
}
