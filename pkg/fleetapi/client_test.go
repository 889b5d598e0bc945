/*
 * Copyright 2025 Calldeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fleetapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldeck/calldeck/pkg/logger"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	c := NewClient(server.URL, StaticTokenProvider("test-token"), logger.NewTestLogger())
	c.sleep = func(context.Context, time.Duration) error { return nil }

	return c
}

func TestGetFollowsPagination(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		switch r.URL.Query().Get("page") {
		case "":
			// First page carries the caller's params.
			assert.Equal(t, "roomdesk", r.URL.Query().Get("type"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/devices?page=2>; rel="next"`, server.URL))
			fmt.Fprint(w, `{"items": [{"id": "a"}], "total": 3}`)
		case "2":
			// Follow-up requests must not re-send stale params.
			assert.Empty(t, r.URL.Query().Get("type"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/devices?page=3>; rel="next", <%s/devices?page=1>; rel="prev"`, server.URL, server.URL))
			fmt.Fprint(w, `{"items": [{"id": "b"}], "total": 99}`)
		default:
			fmt.Fprint(w, `{"items": [{"id": "c"}]}`)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server)

	params := url.Values{}
	params.Set("type", "roomdesk")

	payload, err := c.Get(context.Background(), "devices", params)
	require.NoError(t, err)

	items, ok := payload["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)

	// Scalars keep the first page's value.
	assert.InDelta(t, 3.0, payload["total"], 0)
}

func TestGetRetriesOnRateLimit(t *testing.T) {
	t.Parallel()

	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts <= 2 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		fmt.Fprint(w, `{"items": []}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)

	var delays []time.Duration

	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := c.Get(context.Background(), "devices", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, delays)
}

func TestGetRateLimitExhaustion(t *testing.T) {
	t.Parallel()

	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(t, server)

	_, err := c.Get(context.Background(), "devices", nil)
	require.ErrorIs(t, err, ErrRateLimitExceeded)

	// Initial attempt plus the full retry budget.
	assert.Equal(t, maxRetries+1, attempts)
}

func TestGetNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such resource", http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server)

	_, err := c.Get(context.Background(), "devices", nil)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "404")
}

func TestPostRetriesOnRateLimit(t *testing.T) {
	t.Parallel()

	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		fmt.Fprint(w, `{"result": {}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)

	payload, err := c.Post(context.Background(), "xapi/command/CallHistory.Get", nil, map[string]string{"deviceId": "dev-1"})
	require.NoError(t, err)
	assert.Contains(t, payload, "result")
	assert.Equal(t, 2, attempts)
}

func TestNextPageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "empty header",
			header: "",
			want:   "",
		},
		{
			name:   "next only",
			header: `<https://api.example.com/v1/devices?page=2>; rel="next"`,
			want:   "https://api.example.com/v1/devices?page=2",
		},
		{
			name:   "next among other relations",
			header: `<https://api.example.com/v1/devices?page=1>; rel="prev", <https://api.example.com/v1/devices?page=3>; rel="next"`,
			want:   "https://api.example.com/v1/devices?page=3",
		},
		{
			name:   "no next relation",
			header: `<https://api.example.com/v1/devices?page=1>; rel="prev"`,
			want:   "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nextPageURL(tt.header))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	assert.Equal(t, defaultRetryDelay, retryDelay(h))

	h.Set("Retry-After", "30")
	assert.Equal(t, 30*time.Second, retryDelay(h))

	h.Set("Retry-After", "not-a-number")
	assert.Equal(t, defaultRetryDelay, retryDelay(h))
}
