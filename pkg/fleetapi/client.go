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

// Package fleetapi is the client for the remote device-management API. It
// aggregates paginated responses, absorbs 429 rate limiting with a bounded
// retry budget, and exposes typed queries over the device, workspace,
// location and telemetry resources.
package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/calldeck/calldeck/pkg/logger"
)

const (
	maxRetries        = 25
	defaultRetryDelay = 10 * time.Second
)

// Payload is the body of an aggregated API response. Multi-page responses
// are merged into a single Payload: list-valued fields are concatenated in
// page order, scalar fields keep the first page's value.
type Payload map[string]interface{}

// Client issues authenticated requests against the fleet API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	logger     logger.Logger

	// sleep is the retry delay source; replaced in tests to avoid real
	// sleeps.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client. baseURL must end with a trailing slash.
func NewClient(baseURL string, tokens TokenProvider, log logger.Logger) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		logger:     log,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nextPageURL extracts the rel="next" target from a Link response header.
// Absence of a next link ends pagination.
func nextPageURL(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}

	for _, link := range strings.Split(linkHeader, ",") {
		parts := strings.Split(link, ";")
		if len(parts) == 2 && strings.Contains(parts[1], `rel="next"`) {
			return strings.Trim(strings.TrimSpace(parts[0]), "<>")
		}
	}

	return ""
}

// mergePage folds one page's fields into the aggregate. Lists append in page
// order; scalars from the first page win.
func mergePage(results Payload, page map[string]interface{}) {
	for key, val := range page {
		existing, seen := results[key]
		if !seen {
			results[key] = val
			continue
		}

		existingList, ok1 := existing.([]interface{})
		pageList, ok2 := val.([]interface{})

		if ok1 && ok2 {
			results[key] = append(existingList, pageList...)
		}
	}
}

// Get issues a GET against resource, following pagination until no next-page
// link remains and merging every page into one Payload. 429 responses are
// retried after the server's Retry-After hint (10s when absent), up to
// maxRetries across the whole fetch; any other non-success status aborts
// immediately with ErrRequestFailed.
func (c *Client) Get(ctx context.Context, resource string, params url.Values) (Payload, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	results := Payload{}
	next := c.baseURL + resource
	retries := 0

	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, http.NoBody)
		if err != nil {
			return nil, err
		}

		if len(params) > 0 {
			req.URL.RawQuery = params.Encode()
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			var page map[string]interface{}

			if err := json.Unmarshal(body, &page); err != nil {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}

			mergePage(results, page)

			next = nextPageURL(resp.Header.Get("Link"))

			// Follow-up links already carry their own query; stale
			// params would 4XX.
			if next != "" {
				params = nil
			}
		case resp.StatusCode == http.StatusTooManyRequests:
			if retries >= maxRetries {
				c.logger.Warn().Str("resource", resource).Msg("Rate limit exceeded, maximum amount of retries exceeded")
				return nil, ErrRateLimitExceeded
			}

			retries++

			if err := c.sleep(ctx, retryDelay(resp.Header)); err != nil {
				return nil, err
			}
		default:
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("resource", resource).
				Interface("headers", resp.Header).
				Str("body", string(body)).
				Msg("Request failed")

			return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
		}
	}

	return results, nil
}

// Post issues a command against resource with a JSON body. The 429 policy
// matches Get; there is no pagination on mutating calls.
func (c *Client) Post(ctx context.Context, resource string, params url.Values, body interface{}) (Payload, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + resource
	retries := 0

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}

		if len(params) > 0 {
			req.URL.RawQuery = params.Encode()
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			var payload Payload

			if err := json.Unmarshal(respBody, &payload); err != nil {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}

			return payload, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			if retries >= maxRetries {
				c.logger.Warn().Str("resource", resource).Msg("Rate limit exceeded, maximum amount of retries exceeded")
				return nil, ErrRateLimitExceeded
			}

			retries++

			if err := c.sleep(ctx, retryDelay(resp.Header)); err != nil {
				return nil, err
			}
		default:
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("resource", resource).
				Interface("headers", resp.Header).
				Str("body", string(respBody)).
				Msg("Request failed")

			return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
		}
	}
}

func retryDelay(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return defaultRetryDelay
}

// decodeField remarshals one top-level payload field into a typed struct.
// An absent field is errMissingField so callers can default to "data
// unavailable" instead of failing the enclosing operation.
func decodeField(p Payload, key string, dst interface{}) error {
	val, ok := p[key]
	if !ok {
		return fmt.Errorf("%w: %s", errMissingField, key)
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dst)
}

// decodePayload remarshals the whole payload into a typed struct.
func decodePayload(p Payload, dst interface{}) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dst)
}
