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
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// TokenProvider supplies a currently valid bearer token. Obtaining and
// refreshing tokens is an external collaborator's job; this package only
// consumes the result.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Used in tests and for
// short-lived manual runs.
type StaticTokenProvider string

func (s StaticTokenProvider) AccessToken(_ context.Context) (string, error) {
	return string(s), nil
}

// FileTokenProvider reads the token file written by the out-of-band
// authorization flow. The file carries the access token and its absolute
// expiry; an expired token is ErrAuthExpired, which is fatal to the owning
// process.
type FileTokenProvider struct {
	Path string
	Now  func() time.Time

	mu     sync.Mutex
	cached tokenFile
	loaded bool
}

type tokenFile struct {
	AccessToken string  `json:"access_token"`
	ExpiresAt   float64 `json:"expires_at"`
}

func NewFileTokenProvider(path string) *FileTokenProvider {
	return &FileTokenProvider{Path: path, Now: time.Now}
}

func (f *FileTokenProvider) AccessToken(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded || f.expired() {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read token file '%s': %w", f.Path, err)
		}

		if err := json.Unmarshal(data, &f.cached); err != nil {
			return "", fmt.Errorf("failed to parse token file '%s': %w", f.Path, err)
		}

		f.loaded = true
	}

	if f.expired() {
		return "", ErrAuthExpired
	}

	return f.cached.AccessToken, nil
}

func (f *FileTokenProvider) expired() bool {
	if f.cached.ExpiresAt == 0 {
		return false
	}

	return float64(f.Now().Unix()) > f.cached.ExpiresAt
}
