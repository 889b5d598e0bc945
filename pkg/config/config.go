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

// Package config loads and validates the service configuration from a local
// JSON file, with environment overrides for deployment-specific paths.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/calldeck/calldeck/pkg/logger"
	"github.com/calldeck/calldeck/pkg/models"
)

const (
	defaultReconcileInterval = 5 * time.Minute
	defaultHistoryInterval   = 10 * time.Minute
	defaultRetentionDays     = 60
	defaultListenAddr        = ":8080"
	defaultDBPath            = "calldeck.db"
	defaultBaseURL           = "https://webexapis.com/v1/"
)

var (
	errMissingTokenFile = errors.New("token_file is required")
	errRetentionDays    = errors.New("retention_days must be positive")
)

// Config is the full service configuration.
type Config struct {
	ListenAddr        string          `json:"listen_addr"`
	DBPath            string          `json:"db_path"`
	TokenFile         string          `json:"token_file"`
	BaseURL           string          `json:"base_url"`
	DeviceType        string          `json:"device_type"`
	ReconcileInterval models.Duration `json:"reconcile_interval"`
	HistoryInterval   models.Duration `json:"history_interval"`
	RetentionDays     int             `json:"retention_days"`
	Logging           *logger.Config  `json:"logging"`
}

// Validate applies defaults and checks required fields. Environment
// variables CALLDECK_TOKEN_FILE and CALLDECK_DB_PATH override the file
// values so deployments can relocate secrets without editing config.
func (c *Config) Validate() error {
	if v := os.Getenv("CALLDECK_TOKEN_FILE"); v != "" {
		c.TokenFile = v
	}

	if v := os.Getenv("CALLDECK_DB_PATH"); v != "" {
		c.DBPath = v
	}

	if c.TokenFile == "" {
		return errMissingTokenFile
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}

	if time.Duration(c.ReconcileInterval) == 0 {
		c.ReconcileInterval = models.Duration(defaultReconcileInterval)
	}

	if time.Duration(c.HistoryInterval) == 0 {
		c.HistoryInterval = models.Duration(defaultHistoryInterval)
	}

	if c.RetentionDays == 0 {
		c.RetentionDays = defaultRetentionDays
	}

	if c.RetentionDays < 0 {
		return errRetentionDays
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	return nil
}

// Load reads and unmarshals a JSON config file, then validates it.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
