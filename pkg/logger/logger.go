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

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log output.
type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

func DefaultConfig() *Config {
	return &Config{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Output: getEnvOrDefault("LOG_OUTPUT", "stdout"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// NewLogger builds a zerolog-backed Logger tagged with a service name.
func NewLogger(config *Config, service string) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return &zerologLogger{log: zlog}, nil
}

type zerologLogger struct {
	log zerolog.Logger
}

func (z *zerologLogger) Trace() *zerolog.Event { return z.log.Trace() }
func (z *zerologLogger) Debug() *zerolog.Event { return z.log.Debug() }
func (z *zerologLogger) Info() *zerolog.Event  { return z.log.Info() }
func (z *zerologLogger) Warn() *zerolog.Event  { return z.log.Warn() }
func (z *zerologLogger) Error() *zerolog.Event { return z.log.Error() }
func (z *zerologLogger) Fatal() *zerolog.Event { return z.log.Fatal() }
func (z *zerologLogger) Panic() *zerolog.Event { return z.log.Panic() }
func (z *zerologLogger) With() zerolog.Context { return z.log.With() }

func (z *zerologLogger) WithComponent(component string) zerolog.Logger {
	return z.log.With().Str("component", component).Logger()
}

func (z *zerologLogger) SetLevel(level zerolog.Level) {
	z.log = z.log.Level(level)
}
