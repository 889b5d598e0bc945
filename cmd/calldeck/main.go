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

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/calldeck/calldeck/pkg/api"
	"github.com/calldeck/calldeck/pkg/config"
	"github.com/calldeck/calldeck/pkg/fleetapi"
	"github.com/calldeck/calldeck/pkg/logger"
	"github.com/calldeck/calldeck/pkg/store"
	"github.com/calldeck/calldeck/pkg/sync"
	"github.com/calldeck/calldeck/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "/etc/calldeck/calldeck.json", "Path to config file")
	flag.Parse()

	// Optional; deployments without a .env file rely on real env vars.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("calldeck: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	mainLogger, err := logger.NewLogger(cfg.Logging, "calldeck")
	if err != nil {
		return err
	}

	mainLogger.Info().Str("version", version.Full()).Msg("Starting calldeck")

	st, err := store.New(cfg.DBPath, mainLogger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			mainLogger.Error().Err(closeErr).Msg("Failed to close store")
		}
	}()

	tokens := fleetapi.NewFileTokenProvider(cfg.TokenFile)
	client := fleetapi.NewClient(cfg.BaseURL, tokens, mainLogger)

	svc := sync.New(&sync.Config{
		DeviceType:        cfg.DeviceType,
		ReconcileInterval: cfg.ReconcileInterval,
		HistoryInterval:   cfg.HistoryInterval,
		RetentionDays:     cfg.RetentionDays,
	}, client, st, nil, mainLogger)

	if err := svc.Start(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(st, svc, mainLogger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		mainLogger.Info().Str("addr", cfg.ListenAddr).Msg("API server listening")

		if serveErr := server.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	mainLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error().Err(err).Msg("HTTP shutdown failed")
	}

	return svc.Stop(shutdownCtx)
}
