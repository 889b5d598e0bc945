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

// Package sync drives the periodic reconciliation of the local device record
// against the fleet's live membership and the synchronization of per-device
// call history, plus the ad hoc single-device refresh used by the dashboard.
package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/calldeck/calldeck/pkg/fleetapi"
	"github.com/calldeck/calldeck/pkg/logger"
	"github.com/calldeck/calldeck/pkg/models"
)

// Config controls the two periodic jobs.
type Config struct {
	DeviceType        string          `json:"device_type"`
	ReconcileInterval models.Duration `json:"reconcile_interval"`
	HistoryInterval   models.Duration `json:"history_interval"`
	RetentionDays     int             `json:"retention_days"`
}

// Service owns the periodic jobs and the on-demand lookup path. All
// dependencies are injected; there is no package-level state.
type Service struct {
	api    FleetAPI
	store  Store
	config Config
	clock  Clock
	logger logger.Logger

	done      chan struct{}
	wg        stdsync.WaitGroup
	closeOnce stdsync.Once
}

// New constructs a Service. A nil clock selects the real time source.
func New(config *Config, api FleetAPI, st Store, clock Clock, log logger.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}

	return &Service{
		api:    api,
		store:  st,
		config: *config,
		clock:  clock,
		logger: log,
		done:   make(chan struct{}),
	}
}

// Start launches the two job loops and returns. Device reconciliation runs
// immediately; call-history sync first fires after one reconciliation
// interval so the device table is seeded before history is requested.
func (s *Service) Start(ctx context.Context) error {
	reconcile := time.Duration(s.config.ReconcileInterval)
	history := time.Duration(s.config.HistoryInterval)

	s.logger.Info().
		Dur("reconcile_interval", reconcile).
		Dur("history_interval", history).
		Int("retention_days", s.config.RetentionDays).
		Msg("Starting fleet sync jobs")

	s.wg.Add(2)

	go s.runJob(ctx, "device-reconciliation", 0, reconcile, s.ReconcileDevices)
	go s.runJob(ctx, "call-history-sync", reconcile, history, s.SyncCallHistory)

	return nil
}

// Stop terminates the job loops and waits for any in-flight run to finish.
func (s *Service) Stop(_ context.Context) error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.wg.Wait()

	return nil
}

// runJob executes fn once after initialDelay, then on every tick of
// interval. Runs are strictly serialized within one job: a run must return
// before the next tick is consumed, so a job can never overlap itself.
// Failures are logged and the job continues to its next firing; an expired
// credential is fatal because no further useful work is possible.
func (s *Service) runJob(ctx context.Context, name string, initialDelay, interval time.Duration, fn func(context.Context) error) {
	defer s.wg.Done()

	log := s.logger.WithComponent(name)

	if initialDelay > 0 {
		delay := s.clock.Ticker(initialDelay)

		select {
		case <-ctx.Done():
			delay.Stop()
			return
		case <-s.done:
			delay.Stop()
			return
		case <-delay.Chan():
		}

		delay.Stop()
	}

	run := func() {
		started := s.clock.Now()

		if err := fn(ctx); err != nil {
			if errors.Is(err, fleetapi.ErrAuthExpired) {
				log.Fatal().Err(err).Msg("Access token expired and cannot be refreshed; re-authorization required")
			}

			log.Error().Err(err).Msg("Job run failed")

			return
		}

		log.Debug().Dur("elapsed", s.clock.Now().Sub(started)).Msg("Job run complete")
	}

	run()

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.Chan():
			run()
		}
	}
}

// ReconcileDevices makes the stored device set match the fleet's current
// membership: stale devices are deleted, every live device is enriched and
// upserted wholesale (region excepted).
func (s *Service) ReconcileDevices(ctx context.Context) error {
	devices, err := s.api.Devices(ctx, s.config.DeviceType)
	if err != nil {
		// An empty fleet and a failed fetch are not the same thing;
		// deleting every device on a transient failure would be
		// destructive, so the cycle is skipped instead.
		return err
	}

	fresh := make(map[string]bool, len(devices))
	for i := range devices {
		fresh[devices[i].ID] = true
	}

	stored, err := s.store.DeviceIDs()
	if err != nil {
		return err
	}

	for _, id := range stored {
		if !fresh[id] {
			s.logger.Info().Str("device_id", id).Msg("Device no longer in fleet, deleting")

			if err := s.store.DeleteDevice(id); err != nil {
				s.logger.Error().Err(err).Str("device_id", id).Msg("Failed to delete device")
			}
		}
	}

	for i := range devices {
		enriched := s.enrichDevice(ctx, &devices[i])

		if err := s.store.UpsertDevice(enriched); err != nil {
			s.logger.Error().Err(err).Str("device_id", enriched.DeviceID).Msg("Failed to upsert device")
		}
	}

	s.logger.Info().Int("devices", len(devices)).Msg("Device reconciliation complete")

	return nil
}
