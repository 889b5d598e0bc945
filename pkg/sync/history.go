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

package sync

import (
	"context"
	"time"

	"github.com/calldeck/calldeck/pkg/fleetapi"
	"github.com/calldeck/calldeck/pkg/models"
	"github.com/calldeck/calldeck/pkg/mos"
)

// upstreamTimeLayout is the UTC timestamp format of call-history entries.
const upstreamTimeLayout = "2006-01-02T15:04:05Z"

// SyncCallHistory pulls every known device's historical calls, scores and
// stores the entries younger than the retention cutoff, and prunes
// everything older store-wide.
func (s *Service) SyncCallHistory(ctx context.Context) error {
	deviceIDs, err := s.store.DeviceIDs()
	if err != nil {
		return err
	}

	if len(deviceIDs) == 0 {
		s.logger.Debug().Msg("No devices known yet, skipping call history sync")
		return nil
	}

	history, err := s.api.CallHistory(ctx, deviceIDs)
	if err != nil {
		return err
	}

	cutoff := s.clock.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)

	total := 0

	for deviceID, entries := range history {
		records := s.buildRecords(entries)

		inserted, err := s.store.InsertCallRecords(records, cutoff)
		if err != nil {
			s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to store call history")
			continue
		}

		total += inserted
	}

	pruned, err := s.store.PruneOlderThan(cutoff)
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("devices", len(history)).
		Int("inserted", total).
		Int64("pruned", pruned).
		Time("cutoff", cutoff).
		Msg("Call history sync complete")

	return nil
}

// buildRecords converts upstream entries into scored call records. Entries
// with unparseable timestamps are dropped with a log line; they cannot be
// content-addressed without a stable start/end time.
func (s *Service) buildRecords(entries []fleetapi.CallHistoryEntry) []models.CallRecord {
	records := make([]models.CallRecord, 0, len(entries))

	for i := range entries {
		entry := &entries[i]

		start, err := time.Parse(upstreamTimeLayout, entry.StartTimeUTC)
		if err != nil {
			s.logger.Warn().Err(err).Str("device_id", entry.DeviceID).Str("start_time", entry.StartTimeUTC).Msg("Unparseable call start time")
			continue
		}

		end, err := time.Parse(upstreamTimeLayout, entry.EndTimeUTC)
		if err != nil {
			s.logger.Warn().Err(err).Str("device_id", entry.DeviceID).Str("end_time", entry.EndTimeUTC).Msg("Unparseable call end time")
			continue
		}

		record := models.CallRecord{
			DeviceID:         entry.DeviceID,
			DisplayName:      entry.DisplayName,
			CallbackNumber:   entry.CallbackNumber,
			RemoteNumber:     entry.RemoteNumber,
			StartTime:        start.UTC(),
			EndTime:          end.UTC(),
			Duration:         entry.Duration,
			DisconnectReason: entry.DisconnectCauseType,
		}

		record.AudioMOS = legsScore(entry.Audio)
		record.VideoMOS = legsScore(entry.Video)
		record.AudioPacketLossMax = maxLegValue(entry.Audio, func(n *fleetapi.Netstat) float64 { return n.PacketLossPercent })
		record.VideoPacketLossMax = maxLegValue(entry.Video, func(n *fleetapi.Netstat) float64 { return n.PacketLossPercent })
		record.AudioJitterMax = maxLegValue(entry.Audio, func(n *fleetapi.Netstat) float64 { return n.MaxJitter })
		record.VideoJitterMax = maxLegValue(entry.Video, func(n *fleetapi.Netstat) float64 { return n.MaxJitter })

		records = append(records, record)
	}

	return records
}

// legsScore scores one medium from its two directional legs.
func legsScore(legs fleetapi.StreamLegs) *float64 {
	var inJitter, inLoss, outJitter, outLoss *float64

	if legs.Incoming != nil {
		inJitter = &legs.Incoming.MaxJitter
		inLoss = &legs.Incoming.PacketLossPercent
	}

	if legs.Outgoing != nil {
		outJitter = &legs.Outgoing.MaxJitter
		outLoss = &legs.Outgoing.PacketLossPercent
	}

	score, ok := mos.Score(inJitter, outJitter, inLoss, outLoss)
	if !ok {
		return nil
	}

	return &score
}

// maxLegValue is the worst observed value of one statistic across the legs
// that reported it.
func maxLegValue(legs fleetapi.StreamLegs, pick func(*fleetapi.Netstat) float64) float64 {
	var max float64

	if legs.Incoming != nil {
		max = pick(legs.Incoming)
	}

	if legs.Outgoing != nil && pick(legs.Outgoing) > max {
		max = pick(legs.Outgoing)
	}

	return max
}
