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
	"fmt"
	"math"
	"strconv"

	"github.com/calldeck/calldeck/pkg/models"
	"github.com/calldeck/calldeck/pkg/mos"
)

// DeviceSnapshot is the full ad hoc view of one device: the refreshed
// stored record plus read-only live projections. Only the device row is
// persisted; the projections are rebuilt on every request.
type DeviceSnapshot struct {
	Device        *models.Device           `json:"device"`
	SystemUnit    models.SystemUnitInfo    `json:"systemUnit"`
	RoomAnalytics models.RoomAnalyticsInfo `json:"roomAnalytics"`
	ActiveCalls   []models.ActiveCall      `json:"activeCalls"`
	Peripherals   []models.Peripheral      `json:"peripherals"`
}

// LookupDevice refreshes one device from the fleet API, runs the same
// enrichment as the periodic reconciliation, stores the result, and returns
// the stored row. The dashboard therefore always observes data at least as
// fresh as the last periodic cycle. Lookups may race a reconciliation run
// on the same device; both sides write whole rows, so last write wins.
func (s *Service) LookupDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	raw, err := s.api.DeviceDetails(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	enriched := s.enrichDevice(ctx, raw)

	if err := s.store.UpsertDevice(enriched); err != nil {
		return nil, err
	}

	return s.store.GetDevice(deviceID)
}

// Snapshot builds the complete detail view for one device.
func (s *Service) Snapshot(ctx context.Context, deviceID string) (*DeviceSnapshot, error) {
	device, err := s.LookupDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	snapshot := &DeviceSnapshot{Device: device}

	snapshot.SystemUnit = s.systemUnitProjection(ctx, device)
	snapshot.RoomAnalytics = s.roomAnalyticsProjection(ctx, deviceID)

	calls, err := s.LiveCalls(ctx, []models.Device{*device})
	if err != nil {
		return nil, err
	}

	snapshot.ActiveCalls = calls
	snapshot.Peripherals = s.peripheralsProjection(ctx, deviceID)

	return snapshot, nil
}

// LiveCalls queries the current call queue across the given devices and
// scores each call from its main-role media channels. Failures on
// individual devices or channels degrade to unscored calls instead of
// failing the batch.
func (s *Service) LiveCalls(ctx context.Context, devices []models.Device) ([]models.ActiveCall, error) {
	byID := make(map[string]*models.Device, len(devices))
	ids := make([]string, 0, len(devices))

	for i := range devices {
		byID[devices[i].DeviceID] = &devices[i]
		ids = append(ids, devices[i].DeviceID)
	}

	upstream, err := s.api.ActiveCalls(ctx, ids)
	if err != nil {
		return nil, err
	}

	calls := make([]models.ActiveCall, 0, len(upstream))

	for i := range upstream {
		raw := &upstream[i]

		device, ok := byID[raw.DeviceID]
		if !ok {
			continue
		}

		call := models.ActiveCall{
			DeviceID:     raw.DeviceID,
			Endpoint:     device.Endpoint,
			Site:         device.Site,
			Region:       device.Region,
			CallID:       strconv.Itoa(raw.ID),
			DisplayName:  fallback(raw.DisplayName),
			RemoteNumber: fallback(raw.RemoteNumber),
			CallType:     fallback(raw.CallType),
			Direction:    fallback(raw.Direction),
			Status:       fallback(raw.Status),
			DeviceType:   fallback(raw.DeviceType),
			Protocol:     fallback(raw.Protocol),
			StartTime:    unknownValue,
			Duration:     unknownValue,
		}

		if raw.Duration != nil {
			call.Duration = formatDuration(*raw.Duration)
			call.StartTime = s.eventStart(*raw.Duration, device.TimeZone)
		}

		channels, err := s.api.CallMediaChannels(ctx, raw.DeviceID, raw.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("device_id", raw.DeviceID).Int("call_id", raw.ID).Msg("Media channel lookup failed")
		} else {
			call.AudioMOS = liveScore(channels.AudioIncoming, channels.AudioOutgoing)
			call.VideoMOS = liveScore(channels.VideoIncoming, channels.VideoOutgoing)
		}

		calls = append(calls, call)
	}

	return calls, nil
}

// liveScore scores one medium of an in-progress call. Live channels report
// loss as a lost/received interval count pair rather than a precomputed
// percentage.
func liveScore(incoming, outgoing *models.ChannelStats) *float64 {
	var inJitter, inLoss, outJitter, outLoss *float64

	if incoming != nil {
		inJitter = &incoming.MaxJitter
		loss := intervalLossPercent(incoming)
		inLoss = &loss
	}

	if outgoing != nil {
		outJitter = &outgoing.MaxJitter
		loss := intervalLossPercent(outgoing)
		outLoss = &loss
	}

	score, ok := mos.Score(inJitter, outJitter, inLoss, outLoss)
	if !ok {
		return nil
	}

	return &score
}

// intervalLossPercent converts the last-interval lost/received counters to
// a percentage, rounded to two decimals. A zero denominator reads as no
// loss.
func intervalLossPercent(stats *models.ChannelStats) float64 {
	if stats.LastIntervalReceived == 0 {
		return 0
	}

	pct := float64(stats.LastIntervalLost) / float64(stats.LastIntervalReceived) * 100

	return math.Round(pct*100) / 100
}

func fallback(v string) string {
	if v == "" {
		return unknownValue
	}

	return v
}

func (s *Service) systemUnitProjection(ctx context.Context, device *models.Device) models.SystemUnitInfo {
	info := models.SystemUnitInfo{
		Site:   device.Site,
		IPAddr: device.IPAddr,
	}

	unit, err := s.api.SystemUnitInfo(ctx, device.DeviceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("device_id", device.DeviceID).Msg("System unit lookup failed")
		return info
	}

	info.ProductType = unit.ProductType
	info.ProductPlatform = unit.ProductPlatform

	if unit.Hardware != nil {
		info.ModuleSerial = unit.Hardware.Module.SerialNumber
		info.CompatibilityLvl = unit.Hardware.Module.CompatibilityLevel
	}

	if unit.Software != nil {
		info.SoftwareName = unit.Software.Name
		info.SoftwareVersion = unit.Software.Version
		info.SoftwareRelease = unit.Software.ReleaseDate
	}

	if unit.Uptime != nil {
		info.BootTime = fmt.Sprintf("%s (%d seconds)", s.eventStart(*unit.Uptime, device.TimeZone), *unit.Uptime)
	}

	return info
}

func (s *Service) roomAnalyticsProjection(ctx context.Context, deviceID string) models.RoomAnalyticsInfo {
	info := models.RoomAnalyticsInfo{
		PeoplePresence: notAvailable,
		PeopleCount:    notAvailable,
		MicMuted:       notAvailable,
		SpeakerVolume:  notAvailable,
	}

	if analytics, err := s.api.RoomAnalyticsInfo(ctx, deviceID); err != nil {
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Room analytics lookup failed")
	} else {
		if analytics.PeoplePresence != "" {
			info.PeoplePresence = analytics.PeoplePresence
		}

		if analytics.PeopleCount != nil {
			info.PeopleCount = fmt.Sprintf("%d/%d", analytics.PeopleCount.Current, analytics.PeopleCount.Capacity)
		}
	}

	if audio, err := s.api.AudioInfo(ctx, deviceID); err != nil {
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Audio state lookup failed")
	} else if audio.Microphones != nil {
		info.MicMuted = audio.Microphones.Mute

		if audio.Volume != nil {
			info.SpeakerVolume = strconv.Itoa(*audio.Volume)
		}
	}

	return info
}

func (s *Service) peripheralsProjection(ctx context.Context, deviceID string) []models.Peripheral {
	upstream, err := s.api.Peripherals(ctx, deviceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Peripherals lookup failed")
		return nil
	}

	peripherals := make([]models.Peripheral, 0, len(upstream))

	for _, p := range upstream {
		peripherals = append(peripherals, models.Peripheral{
			Name:         p.Name,
			HardwareType: p.Type,
			Status:       p.Status,
			Serial:       p.SerialNumber,
			HardwareInfo: p.HardwareInfo,
			SoftwareInfo: p.SoftwareInfo,
		})
	}

	return peripherals
}
