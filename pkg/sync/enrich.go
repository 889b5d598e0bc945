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
	"strings"
	"time"

	"github.com/calldeck/calldeck/pkg/fleetapi"
	"github.com/calldeck/calldeck/pkg/models"
)

const (
	unknownValue = "Unknown"
	notAvailable = "N/A"

	calendarTypeNone = "none"
)

// enrichDevice resolves the fields the device list endpoint does not carry:
// site and time zone from the location, operating mode, room name and
// mailbox from the workspace, and a human-readable uptime from the system
// unit. Lookup failures degrade to sentinels rather than failing the
// device.
func (s *Service) enrichDevice(ctx context.Context, raw *fleetapi.DeviceSummary) *models.Device {
	device := &models.Device{
		DeviceID:         raw.ID,
		Endpoint:         raw.DisplayName,
		ConnectionStatus: normalizeStatus(raw.ConnectionStatus),
		Product:          raw.Product,
		Serial:           raw.Serial,
		IPAddr:           raw.IP,
		MAC:              raw.MAC,
		Software:         raw.Software,
		LocalNumber:      raw.PrimarySipURL,
		Site:             unknownValue,
		TimeZone:         notAvailable,
		Mode:             models.ModePersonal,
		Uptime:           unknownValue,
	}

	if raw.LocationID != "" {
		if loc, err := s.api.LocationDetails(ctx, raw.LocationID); err != nil {
			s.logger.Warn().Err(err).Str("device_id", raw.ID).Msg("Location lookup failed")
		} else {
			if loc.Name != "" {
				device.Site = loc.Name
			}

			if loc.TimeZone != "" {
				device.TimeZone = loc.TimeZone
			}
		}
	}

	if raw.WorkspaceID != "" {
		device.Mode = models.ModeShared

		if ws, err := s.api.WorkspaceDetails(ctx, raw.WorkspaceID); err != nil {
			s.logger.Warn().Err(err).Str("device_id", raw.ID).Msg("Workspace lookup failed")
		} else {
			device.Room = ws.DisplayName

			// Mailbox is only meaningful when the calendar
			// integration is enabled and assigned.
			if ws.Calendar != nil && ws.Calendar.Type != calendarTypeNone {
				device.Email = ws.Calendar.EmailAddress
				if device.Email == "" {
					device.Email = unknownValue
				}
			}
		}
	}

	if unit, err := s.api.SystemUnitInfo(ctx, raw.ID); err != nil {
		s.logger.Warn().Err(err).Str("device_id", raw.ID).Msg("System unit lookup failed")
	} else if unit.Uptime != nil {
		device.Uptime = formatDuration(*unit.Uptime)
	}

	return device
}

// normalizeStatus maps the upstream lower_snake connection status onto the
// display enum.
func normalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case "connected":
		return models.StatusConnected
	case "connected_with_issues":
		return models.StatusIssues
	case "disconnected":
		return models.StatusOffline
	case "offline_expired":
		return models.StatusOfflineExpired
	case "":
		return models.StatusUnknown
	default:
		return capitalize(status)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// formatDuration renders a second count as "01H: 02M: 03S".
func formatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	return fmt.Sprintf("%02dH: %02dM: %02dS", hours, minutes, secs)
}

// eventStart derives the wall-clock start of an event that has been running
// for the given number of seconds, rendered in the device's time zone (UTC
// when the zone is unset or unknown).
func (s *Service) eventStart(durationSeconds int, timeZone string) string {
	zone := time.UTC

	if timeZone != "" && timeZone != notAvailable {
		if loaded, err := time.LoadLocation(timeZone); err == nil {
			zone = loaded
		}
	}

	start := s.clock.Now().In(zone).Add(-time.Duration(durationSeconds) * time.Second)

	return start.Format("01/02/06 03:04:05 PM (MST)")
}
