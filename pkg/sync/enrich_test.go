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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/calldeck/calldeck/pkg/fleetapi"
	"github.com/calldeck/calldeck/pkg/models"
)

func TestEnrichDeviceShared(t *testing.T) {
	t.Parallel()

	uptime := 3723 // 1h 2m 3s

	api := &fakeFleetAPI{
		locationDetails: func(_ context.Context, locationID string) (*fleetapi.Location, error) {
			assert.Equal(t, "loc-1", locationID)
			return &fleetapi.Location{Name: "Amsterdam HQ", TimeZone: "Europe/Amsterdam"}, nil
		},
		workspaceDetails: func(_ context.Context, workspaceID string) (*fleetapi.Workspace, error) {
			assert.Equal(t, "ws-1", workspaceID)

			ws := &fleetapi.Workspace{DisplayName: "Floor 3 Boardroom"}
			ws.Calendar = &struct {
				Type         string `json:"type"`
				EmailAddress string `json:"emailAddress"`
			}{Type: "microsoft", EmailAddress: "board@example.com"}

			return ws, nil
		},
		systemUnitInfo: func(_ context.Context, _ string) (*fleetapi.SystemUnit, error) {
			return &fleetapi.SystemUnit{Uptime: &uptime}, nil
		},
	}

	svc := newTestService(t, api, newTestStore(t), newFakeClock(time.Now()))

	device := svc.enrichDevice(context.Background(), &fleetapi.DeviceSummary{
		ID:               "dev-1",
		DisplayName:      "Boardroom Codec",
		ConnectionStatus: "connected_with_issues",
		WorkspaceID:      "ws-1",
		LocationID:       "loc-1",
	})

	assert.Equal(t, models.StatusIssues, device.ConnectionStatus)
	assert.Equal(t, "Amsterdam HQ", device.Site)
	assert.Equal(t, "Europe/Amsterdam", device.TimeZone)
	assert.Equal(t, models.ModeShared, device.Mode)
	assert.Equal(t, "Floor 3 Boardroom", device.Room)
	assert.Equal(t, "board@example.com", device.Email)
	assert.Equal(t, "01H: 02M: 03S", device.Uptime)
}

func TestEnrichDevicePersonalDefaults(t *testing.T) {
	t.Parallel()

	// Every auxiliary lookup fails; the device still comes out usable.
	svc := newTestService(t, &fakeFleetAPI{}, newTestStore(t), newFakeClock(time.Now()))

	device := svc.enrichDevice(context.Background(), &fleetapi.DeviceSummary{
		ID:          "dev-1",
		DisplayName: "Desk Pro",
		LocationID:  "loc-1",
	})

	assert.Equal(t, models.StatusUnknown, device.ConnectionStatus)
	assert.Equal(t, unknownValue, device.Site)
	assert.Equal(t, notAvailable, device.TimeZone)
	assert.Equal(t, models.ModePersonal, device.Mode)
	assert.Empty(t, device.Room)
	assert.Empty(t, device.Email)
	assert.Equal(t, unknownValue, device.Uptime)
}

func TestEnrichDeviceCalendarDisabled(t *testing.T) {
	t.Parallel()

	api := &fakeFleetAPI{
		workspaceDetails: func(_ context.Context, _ string) (*fleetapi.Workspace, error) {
			ws := &fleetapi.Workspace{DisplayName: "Huddle"}
			ws.Calendar = &struct {
				Type         string `json:"type"`
				EmailAddress string `json:"emailAddress"`
			}{Type: "none"}

			return ws, nil
		},
	}

	svc := newTestService(t, api, newTestStore(t), newFakeClock(time.Now()))

	device := svc.enrichDevice(context.Background(), &fleetapi.DeviceSummary{
		ID:          "dev-1",
		WorkspaceID: "ws-1",
	})

	assert.Empty(t, device.Email)
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		upstream string
		want     string
	}{
		{"connected", models.StatusConnected},
		{"connected_with_issues", models.StatusIssues},
		{"disconnected", models.StatusOffline},
		{"offline_expired", models.StatusOfflineExpired},
		{"", models.StatusUnknown},
		{"activating", "Activating"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeStatus(tt.upstream), "status %q", tt.upstream)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00H: 00M: 00S", formatDuration(0))
	assert.Equal(t, "00H: 01M: 05S", formatDuration(65))
	assert.Equal(t, "27H: 46M: 40S", formatDuration(100000))
}

func TestEventStart(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	svc := newTestService(t, &fakeFleetAPI{}, newTestStore(t), newFakeClock(now))

	// 30 seconds in, rendered in UTC when the zone is unknown.
	assert.Equal(t, "06/01/25 12:00:00 PM (UTC)", svc.eventStart(30, "Not/AZone"))
	assert.Equal(t, "06/01/25 12:00:00 PM (UTC)", svc.eventStart(30, notAvailable))
}
