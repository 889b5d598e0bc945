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

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldeck/calldeck/pkg/logger"
	"github.com/calldeck/calldeck/pkg/models"
	"github.com/calldeck/calldeck/pkg/store"
	"github.com/calldeck/calldeck/pkg/sync"
)

type fakeStore struct {
	listDevices  func() ([]models.Device, error)
	updateRegion func(deviceID, region string) error
	regions      func() ([]string, error)
	callHistory  func(deviceID string, since time.Time) ([]models.CallRecord, error)
}

func (f *fakeStore) ListDevices() ([]models.Device, error) {
	return f.listDevices()
}

func (f *fakeStore) UpdateRegion(deviceID, region string) error {
	return f.updateRegion(deviceID, region)
}

func (f *fakeStore) Regions() ([]string, error) {
	return f.regions()
}

func (f *fakeStore) CallHistory(deviceID string, since time.Time) ([]models.CallRecord, error) {
	return f.callHistory(deviceID, since)
}

type fakeFleet struct {
	snapshot  func(ctx context.Context, deviceID string) (*sync.DeviceSnapshot, error)
	liveCalls func(ctx context.Context, devices []models.Device) ([]models.ActiveCall, error)
}

func (f *fakeFleet) Snapshot(ctx context.Context, deviceID string) (*sync.DeviceSnapshot, error) {
	return f.snapshot(ctx, deviceID)
}

func (f *fakeFleet) LiveCalls(ctx context.Context, devices []models.Device) ([]models.ActiveCall, error) {
	return f.liveCalls(ctx, devices)
}

func serve(t *testing.T, st Store, fleet Fleet, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	server := NewServer(st, fleet, logger.NewTestLogger())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	return rec
}

func TestListDevices(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		listDevices: func() ([]models.Device, error) {
			return []models.Device{{DeviceID: "dev-1", Endpoint: "Boardroom", Region: "EMEA"}}, nil
		},
	}

	rec := serve(t, st, &fakeFleet{}, httptest.NewRequest(http.MethodGet, "/api/v1/devices", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		Devices []models.Device `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Devices, 1)
	assert.Equal(t, "Boardroom", body.Devices[0].Endpoint)
}

func TestDeviceSnapshot(t *testing.T) {
	t.Parallel()

	fleet := &fakeFleet{
		snapshot: func(_ context.Context, deviceID string) (*sync.DeviceSnapshot, error) {
			assert.Equal(t, "dev-1", deviceID)

			return &sync.DeviceSnapshot{
				Device: &models.Device{DeviceID: deviceID, Endpoint: "Boardroom"},
			}, nil
		},
	}

	rec := serve(t, &fakeStore{}, fleet, httptest.NewRequest(http.MethodGet, "/api/v1/devices/dev-1", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	var body sync.DeviceSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Boardroom", body.Device.Endpoint)
}

func TestUpdateRegion(t *testing.T) {
	t.Parallel()

	var gotDevice, gotRegion string

	st := &fakeStore{
		updateRegion: func(deviceID, region string) error {
			gotDevice, gotRegion = deviceID, region
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/devices/dev-1/region", strings.NewReader(`{"region": "APAC"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(t, st, &fakeFleet{}, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev-1", gotDevice)
	assert.Equal(t, "APAC", gotRegion)
}

func TestUpdateRegionValidation(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		updateRegion: func(_, _ string) error {
			t.Fatal("store must not be touched on invalid input")
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/devices/dev-1/region", strings.NewReader(`{"region": ""}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(t, st, &fakeFleet{}, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/devices/dev-1/region", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")

	rec = serve(t, st, &fakeFleet{}, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRegionUnknownDevice(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		updateRegion: func(_, _ string) error {
			return store.ErrDeviceNotFound
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/devices/missing/region", strings.NewReader(`{"region": "APAC"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(t, st, &fakeFleet{}, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveCalls(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		listDevices: func() ([]models.Device, error) {
			return []models.Device{{DeviceID: "dev-1"}}, nil
		},
	}

	fleet := &fakeFleet{
		liveCalls: func(_ context.Context, devices []models.Device) ([]models.ActiveCall, error) {
			require.Len(t, devices, 1)
			return []models.ActiveCall{{DeviceID: "dev-1", CallID: "42"}}, nil
		},
	}

	rec := serve(t, st, fleet, httptest.NewRequest(http.MethodGet, "/api/v1/calls/active", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Calls []models.ActiveCall `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Calls, 1)
	assert.Equal(t, "42", body.Calls[0].CallID)
}

func TestCallHistoryQuery(t *testing.T) {
	t.Parallel()

	var gotDevice string
	var gotSince time.Time

	st := &fakeStore{
		callHistory: func(deviceID string, since time.Time) ([]models.CallRecord, error) {
			gotDevice = deviceID
			gotSince = since

			return []models.CallRecord{{CallID: "abc", DeviceID: deviceID}}, nil
		},
	}

	rec := serve(t, st, &fakeFleet{}, httptest.NewRequest(http.MethodGet, "/api/v1/calls/history?deviceId=dev-1&hours=48", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev-1", gotDevice)
	assert.WithinDuration(t, time.Now().UTC().Add(-48*time.Hour), gotSince, 5*time.Second)

	var body struct {
		Calls []models.CallRecord `json:"calls"`
		Hours int                 `json:"hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 48, body.Hours)
	require.Len(t, body.Calls, 1)
}

func TestCallHistoryInvalidHours(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeStore{}, &fakeFleet{}, httptest.NewRequest(http.MethodGet, "/api/v1/calls/history?hours=-2", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, &fakeStore{}, &fakeFleet{}, httptest.NewRequest(http.MethodGet, "/api/v1/calls/history?hours=soon", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegions(t *testing.T) {
	t.Parallel()

	st := &fakeStore{
		regions: func() ([]string, error) {
			return []string{"APAC", "EMEA"}, nil
		},
	}

	rec := serve(t, st, &fakeFleet{}, httptest.NewRequest(http.MethodGet, "/api/v1/regions", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Regions []string `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"APAC", "EMEA"}, body.Regions)
}
