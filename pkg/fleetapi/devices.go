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
	"fmt"
	"net/url"
)

// DeviceSummary is the raw upstream representation of one fleet endpoint.
type DeviceSummary struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ConnectionStatus string `json:"connectionStatus"`
	Product          string `json:"product"`
	Serial           string `json:"serial"`
	IP               string `json:"ip"`
	MAC              string `json:"mac"`
	Software         string `json:"software"`
	PrimarySipURL    string `json:"primarySipUrl"`
	WorkspaceID      string `json:"workspaceId"`
	LocationID       string `json:"locationId"`
}

// Workspace is the upstream workspace detail used to resolve a shared
// device's room name and mailbox.
type Workspace struct {
	DisplayName string `json:"displayName"`
	Calendar    *struct {
		Type         string `json:"type"`
		EmailAddress string `json:"emailAddress"`
	} `json:"calendar"`
}

// Location is the upstream location detail used to resolve a device's site
// and time zone.
type Location struct {
	Name     string `json:"name"`
	TimeZone string `json:"timeZone"`
}

// Devices lists every endpoint the token has management-API permission on,
// optionally filtered by device type.
func (c *Client) Devices(ctx context.Context, deviceType string) ([]DeviceSummary, error) {
	params := url.Values{}
	params.Set("permission", "xapi")

	if deviceType != "" {
		params.Set("type", deviceType)
	}

	payload, err := c.Get(ctx, "devices", params)
	if err != nil {
		return nil, err
	}

	var devices []DeviceSummary

	if err := decodeField(payload, "items", &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

// DeviceDetails fetches the full detail of one device.
func (c *Client) DeviceDetails(ctx context.Context, deviceID string) (*DeviceSummary, error) {
	payload, err := c.Get(ctx, "devices/"+url.PathEscape(deviceID), nil)
	if err != nil {
		return nil, err
	}

	var device DeviceSummary

	if err := decodePayload(payload, &device); err != nil {
		return nil, err
	}

	if device.ID == "" {
		return nil, fmt.Errorf("%w: id", errMissingField)
	}

	return &device, nil
}

// WorkspaceDetails fetches one workspace.
func (c *Client) WorkspaceDetails(ctx context.Context, workspaceID string) (*Workspace, error) {
	payload, err := c.Get(ctx, "workspaces/"+url.PathEscape(workspaceID), nil)
	if err != nil {
		return nil, err
	}

	var ws Workspace

	if err := decodePayload(payload, &ws); err != nil {
		return nil, err
	}

	return &ws, nil
}

// LocationDetails fetches one location.
func (c *Client) LocationDetails(ctx context.Context, locationID string) (*Location, error) {
	payload, err := c.Get(ctx, "locations/"+url.PathEscape(locationID), nil)
	if err != nil {
		return nil, err
	}

	var loc Location

	if err := decodePayload(payload, &loc); err != nil {
		return nil, err
	}

	return &loc, nil
}
