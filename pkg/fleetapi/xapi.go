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

	"github.com/calldeck/calldeck/pkg/models"
)

const (
	xapiStatusResource  = "xapi/status"
	xapiCommandResource = "xapi/command"

	channelRoleMain   = "Main"
	channelTypeAudio  = "Audio"
	channelTypeVideo  = "Video"
	directionIncoming = "Incoming"
	directionOutgoing = "Outgoing"
)

// Netstat is the upstream network statistics block of a media channel.
type Netstat struct {
	MaxJitter            float64 `json:"MaxJitter"`
	PacketLossPercent    float64 `json:"PacketLossPercent"`
	LastIntervalLost     int     `json:"LastIntervalLost"`
	LastIntervalReceived int     `json:"LastIntervalReceived"`
}

// ActiveCall is one in-progress call as reported by the live telemetry
// query.
type ActiveCall struct {
	DeviceID     string `json:"-"`
	ID           int    `json:"id"`
	DisplayName  string `json:"DisplayName"`
	RemoteNumber string `json:"RemoteNumber"`
	CallType     string `json:"CallType"`
	Direction    string `json:"Direction"`
	Duration     *int   `json:"Duration"`
	Status       string `json:"Status"`
	DeviceType   string `json:"DeviceType"`
	Protocol     string `json:"Protocol"`
}

// CallHistoryEntry is one historical call as returned by the call-history
// command at full detail level. Telemetry legs are nil when the device
// reported no statistics for them.
type CallHistoryEntry struct {
	DeviceID            string     `json:"-"`
	DisplayName         string     `json:"DisplayName"`
	CallbackNumber      string     `json:"CallbackNumber"`
	RemoteNumber        string     `json:"RemoteNumber"`
	StartTimeUTC        string     `json:"StartTimeUTC"`
	EndTimeUTC          string     `json:"EndTimeUTC"`
	Duration            int        `json:"Duration"`
	DisconnectCauseType string     `json:"DisconnectCauseType"`
	Audio               StreamLegs `json:"Audio"`
	Video               StreamLegs `json:"Video"`
}

// StreamLegs is one medium's telemetry split by direction.
type StreamLegs struct {
	Incoming *Netstat `json:"Incoming"`
	Outgoing *Netstat `json:"Outgoing"`
}

// SystemUnit is the system-unit status of one device.
type SystemUnit struct {
	Uptime          *int   `json:"Uptime"`
	ProductType     string `json:"ProductType"`
	ProductPlatform string `json:"ProductPlatform"`
	Hardware        *struct {
		Module struct {
			SerialNumber       string `json:"SerialNumber"`
			CompatibilityLevel string `json:"CompatibilityLevel"`
		} `json:"Module"`
	} `json:"Hardware"`
	Software *struct {
		Name        string `json:"Name"`
		Version     string `json:"Version"`
		ReleaseDate string `json:"ReleaseDate"`
	} `json:"Software"`
}

// RoomAnalytics is the occupancy status of one device's room.
type RoomAnalytics struct {
	PeoplePresence string `json:"PeoplePresence"`
	PeopleCount    *struct {
		Current  int `json:"Current"`
		Capacity int `json:"Capacity"`
	} `json:"PeopleCount"`
}

// AudioState is the audio configuration status of one device.
type AudioState struct {
	Microphones *struct {
		Mute string `json:"Mute"`
	} `json:"Microphones"`
	Volume *int `json:"Volume"`
}

// PeripheralInfo is one connected peripheral.
type PeripheralInfo struct {
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	Status       string `json:"Status"`
	SerialNumber string `json:"SerialNumber"`
	HardwareInfo string `json:"HardwareInfo"`
	SoftwareInfo string `json:"SoftwareInfo"`
}

func (c *Client) status(ctx context.Context, deviceID, name string, result interface{}) error {
	params := url.Values{}
	params.Set("name", name)
	params.Set("deviceId", deviceID)

	payload, err := c.Get(ctx, xapiStatusResource, params)
	if err != nil {
		return err
	}

	return decodeField(payload, "result", result)
}

// ActiveCalls queries the live call queue across devices. A device with no
// calls contributes nothing; a failed device is logged and skipped so one
// bad endpoint cannot abort the batch.
func (c *Client) ActiveCalls(ctx context.Context, deviceIDs []string) ([]ActiveCall, error) {
	var active []ActiveCall

	for _, deviceID := range deviceIDs {
		var result struct {
			Call []ActiveCall `json:"Call"`
		}

		if err := c.status(ctx, deviceID, "Call[*].*", &result); err != nil {
			c.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Skipping device for active call query")
			continue
		}

		for i := range result.Call {
			result.Call[i].DeviceID = deviceID
			active = append(active, result.Call[i])
		}
	}

	return active, nil
}

// CallHistory retrieves full-detail historical call entries per device.
// Devices with no history are absent from the returned map; per-device
// failures are logged and skipped.
func (c *Client) CallHistory(ctx context.Context, deviceIDs []string) (map[string][]CallHistoryEntry, error) {
	history := make(map[string][]CallHistoryEntry)

	for _, deviceID := range deviceIDs {
		payload, err := c.Post(ctx, xapiCommandResource+"/CallHistory.Get", nil, map[string]interface{}{
			"deviceId":  deviceID,
			"arguments": map[string]string{"DetailLevel": "Full"},
		})
		if err != nil {
			c.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Skipping device for call history query")
			continue
		}

		var result struct {
			Entry []CallHistoryEntry `json:"Entry"`
		}

		if err := decodeField(payload, "result", &result); err != nil {
			c.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Call history response missing result")
			continue
		}

		if len(result.Entry) == 0 {
			continue
		}

		for i := range result.Entry {
			result.Entry[i].DeviceID = deviceID
		}

		history[deviceID] = result.Entry
	}

	return history, nil
}

// CallMediaChannels selects the main-role audio and video channels of one
// active call, split by direction. Channels lacking network statistics are
// ignored.
func (c *Client) CallMediaChannels(ctx context.Context, deviceID string, callID int) (*models.CallMediaChannels, error) {
	var result struct {
		MediaChannels struct {
			Call []struct {
				Channel []struct {
					Type      string   `json:"Type"`
					Direction string   `json:"Direction"`
					Netstat   *Netstat `json:"Netstat"`
					Audio     *struct {
						ChannelRole string `json:"ChannelRole"`
					} `json:"Audio"`
					Video *struct {
						ChannelRole string `json:"ChannelRole"`
					} `json:"Video"`
				} `json:"Channel"`
			} `json:"Call"`
		} `json:"MediaChannels"`
	}

	name := fmt.Sprintf("MediaChannels.Call[%d].Channel[*].*", callID)

	channels := &models.CallMediaChannels{}

	if err := c.status(ctx, deviceID, name, &result); err != nil {
		return nil, err
	}

	if len(result.MediaChannels.Call) == 0 {
		return channels, nil
	}

	for _, ch := range result.MediaChannels.Call[0].Channel {
		if ch.Netstat == nil {
			continue
		}

		stats := &models.ChannelStats{
			MaxJitter:            ch.Netstat.MaxJitter,
			PacketLossPercent:    ch.Netstat.PacketLossPercent,
			LastIntervalLost:     ch.Netstat.LastIntervalLost,
			LastIntervalReceived: ch.Netstat.LastIntervalReceived,
		}

		switch {
		case ch.Type == channelTypeAudio && ch.Audio != nil && ch.Audio.ChannelRole == channelRoleMain:
			if ch.Direction == directionIncoming {
				channels.AudioIncoming = stats
			} else if ch.Direction == directionOutgoing {
				channels.AudioOutgoing = stats
			}
		case ch.Type == channelTypeVideo && ch.Video != nil && ch.Video.ChannelRole == channelRoleMain:
			if ch.Direction == directionIncoming {
				channels.VideoIncoming = stats
			} else if ch.Direction == directionOutgoing {
				channels.VideoOutgoing = stats
			}
		}
	}

	return channels, nil
}

// SystemUnitInfo queries a device's system unit status.
func (c *Client) SystemUnitInfo(ctx context.Context, deviceID string) (*SystemUnit, error) {
	var result struct {
		SystemUnit *SystemUnit `json:"SystemUnit"`
	}

	if err := c.status(ctx, deviceID, "SystemUnit.*", &result); err != nil {
		return nil, err
	}

	if result.SystemUnit == nil {
		return nil, fmt.Errorf("%w: SystemUnit", errMissingField)
	}

	return result.SystemUnit, nil
}

// RoomAnalyticsInfo queries a device's room analytics status.
func (c *Client) RoomAnalyticsInfo(ctx context.Context, deviceID string) (*RoomAnalytics, error) {
	var result struct {
		RoomAnalytics *RoomAnalytics `json:"RoomAnalytics"`
	}

	if err := c.status(ctx, deviceID, "RoomAnalytics.*", &result); err != nil {
		return nil, err
	}

	if result.RoomAnalytics == nil {
		return nil, fmt.Errorf("%w: RoomAnalytics", errMissingField)
	}

	return result.RoomAnalytics, nil
}

// AudioInfo queries a device's audio settings.
func (c *Client) AudioInfo(ctx context.Context, deviceID string) (*AudioState, error) {
	var result struct {
		Audio *AudioState `json:"Audio"`
	}

	if err := c.status(ctx, deviceID, "Audio.*", &result); err != nil {
		return nil, err
	}

	if result.Audio == nil {
		return nil, fmt.Errorf("%w: Audio", errMissingField)
	}

	return result.Audio, nil
}

// Peripherals lists a device's connected peripherals.
func (c *Client) Peripherals(ctx context.Context, deviceID string) ([]PeripheralInfo, error) {
	var result struct {
		Peripherals *struct {
			ConnectedDevice []PeripheralInfo `json:"ConnectedDevice"`
		} `json:"Peripherals"`
	}

	if err := c.status(ctx, deviceID, "Peripherals.ConnectedDevice[*].*", &result); err != nil {
		return nil, err
	}

	if result.Peripherals == nil {
		return nil, fmt.Errorf("%w: Peripherals", errMissingField)
	}

	return result.Peripherals.ConnectedDevice, nil
}
