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

package models

import "time"

// CallRecord is one historical call. CallID is a deterministic content hash
// of (device id, callback number, start time, end time), so re-ingesting the
// same upstream entry is a no-op. Rows are immutable once stored; the only
// write after insert is deletion by the retention sweep or a device cascade.
type CallRecord struct {
	CallID           string    `gorm:"column:call_id;primaryKey" json:"callId"`
	DeviceID         string    `gorm:"column:device_id;index:idx_call_history_device_id" json:"deviceId"`
	DisplayName      string    `gorm:"column:display_name" json:"displayName"`
	CallbackNumber   string    `gorm:"column:callback_number" json:"callbackNumber"`
	RemoteNumber     string    `gorm:"column:remote_number" json:"remoteNumber"`
	StartTime        time.Time `gorm:"column:start_time;index:idx_call_history_start_time" json:"startTime"`
	EndTime          time.Time `gorm:"column:end_time" json:"endTime"`
	Duration         int       `gorm:"column:duration" json:"duration"`
	DisconnectReason string    `gorm:"column:disconnect_reason" json:"disconnectReason"`

	// MOS-style quality scores in [1.0, 5.0]; nil when neither direction
	// carried usable telemetry.
	AudioMOS *float64 `gorm:"column:a_mos" json:"audioMOS"`
	VideoMOS *float64 `gorm:"column:v_mos" json:"videoMOS"`

	// Worst observed loss/jitter across incoming and outgoing legs.
	AudioPacketLossMax float64 `gorm:"column:a_pkt_loss_max" json:"audioPacketLossMax"`
	VideoPacketLossMax float64 `gorm:"column:v_pkt_loss_max" json:"videoPacketLossMax"`
	AudioJitterMax     float64 `gorm:"column:a_jit_max" json:"audioJitterMax"`
	VideoJitterMax     float64 `gorm:"column:v_jit_max" json:"videoJitterMax"`
}

func (CallRecord) TableName() string { return "call_history" }

// ActiveCall is a call in progress. It is rebuilt from live telemetry on
// every request and never persisted.
type ActiveCall struct {
	DeviceID     string   `json:"deviceId"`
	Endpoint     string   `json:"endpoint"`
	Site         string   `json:"site"`
	Region       string   `json:"region"`
	CallID       string   `json:"callId"`
	DisplayName  string   `json:"displayName"`
	RemoteNumber string   `json:"remoteNumber"`
	CallType     string   `json:"callType"`
	Direction    string   `json:"direction"`
	StartTime    string   `json:"startTime"`
	Duration     string   `json:"duration"`
	Status       string   `json:"status"`
	AudioMOS     *float64 `json:"audioMOS"`
	VideoMOS     *float64 `json:"videoMOS"`
	DeviceType   string   `json:"deviceType"`
	Protocol     string   `json:"protocol"`
}

// ChannelStats is the network statistics block of one media channel.
type ChannelStats struct {
	MaxJitter            float64 `json:"maxJitter"`
	PacketLossPercent    float64 `json:"packetLossPercent"`
	LastIntervalLost     int     `json:"lastIntervalLost"`
	LastIntervalReceived int     `json:"lastIntervalReceived"`
}

// CallMediaChannels holds the main-role audio/video channels of one active
// call, split by direction. A nil leg means the device exposed no usable
// statistics for it.
type CallMediaChannels struct {
	AudioIncoming *ChannelStats `json:"audioIncoming"`
	AudioOutgoing *ChannelStats `json:"audioOutgoing"`
	VideoIncoming *ChannelStats `json:"videoIncoming"`
	VideoOutgoing *ChannelStats `json:"videoOutgoing"`
}

// SystemUnitInfo is a read-only projection of a device's system unit state.
type SystemUnitInfo struct {
	Site             string `json:"site"`
	IPAddr           string `json:"ipAddr"`
	ProductType      string `json:"productType"`
	ProductPlatform  string `json:"productPlatform"`
	ModuleSerial     string `json:"moduleSerial"`
	CompatibilityLvl string `json:"compatibilityLevel"`
	SoftwareName     string `json:"softwareName"`
	SoftwareVersion  string `json:"softwareVersion"`
	SoftwareRelease  string `json:"softwareRelease"`
	BootTime         string `json:"bootTime"`
}

// RoomAnalyticsInfo is a read-only projection of room occupancy and audio
// state.
type RoomAnalyticsInfo struct {
	PeoplePresence string `json:"peoplePresence"`
	PeopleCount    string `json:"peopleCount"`
	MicMuted       string `json:"micMuted"`
	SpeakerVolume  string `json:"speakerVolume"`
}

// Peripheral is one connected peripheral of a device.
type Peripheral struct {
	Name         string `json:"name"`
	HardwareType string `json:"hardwareType"`
	Status       string `json:"status"`
	Serial       string `json:"serial"`
	HardwareInfo string `json:"hardwareInfo"`
	SoftwareInfo string `json:"softwareInfo"`
}
