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

// Package models defines the persisted and transient entities shared across
// the fleet API client, the store, and the scheduler.
package models

// Connection status display values. The upstream API reports lower_snake
// strings; enrichment normalizes them to these before the device is stored.
const (
	StatusConnected      = "Connected"
	StatusIssues         = "Issues"
	StatusOffline        = "Offline"
	StatusOfflineExpired = "Offline Expired"
	StatusUnknown        = "Unknown"
)

// Device operating modes.
const (
	ModePersonal = "Personal"
	ModeShared   = "Shared"
)

// RegionUnset is the region value a device row starts with. Region is the
// only field a user may edit; every other column is overwritten wholesale on
// reconciliation.
const RegionUnset = "None"

// Device is one fleet endpoint as stored locally. The device_id is the
// upstream identifier and is stable across polling cycles.
type Device struct {
	DeviceID         string `gorm:"column:device_id;primaryKey" json:"deviceId"`
	Endpoint         string `gorm:"column:endpoint" json:"endpoint"`
	ConnectionStatus string `gorm:"column:connection_status" json:"connectionStatus"`
	Product          string `gorm:"column:product" json:"product"`
	Serial           string `gorm:"column:serial" json:"serial"`
	IPAddr           string `gorm:"column:ip_addr" json:"ipAddr"`
	MAC              string `gorm:"column:mac" json:"mac"`
	Software         string `gorm:"column:software" json:"software"`
	Mode             string `gorm:"column:mode" json:"mode"`
	Site             string `gorm:"column:site" json:"site"`
	Room             string `gorm:"column:room" json:"room"`
	LocalNumber      string `gorm:"column:local_number" json:"localNumber"`
	Region           string `gorm:"column:region" json:"region"`
	Uptime           string `gorm:"column:uptime" json:"uptime"`
	Email            string `gorm:"column:email" json:"email"`
	TimeZone         string `gorm:"column:timezone" json:"timeZone"`
}

// TableName keeps the table name singular-free and stable regardless of
// gorm's pluralization rules.
func (Device) TableName() string { return "devices" }
