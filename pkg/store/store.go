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

// Package store persists devices and call history. Every write is either a
// full-row overwrite or a content-addressed idempotent insert, so operations
// from concurrent jobs can interleave safely without cross-job transactions.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/calldeck/calldeck/pkg/logger"
	"github.com/calldeck/calldeck/pkg/models"
)

// ErrDeviceNotFound is returned on lookups and region updates against an
// unknown device id.
var ErrDeviceNotFound = errors.New("device not found")

// hashTimeLayout matches the upstream UTC timestamp format, so the content
// hash of a record is stable across processes and re-fetches.
const hashTimeLayout = "2006-01-02T15:04:05Z"

// deviceOverwriteColumns is every device column replaced on reconciliation.
// Region is deliberately absent: it is the only user-mutable field and must
// survive upserts.
var deviceOverwriteColumns = []string{
	"endpoint", "connection_status", "product", "serial", "ip_addr", "mac",
	"software", "mode", "site", "room", "local_number", "uptime", "email",
	"timezone",
}

// Store is the persistent record of fleet membership and call history.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// New opens (or creates) the sqlite database at path and migrates the
// schema.
func New(path string, log logger.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", path, err)
	}

	if err := db.AutoMigrate(&models.Device{}, &models.CallRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// CallID derives the content-addressed identifier of a call from its
// identifying fields. Same inputs always yield the same id, which is what
// makes insertion idempotent across sync cycles.
func CallID(deviceID, callbackNumber string, start, end time.Time) string {
	input := fmt.Sprintf("%s_%s_%s_%s",
		deviceID, callbackNumber,
		start.UTC().Format(hashTimeLayout),
		end.UTC().Format(hashTimeLayout))

	sum := sha256.Sum256([]byte(input))

	return hex.EncodeToString(sum[:])
}

// UpsertDevice inserts a device, or replaces every column except region on
// conflict. New rows start with region unset.
func (s *Store) UpsertDevice(device *models.Device) error {
	row := *device
	if row.Region == "" {
		row.Region = models.RegionUnset
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns(deviceOverwriteColumns),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.DeviceID, err)
	}

	return nil
}

// DeleteDevice removes a device and, in cascade, its call history.
func (s *Store) DeleteDevice(deviceID string) error {
	if err := s.db.Where("device_id = ?", deviceID).Delete(&models.CallRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete call history for device %s: %w", deviceID, err)
	}

	if err := s.db.Where("device_id = ?", deviceID).Delete(&models.Device{}).Error; err != nil {
		return fmt.Errorf("failed to delete device %s: %w", deviceID, err)
	}

	return nil
}

// InsertCallRecords inserts each record whose start time is at or after the
// retention cutoff, skipping records whose content id already exists.
// Records missing an id get one derived from their identifying fields.
// Every record is age-checked individually, so an upstream batch that is
// not sorted newest-first can never cause a wrong insert or a wrong skip.
// Returns the number of rows actually inserted.
func (s *Store) InsertCallRecords(records []models.CallRecord, retentionCutoff time.Time) (int, error) {
	inserted := 0

	for i := range records {
		record := records[i]

		if record.StartTime.Before(retentionCutoff) {
			continue
		}

		if record.CallID == "" {
			record.CallID = CallID(record.DeviceID, record.CallbackNumber, record.StartTime, record.EndTime)
		}

		result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if result.Error != nil {
			return inserted, fmt.Errorf("failed to insert call record %s: %w", record.CallID, result.Error)
		}

		inserted += int(result.RowsAffected)
	}

	return inserted, nil
}

// PruneOlderThan hard-deletes every call record whose start time precedes
// the cutoff, regardless of device state. Returns the number of rows
// removed.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("start_time < ?", cutoff).Delete(&models.CallRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune call history: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// UpdateRegion sets the user-assigned region label of one device.
func (s *Store) UpdateRegion(deviceID, region string) error {
	result := s.db.Model(&models.Device{}).Where("device_id = ?", deviceID).Update("region", region)
	if result.Error != nil {
		return fmt.Errorf("failed to update region for device %s: %w", deviceID, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// GetDevice returns one device by id.
func (s *Store) GetDevice(deviceID string) (*models.Device, error) {
	var device models.Device

	err := s.db.Where("device_id = ?", deviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}

	if err != nil {
		return nil, err
	}

	return &device, nil
}

// ListDevices returns every stored device.
func (s *Store) ListDevices() ([]models.Device, error) {
	var devices []models.Device

	if err := s.db.Order("endpoint asc").Find(&devices).Error; err != nil {
		return nil, err
	}

	return devices, nil
}

// DeviceIDs returns the identifiers of every stored device.
func (s *Store) DeviceIDs() ([]string, error) {
	var ids []string

	if err := s.db.Model(&models.Device{}).Pluck("device_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

// Regions returns the distinct user-assigned regions across the fleet,
// excluding the unset sentinel.
func (s *Store) Regions() ([]string, error) {
	var regions []string

	err := s.db.Model(&models.Device{}).
		Distinct("region").
		Where("region <> ?", models.RegionUnset).
		Pluck("region", &regions).Error
	if err != nil {
		return nil, err
	}

	return regions, nil
}

// CallHistory returns call records newest-first, optionally filtered to one
// device, with start times at or after since.
func (s *Store) CallHistory(deviceID string, since time.Time) ([]models.CallRecord, error) {
	query := s.db.Where("start_time >= ?", since)

	if deviceID != "" {
		query = query.Where("device_id = ?", deviceID)
	}

	var records []models.CallRecord

	if err := query.Order("start_time desc").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
