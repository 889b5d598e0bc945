package sync

import (
	"context"
	"time"

	"github.com/calldeck/calldeck/pkg/fleetapi"
	"github.com/calldeck/calldeck/pkg/models"
)

// FleetAPI is the slice of the API client the scheduler depends upon.
type FleetAPI interface {
	Devices(ctx context.Context, deviceType string) ([]fleetapi.DeviceSummary, error)
	DeviceDetails(ctx context.Context, deviceID string) (*fleetapi.DeviceSummary, error)
	WorkspaceDetails(ctx context.Context, workspaceID string) (*fleetapi.Workspace, error)
	LocationDetails(ctx context.Context, locationID string) (*fleetapi.Location, error)
	SystemUnitInfo(ctx context.Context, deviceID string) (*fleetapi.SystemUnit, error)
	RoomAnalyticsInfo(ctx context.Context, deviceID string) (*fleetapi.RoomAnalytics, error)
	AudioInfo(ctx context.Context, deviceID string) (*fleetapi.AudioState, error)
	Peripherals(ctx context.Context, deviceID string) ([]fleetapi.PeripheralInfo, error)
	ActiveCalls(ctx context.Context, deviceIDs []string) ([]fleetapi.ActiveCall, error)
	CallHistory(ctx context.Context, deviceIDs []string) (map[string][]fleetapi.CallHistoryEntry, error)
	CallMediaChannels(ctx context.Context, deviceID string, callID int) (*models.CallMediaChannels, error)
}

// Store is the slice of the persistent store the scheduler depends upon.
type Store interface {
	UpsertDevice(device *models.Device) error
	DeleteDevice(deviceID string) error
	GetDevice(deviceID string) (*models.Device, error)
	ListDevices() ([]models.Device, error)
	DeviceIDs() ([]string, error)
	InsertCallRecords(records []models.CallRecord, retentionCutoff time.Time) (int, error)
	PruneOlderThan(cutoff time.Time) (int64, error)
}

// Clock abstracts time so job scheduling is testable without real delays.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker is the tick source used by the job loops.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}
