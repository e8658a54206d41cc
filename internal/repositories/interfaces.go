package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DeviceRepository interface {
	// Pair inserts the device, or reactivates the row that already exists for
	// (user, deviceID). created reports which branch ran.
	Pair(ctx context.Context, device *models.Device, now time.Time) (created bool, err error)
	// GetByDeviceID returns the device whether or not it is active.
	GetByDeviceID(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Device, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*models.Device, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, deviceID string, status models.DeviceStatus, now time.Time) (*models.Device, error)
	// Deactivate returns ErrNotFound when the device is absent or already inactive.
	Deactivate(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error
	TouchLastSync(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error
}

type HealthDataRepository interface {
	// Upsert writes the point keyed by (user, device, date). Present metrics
	// overwrite, absent ones keep their stored value.
	Upsert(ctx context.Context, point *models.HealthDataPoint) error
	ListByDevice(ctx context.Context, userID uuid.UUID, deviceID string, filter models.HealthDataFilter) ([]*models.HealthDataPoint, error)
	DeactivateByDevice(ctx context.Context, userID uuid.UUID, deviceID string) (int64, error)
}

type SyncSessionRepository interface {
	Create(ctx context.Context, session *models.SyncSession) error
	GetBySessionID(ctx context.Context, userID uuid.UUID, sessionID string) (*models.SyncSession, error)
	// Heartbeat records activity on an in-progress session. It is a no-op for
	// sessions that already left in-progress.
	Heartbeat(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) error
	// Complete moves an in-progress session, or one failed as abandoned, to
	// completed. Cancel only moves in-progress sessions.
	Complete(ctx context.Context, userID uuid.UUID, sessionID string, counters models.SyncCounters, syncErrors []models.SyncError, endTime time.Time) error
	Cancel(ctx context.Context, userID uuid.UUID, sessionID string, endTime time.Time) (*models.SyncSession, error)
	// FailStale marks the user's in-progress sessions with no activity since
	// cutoff as failed.
	FailStale(ctx context.Context, userID uuid.UUID, cutoff, now time.Time) (int64, error)
	ListByDevice(ctx context.Context, userID uuid.UUID, deviceID string, limit int) ([]*models.SyncSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SyncSession, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Presence, error)
	DeletePresence(ctx context.Context, userID uuid.UUID, deviceID string) error
	GetBulkPresence(ctx context.Context, userID uuid.UUID, deviceIDs []string) (map[string]models.Presence, error)
}
