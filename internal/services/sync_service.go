package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/prudhvinik1/fitsync/internal/repositories"
)

var (
	ErrSessionNotFound      = errors.New("sync session not found")
	ErrSessionNotInProgress = errors.New("sync session is not in progress")
)

const (
	DefaultHealthDataLimit   = 30
	DefaultSyncHistoryLimit  = 20
	DefaultSyncSessionsLimit = 50
	MaxLimit                 = 500
)

// SyncService ingests sample batches from devices and serves the health and
// sync history built from them.
type SyncService struct {
	deviceRepo      repositories.DeviceRepository
	healthDataRepo  repositories.HealthDataRepository
	syncSessionRepo repositories.SyncSessionRepository
	clock           Clock
	location        *time.Location
	staleAfter      time.Duration
	log             *slog.Logger
}

type SyncRequest struct {
	Samples  []models.Sample
	SyncType models.SyncType
}

// NewSyncService normalizes sample days in loc. In-progress sessions older
// than staleAfter are failed before sync history is read.
func NewSyncService(
	deviceRepo repositories.DeviceRepository,
	healthDataRepo repositories.HealthDataRepository,
	syncSessionRepo repositories.SyncSessionRepository,
	clock Clock,
	loc *time.Location,
	staleAfter time.Duration,
	log *slog.Logger,
) *SyncService {
	return &SyncService{
		deviceRepo:      deviceRepo,
		healthDataRepo:  healthDataRepo,
		syncSessionRepo: syncSessionRepo,
		clock:           clock,
		location:        loc,
		staleAfter:      staleAfter,
		log:             log.With("component", "sync"),
	}
}

// Sync writes every sample of the batch into the device's daily rows, in
// input order, and records the call as a sync session. A storage failure
// aborts the call and leaves the session in progress. Long batches record
// activity on the session so history reads do not fail it as abandoned.
func (s *SyncService) Sync(ctx context.Context, userID uuid.UUID, deviceID string, req SyncRequest) (*models.SyncResult, error) {
	device, err := s.deviceRepo.GetByDeviceID(ctx, userID, deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, ErrDeviceNotFound
	}

	syncType := req.SyncType
	if syncType == "" {
		syncType = models.SyncTypeIncremental
	}

	start := s.clock.Now()
	session := &models.SyncSession{
		SessionID:  fmt.Sprintf("sync_%d_%s", start.UnixMilli(), deviceID),
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: device.DeviceName,
		StartTime:  start,
		Status:     models.SyncStatusInProgress,
		SyncType:   syncType,
	}
	if err := s.syncSessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create sync session: %w", err)
	}

	log := s.log.With("user_id", userID, "device_id", deviceID, "session_id", session.SessionID)

	var counters models.SyncCounters
	var syncErrors []models.SyncError
	sessionID := session.SessionID
	lastBeat := start

	for i := range req.Samples {
		sample := &req.Samples[i]

		now := s.clock.Now()
		when := now
		if src, ok := sample.DateSource(); ok {
			parsed, err := src.Parse(s.location)
			if err != nil {
				log.Warn("invalid sample date, using current time", "sample", i, "value", src.String(), "error", err)
				syncErrors = append(syncErrors, models.SyncError{
					Timestamp: now,
					Message:   fmt.Sprintf("sample %d: invalid date %q", i, src.String()),
					Code:      models.SyncErrorInvalidDate,
				})
			} else {
				when = parsed
			}
		}

		point := &models.HealthDataPoint{
			UserID:        userID,
			DeviceID:      deviceID,
			Date:          models.StartOfDay(when, s.location),
			HealthMetrics: sample.HealthMetrics,
			SleepStages:   sample.SleepStages,
			Workouts:      sample.Workouts,
			SyncSessionID: &sessionID,
			DataSource:    models.DataSourceBluetooth,
			UpdatedAt:     now,
		}
		if err := s.healthDataRepo.Upsert(ctx, point); err != nil {
			return nil, fmt.Errorf("failed to store sample %d: %w", i, err)
		}

		counters.Add(sample)

		if now := s.clock.Now(); now.Sub(lastBeat) >= s.heartbeatEvery() {
			if err := s.syncSessionRepo.Heartbeat(ctx, userID, sessionID, now); err != nil {
				return nil, err
			}
			lastBeat = now
		}
	}

	err = s.syncSessionRepo.Complete(ctx, userID, sessionID, counters, syncErrors, s.clock.Now())
	if errors.Is(err, repositories.ErrNotInProgress) {
		return nil, ErrSessionNotInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete sync session: %w", err)
	}

	if err := s.deviceRepo.TouchLastSync(ctx, userID, deviceID, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to update device last sync: %w", err)
	}

	log.Info("sync completed",
		"samples", len(req.Samples),
		"data_points", counters.DataPoints,
		"invalid_dates", len(syncErrors),
	)

	return &models.SyncResult{
		SessionID:    sessionID,
		SyncCounters: counters,
	}, nil
}

// HealthHistory returns the device's active daily rows, newest first. Filter
// bounds are widened to whole days.
func (s *SyncService) HealthHistory(ctx context.Context, userID uuid.UUID, deviceID string, filter models.HealthDataFilter) ([]*models.HealthDataPoint, error) {
	if !filter.StartDate.IsZero() {
		filter.StartDate = models.StartOfDay(filter.StartDate, s.location)
	}
	if !filter.EndDate.IsZero() {
		filter.EndDate = models.StartOfDay(filter.EndDate, s.location)
	}
	filter.Limit = ClampLimit(filter.Limit, DefaultHealthDataLimit)

	return s.healthDataRepo.ListByDevice(ctx, userID, deviceID, filter)
}

func (s *SyncService) DeviceSyncHistory(ctx context.Context, userID uuid.UUID, deviceID string, limit int) ([]*models.SyncSession, error) {
	if err := s.failStale(ctx, userID); err != nil {
		return nil, err
	}
	return s.syncSessionRepo.ListByDevice(ctx, userID, deviceID, ClampLimit(limit, DefaultSyncHistoryLimit))
}

func (s *SyncService) AllSyncSessions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SyncSession, error) {
	if err := s.failStale(ctx, userID); err != nil {
		return nil, err
	}
	return s.syncSessionRepo.ListByUser(ctx, userID, ClampLimit(limit, DefaultSyncSessionsLimit))
}

func (s *SyncService) CancelSession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.SyncSession, error) {
	session, err := s.syncSessionRepo.Cancel(ctx, userID, sessionID, s.clock.Now())
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, ErrSessionNotFound
	case errors.Is(err, repositories.ErrNotInProgress):
		return nil, ErrSessionNotInProgress
	case err != nil:
		return nil, err
	}

	s.log.Info("sync session cancelled", "user_id", userID, "session_id", sessionID)
	return session, nil
}

// heartbeatEvery spaces session activity updates well inside the staleness
// window.
func (s *SyncService) heartbeatEvery() time.Duration {
	return s.staleAfter / 4
}

// failStale closes sessions whose sync call stopped making progress. A sync
// that is only slow keeps its session fresh through heartbeats, and one that
// finishes after being failed still completes.
func (s *SyncService) failStale(ctx context.Context, userID uuid.UUID) error {
	now := s.clock.Now()
	n, err := s.syncSessionRepo.FailStale(ctx, userID, now.Add(-s.staleAfter), now)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Warn("marked abandoned sync sessions as failed", "user_id", userID, "count", n)
	}
	return nil
}

// ClampLimit maps a non-positive limit to def and caps it at MaxLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
