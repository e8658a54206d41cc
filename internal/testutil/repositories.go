package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/prudhvinik1/fitsync/internal/repositories"
)

// ErrInjected is returned by repositories configured to fail.
var ErrInjected = errors.New("injected storage failure")

// UserRepository is an in-memory repositories.UserRepository.
type UserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]models.User)}
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, user.Email) {
			return errors.New("duplicate email")
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[user.ID]
	if !ok || u.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	r.users[id] = u
	return nil
}

// SessionRepository is an in-memory repositories.SessionRepository. Expiry
// is checked against its clock.
type SessionRepository struct {
	mu       sync.Mutex
	clock    interface{ Now() time.Time }
	sessions map[string]models.Session
}

func NewSessionRepository(clock interface{ Now() time.Time }) *SessionRepository {
	return &SessionRepository{clock: clock, sessions: make(map[string]models.Session)}
}

func (r *SessionRepository) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(r.clock.Now()) {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepository) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Session, 0)
	for _, s := range r.sessions {
		if s.UserID == userID && s.ExpiresAt.After(r.clock.Now()) {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

type deviceKey struct {
	userID   uuid.UUID
	deviceID string
}

// DeviceRepository is an in-memory repositories.DeviceRepository.
type DeviceRepository struct {
	mu      sync.Mutex
	devices map[deviceKey]models.Device
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{devices: make(map[deviceKey]models.Device)}
}

func (r *DeviceRepository) Pair(_ context.Context, device *models.Device, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := deviceKey{device.UserID, device.DeviceID}
	if existing, ok := r.devices[key]; ok {
		existing.IsConnected = true
		existing.IsActive = true
		existing.LastConnected = &now
		existing.LastSync = &now
		existing.UpdatedAt = now
		r.devices[key] = existing
		*device = existing
		return false, nil
	}

	device.ID = uuid.New()
	device.IsConnected = true
	device.IsActive = true
	device.LastConnected = &now
	device.CreatedAt = now
	device.UpdatedAt = now
	r.devices[key] = *device
	return true, nil
}

func (r *DeviceRepository) GetByDeviceID(_ context.Context, userID uuid.UUID, deviceID string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[deviceKey{userID, deviceID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (r *DeviceRepository) ListActive(_ context.Context, userID uuid.UUID) ([]*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Device, 0)
	for _, d := range r.devices {
		if d.UserID == userID && d.IsActive {
			out = append(out, &d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastSync, out[j].LastSync
		switch {
		case a == nil && b == nil:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

func (r *DeviceRepository) UpdateStatus(_ context.Context, userID uuid.UUID, deviceID string, status models.DeviceStatus, now time.Time) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := deviceKey{userID, deviceID}
	d, ok := r.devices[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	d.IsConnected = status.IsConnected
	if status.BatteryLevel != nil {
		d.BatteryLevel = status.BatteryLevel
	}
	if status.SignalStrength != nil {
		d.SignalStrength = status.SignalStrength
	}
	if status.IsConnected {
		d.LastConnected = &now
	} else {
		d.LastDisconnected = &now
	}
	d.UpdatedAt = now
	r.devices[key] = d
	return &d, nil
}

func (r *DeviceRepository) Deactivate(_ context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := deviceKey{userID, deviceID}
	d, ok := r.devices[key]
	if !ok || !d.IsActive {
		return repositories.ErrNotFound
	}
	d.IsActive = false
	d.IsConnected = false
	d.LastDisconnected = &now
	d.UpdatedAt = now
	r.devices[key] = d
	return nil
}

func (r *DeviceRepository) TouchLastSync(_ context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := deviceKey{userID, deviceID}
	d, ok := r.devices[key]
	if !ok {
		return repositories.ErrNotFound
	}
	d.LastSync = &now
	d.UpdatedAt = now
	r.devices[key] = d
	return nil
}

type healthKey struct {
	userID   uuid.UUID
	deviceID string
	date     string
}

// HealthDataRepository is an in-memory repositories.HealthDataRepository
// that merges upserts the way the Postgres statement does.
type HealthDataRepository struct {
	mu     sync.Mutex
	points map[healthKey]models.HealthDataPoint

	// FailAfter makes every upsert after the first FailAfter ones fail.
	// Zero disables the failure.
	FailAfter int
	upserts   int
}

func NewHealthDataRepository() *HealthDataRepository {
	return &HealthDataRepository{points: make(map[healthKey]models.HealthDataPoint)}
}

func (r *HealthDataRepository) Upsert(_ context.Context, point *models.HealthDataPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAfter > 0 && r.upserts >= r.FailAfter {
		return ErrInjected
	}
	r.upserts++

	key := healthKey{point.UserID, point.DeviceID, point.Date.Format(time.DateOnly)}
	existing, ok := r.points[key]
	if !ok {
		point.ID = uuid.New()
		point.CreatedAt = point.UpdatedAt
		point.IsActive = true
		r.points[key] = *point
		return nil
	}

	mergeMetrics(&existing.HealthMetrics, point.HealthMetrics)
	if point.SleepStages != nil {
		existing.SleepStages = point.SleepStages
	}
	if point.Workouts != nil {
		existing.Workouts = point.Workouts
	}
	existing.SyncSessionID = point.SyncSessionID
	existing.DataSource = point.DataSource
	existing.IsActive = true
	existing.UpdatedAt = point.UpdatedAt
	r.points[key] = existing

	point.ID = existing.ID
	point.CreatedAt = existing.CreatedAt
	point.IsActive = true
	return nil
}

func mergeMetrics(dst *models.HealthMetrics, src models.HealthMetrics) {
	if src.Steps != nil {
		dst.Steps = src.Steps
	}
	if src.HeartRate != nil {
		dst.HeartRate = src.HeartRate
	}
	if src.Calories != nil {
		dst.Calories = src.Calories
	}
	if src.Distance != nil {
		dst.Distance = src.Distance
	}
	if src.SleepHours != nil {
		dst.SleepHours = src.SleepHours
	}
	if src.ActiveMinutes != nil {
		dst.ActiveMinutes = src.ActiveMinutes
	}
	if src.BloodOxygen != nil {
		dst.BloodOxygen = src.BloodOxygen
	}
	if src.BloodPressure != nil {
		dst.BloodPressure = src.BloodPressure
	}
	if src.Temperature != nil {
		dst.Temperature = src.Temperature
	}
	if src.StressLevel != nil {
		dst.StressLevel = src.StressLevel
	}
}

func (r *HealthDataRepository) ListByDevice(_ context.Context, userID uuid.UUID, deviceID string, filter models.HealthDataFilter) ([]*models.HealthDataPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.HealthDataPoint, 0)
	for _, p := range r.points {
		if p.UserID != userID || p.DeviceID != deviceID || !p.IsActive {
			continue
		}
		if !filter.StartDate.IsZero() && p.Date.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && p.Date.After(filter.EndDate) {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *HealthDataRepository) DeactivateByDevice(_ context.Context, userID uuid.UUID, deviceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, p := range r.points {
		if k.userID == userID && k.deviceID == deviceID && p.IsActive {
			p.IsActive = false
			r.points[k] = p
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored rows, active or not.
func (r *HealthDataRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

type syncSessionKey struct {
	userID    uuid.UUID
	sessionID string
}

// SyncSessionRepository is an in-memory repositories.SyncSessionRepository.
type SyncSessionRepository struct {
	mu       sync.Mutex
	sessions map[syncSessionKey]models.SyncSession
}

func NewSyncSessionRepository() *SyncSessionRepository {
	return &SyncSessionRepository{sessions: make(map[syncSessionKey]models.SyncSession)}
}

func (r *SyncSessionRepository) Create(_ context.Context, session *models.SyncSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := syncSessionKey{session.UserID, session.SessionID}
	if _, ok := r.sessions[key]; ok {
		return errors.New("duplicate sync session id")
	}
	session.ID = uuid.New()
	if session.Errors == nil {
		session.Errors = []models.SyncError{}
	}
	session.CreatedAt = session.StartTime
	session.UpdatedAt = session.StartTime
	r.sessions[key] = *session
	return nil
}

func (r *SyncSessionRepository) GetBySessionID(_ context.Context, userID uuid.UUID, sessionID string) (*models.SyncSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[syncSessionKey{userID, sessionID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r *SyncSessionRepository) Complete(_ context.Context, userID uuid.UUID, sessionID string, counters models.SyncCounters, syncErrors []models.SyncError, endTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := syncSessionKey{userID, sessionID}
	s, ok := r.sessions[key]
	if !ok {
		return repositories.ErrNotFound
	}
	if s.Status != models.SyncStatusInProgress && !abandoned(s) {
		return repositories.ErrNotInProgress
	}
	kept := make([]models.SyncError, 0, len(s.Errors)+len(syncErrors))
	for _, e := range s.Errors {
		if e.Code != models.SyncErrorAbandoned {
			kept = append(kept, e)
		}
	}
	s.Status = models.SyncStatusCompleted
	s.EndTime = &endTime
	s.DataPoints = counters.DataPoints
	s.BytesTransferred = int64(counters.DataPoints) * models.BytesPerDataPoint
	s.HealthDataCount = counters.HealthDataCount
	s.WorkoutDataCount = counters.WorkoutDataCount
	s.SleepDataCount = counters.SleepDataCount
	s.Errors = append(kept, syncErrors...)
	s.UpdatedAt = endTime
	r.sessions[key] = s
	return nil
}

func abandoned(s models.SyncSession) bool {
	if s.Status != models.SyncStatusFailed {
		return false
	}
	for _, e := range s.Errors {
		if e.Code == models.SyncErrorAbandoned {
			return true
		}
	}
	return false
}

func (r *SyncSessionRepository) Heartbeat(_ context.Context, userID uuid.UUID, sessionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := syncSessionKey{userID, sessionID}
	s, ok := r.sessions[key]
	if !ok || s.Status != models.SyncStatusInProgress {
		return nil
	}
	s.UpdatedAt = now
	r.sessions[key] = s
	return nil
}

func (r *SyncSessionRepository) Cancel(_ context.Context, userID uuid.UUID, sessionID string, endTime time.Time) (*models.SyncSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := syncSessionKey{userID, sessionID}
	s, ok := r.sessions[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if s.Status != models.SyncStatusInProgress {
		return nil, repositories.ErrNotInProgress
	}
	s.Status = models.SyncStatusCancelled
	s.EndTime = &endTime
	s.UpdatedAt = endTime
	r.sessions[key] = s
	return &s, nil
}

func (r *SyncSessionRepository) FailStale(_ context.Context, userID uuid.UUID, cutoff, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.sessions {
		if k.userID != userID || s.Status != models.SyncStatusInProgress || !s.UpdatedAt.Before(cutoff) {
			continue
		}
		s.Status = models.SyncStatusFailed
		s.EndTime = &now
		s.Errors = append(s.Errors, models.SyncError{
			Timestamp: now,
			Message:   "sync did not complete",
			Code:      models.SyncErrorAbandoned,
		})
		s.UpdatedAt = now
		r.sessions[k] = s
		n++
	}
	return n, nil
}

func (r *SyncSessionRepository) ListByDevice(_ context.Context, userID uuid.UUID, deviceID string, limit int) ([]*models.SyncSession, error) {
	return r.list(func(s models.SyncSession) bool {
		return s.UserID == userID && s.DeviceID == deviceID
	}, limit), nil
}

func (r *SyncSessionRepository) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.SyncSession, error) {
	return r.list(func(s models.SyncSession) bool { return s.UserID == userID }, limit), nil
}

func (r *SyncSessionRepository) list(match func(models.SyncSession) bool, limit int) []*models.SyncSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.SyncSession, 0)
	for _, s := range r.sessions {
		if match(s) {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PresenceRepository is an in-memory repositories.PresenceRepository. Set
// Err to make every call fail.
type PresenceRepository struct {
	mu       sync.Mutex
	presence map[deviceKey]models.Presence
	Err      error
}

func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{presence: make(map[deviceKey]models.Presence)}
}

func (r *PresenceRepository) SetPresence(_ context.Context, presence *models.Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.presence[deviceKey{presence.UserID, presence.DeviceID}] = *presence
	return nil
}

func (r *PresenceRepository) GetPresence(_ context.Context, userID uuid.UUID, deviceID string) (*models.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	p, ok := r.presence[deviceKey{userID, deviceID}]
	if !ok {
		return &models.Presence{UserID: userID, DeviceID: deviceID, Status: string(models.StatusOffline)}, nil
	}
	return &p, nil
}

func (r *PresenceRepository) DeletePresence(_ context.Context, userID uuid.UUID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.presence, deviceKey{userID, deviceID})
	return nil
}

func (r *PresenceRepository) GetBulkPresence(_ context.Context, userID uuid.UUID, deviceIDs []string) (map[string]models.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make(map[string]models.Presence, len(deviceIDs))
	for _, id := range deviceIDs {
		p, ok := r.presence[deviceKey{userID, id}]
		if !ok {
			p = models.Presence{UserID: userID, DeviceID: id, Status: string(models.StatusOffline)}
		}
		out[id] = p
	}
	return out, nil
}

var (
	_ repositories.UserRepository        = (*UserRepository)(nil)
	_ repositories.SessionRepository     = (*SessionRepository)(nil)
	_ repositories.DeviceRepository      = (*DeviceRepository)(nil)
	_ repositories.HealthDataRepository  = (*HealthDataRepository)(nil)
	_ repositories.SyncSessionRepository = (*SyncSessionRepository)(nil)
	_ repositories.PresenceRepository    = (*PresenceRepository)(nil)
)
