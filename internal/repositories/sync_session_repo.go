package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/fitsync/internal/models"
)

// ErrNotInProgress is returned when a session transition is attempted on a
// session that already left the in-progress state.
var ErrNotInProgress = errors.New("sync session is not in progress")

const syncSessionColumns = `id, session_id, user_id, device_id, device_name, start_time, end_time,
	status, data_points, bytes_transferred, health_data_count, workout_data_count,
	sleep_data_count, errors, sync_type, created_at, updated_at`

type PostgresSyncSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSyncSessionRepository(pool *pgxpool.Pool) *PostgresSyncSessionRepository {
	return &PostgresSyncSessionRepository{pool: pool}
}

func (r *PostgresSyncSessionRepository) Create(ctx context.Context, session *models.SyncSession) error {
	query := `INSERT INTO sync_sessions (session_id, user_id, device_id, device_name, start_time,
	                                     status, sync_type, errors, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $5, $5)
	          RETURNING id, created_at, updated_at`

	if session.Errors == nil {
		session.Errors = []models.SyncError{}
	}
	syncErrors, err := json.Marshal(session.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode sync errors: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		session.SessionID,
		session.UserID,
		session.DeviceID,
		session.DeviceName,
		session.StartTime,
		string(session.Status),
		string(session.SyncType),
		syncErrors,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sync session: %w", err)
	}
	return nil
}

func (r *PostgresSyncSessionRepository) GetBySessionID(ctx context.Context, userID uuid.UUID, sessionID string) (*models.SyncSession, error) {
	query := `SELECT ` + syncSessionColumns + `
	          FROM sync_sessions
	          WHERE user_id = $1 AND session_id = $2`

	session, err := scanSyncSession(r.pool.QueryRow(ctx, query, userID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync session: %w", err)
	}
	return session, nil
}

func (r *PostgresSyncSessionRepository) Heartbeat(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) error {
	query := `UPDATE sync_sessions SET updated_at = $3
	          WHERE user_id = $1 AND session_id = $2 AND status = 'in-progress'`

	if _, err := r.pool.Exec(ctx, query, userID, sessionID, now); err != nil {
		return fmt.Errorf("failed to record sync session activity: %w", err)
	}
	return nil
}

// Complete also accepts a session that reconciliation failed as abandoned,
// dropping the SYNC_ABANDONED entries, since the sync did finish.
func (r *PostgresSyncSessionRepository) Complete(ctx context.Context, userID uuid.UUID, sessionID string, counters models.SyncCounters, syncErrors []models.SyncError, endTime time.Time) error {
	query := `UPDATE sync_sessions
	          SET status = 'completed',
	              end_time = $3,
	              data_points = $4,
	              bytes_transferred = $5,
	              health_data_count = $6,
	              workout_data_count = $7,
	              sleep_data_count = $8,
	              errors = COALESCE(
	                  (SELECT jsonb_agg(e ORDER BY i)
	                   FROM jsonb_array_elements(errors) WITH ORDINALITY AS t(e, i)
	                   WHERE e->>'code' IS DISTINCT FROM $10),
	                  '[]'::jsonb) || $9::jsonb,
	              updated_at = $3
	          WHERE user_id = $1 AND session_id = $2
	            AND (status = 'in-progress'
	                 OR (status = 'failed' AND errors @> jsonb_build_array(jsonb_build_object('code', $10::text))))`

	if syncErrors == nil {
		syncErrors = []models.SyncError{}
	}
	encoded, err := json.Marshal(syncErrors)
	if err != nil {
		return fmt.Errorf("failed to encode sync errors: %w", err)
	}

	result, err := r.pool.Exec(ctx, query,
		userID,
		sessionID,
		endTime,
		counters.DataPoints,
		int64(counters.DataPoints)*models.BytesPerDataPoint,
		counters.HealthDataCount,
		counters.WorkoutDataCount,
		counters.SleepDataCount,
		encoded,
		models.SyncErrorAbandoned,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.transitionMiss(ctx, userID, sessionID)
	}
	return nil
}

func (r *PostgresSyncSessionRepository) Cancel(ctx context.Context, userID uuid.UUID, sessionID string, endTime time.Time) (*models.SyncSession, error) {
	query := `UPDATE sync_sessions
	          SET status = 'cancelled', end_time = $3, updated_at = $3
	          WHERE user_id = $1 AND session_id = $2 AND status = 'in-progress'
	          RETURNING ` + syncSessionColumns

	session, err := scanSyncSession(r.pool.QueryRow(ctx, query, userID, sessionID, endTime))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.transitionMiss(ctx, userID, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sync session: %w", err)
	}
	return session, nil
}

func (r *PostgresSyncSessionRepository) FailStale(ctx context.Context, userID uuid.UUID, cutoff, now time.Time) (int64, error) {
	query := `UPDATE sync_sessions
	          SET status = 'failed',
	              end_time = $3,
	              errors = errors || $4::jsonb,
	              updated_at = $3
	          WHERE user_id = $1 AND status = 'in-progress' AND updated_at < $2`

	entry, err := json.Marshal([]models.SyncError{{
		Timestamp: now,
		Message:   "sync did not complete",
		Code:      models.SyncErrorAbandoned,
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to encode sync error: %w", err)
	}

	result, err := r.pool.Exec(ctx, query, userID, cutoff, now, entry)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale sync sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresSyncSessionRepository) ListByDevice(ctx context.Context, userID uuid.UUID, deviceID string, limit int) ([]*models.SyncSession, error) {
	query := `SELECT ` + syncSessionColumns + `
	          FROM sync_sessions
	          WHERE user_id = $1 AND device_id = $2
	          ORDER BY start_time DESC
	          LIMIT $3`

	return r.list(ctx, query, userID, deviceID, limit)
}

func (r *PostgresSyncSessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SyncSession, error) {
	query := `SELECT ` + syncSessionColumns + `
	          FROM sync_sessions
	          WHERE user_id = $1
	          ORDER BY start_time DESC
	          LIMIT $2`

	return r.list(ctx, query, userID, limit)
}

func (r *PostgresSyncSessionRepository) list(ctx context.Context, query string, args ...any) ([]*models.SyncSession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.SyncSession, 0)
	for rows.Next() {
		session, err := scanSyncSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync sessions: %w", err)
	}
	return sessions, nil
}

// transitionMiss tells an absent session apart from one that already left
// in-progress after a guarded UPDATE touched no rows.
func (r *PostgresSyncSessionRepository) transitionMiss(ctx context.Context, userID uuid.UUID, sessionID string) error {
	_, err := r.GetBySessionID(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	return ErrNotInProgress
}

func scanSyncSession(row pgx.Row) (*models.SyncSession, error) {
	var session models.SyncSession
	var status, syncType string
	var syncErrors []byte

	err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.UserID,
		&session.DeviceID,
		&session.DeviceName,
		&session.StartTime,
		&session.EndTime,
		&status,
		&session.DataPoints,
		&session.BytesTransferred,
		&session.HealthDataCount,
		&session.WorkoutDataCount,
		&session.SleepDataCount,
		&syncErrors,
		&syncType,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Status = models.SyncStatus(status)
	session.SyncType = models.SyncType(syncType)
	session.Errors = []models.SyncError{}
	if len(syncErrors) > 0 {
		if err := json.Unmarshal(syncErrors, &session.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode sync errors: %w", err)
		}
	}
	return &session, nil
}
