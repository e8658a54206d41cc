package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/fitsync/internal/models"
)

const healthDataColumns = `id, user_id, device_id, date, steps, heart_rate, calories, distance,
	sleep_hours, active_minutes, blood_oxygen, bp_systolic, bp_diastolic, temperature,
	stress_level, sleep_stages, workouts, sync_session_id, data_source, is_active,
	created_at, updated_at`

type PostgresHealthDataRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresHealthDataRepository(pool *pgxpool.Pool) *PostgresHealthDataRepository {
	return &PostgresHealthDataRepository{pool: pool}
}

// Upsert inserts the day's row or overwrites the existing one in a single
// statement, so concurrent writers to the same key never produce duplicates.
// Blood pressure, sleep stages and workouts are replaced as a whole when
// present.
func (r *PostgresHealthDataRepository) Upsert(ctx context.Context, point *models.HealthDataPoint) error {
	query := `INSERT INTO health_data (user_id, device_id, date, steps, heart_rate, calories, distance,
	                                   sleep_hours, active_minutes, blood_oxygen, bp_systolic, bp_diastolic,
	                                   temperature, stress_level, sleep_stages, workouts, sync_session_id,
	                                   data_source, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, TRUE, $19, $19)
	          ON CONFLICT (user_id, device_id, date) DO UPDATE
	          SET steps = COALESCE(EXCLUDED.steps, health_data.steps),
	              heart_rate = COALESCE(EXCLUDED.heart_rate, health_data.heart_rate),
	              calories = COALESCE(EXCLUDED.calories, health_data.calories),
	              distance = COALESCE(EXCLUDED.distance, health_data.distance),
	              sleep_hours = COALESCE(EXCLUDED.sleep_hours, health_data.sleep_hours),
	              active_minutes = COALESCE(EXCLUDED.active_minutes, health_data.active_minutes),
	              blood_oxygen = COALESCE(EXCLUDED.blood_oxygen, health_data.blood_oxygen),
	              bp_systolic = CASE WHEN $20 THEN EXCLUDED.bp_systolic ELSE health_data.bp_systolic END,
	              bp_diastolic = CASE WHEN $20 THEN EXCLUDED.bp_diastolic ELSE health_data.bp_diastolic END,
	              temperature = COALESCE(EXCLUDED.temperature, health_data.temperature),
	              stress_level = COALESCE(EXCLUDED.stress_level, health_data.stress_level),
	              sleep_stages = COALESCE(EXCLUDED.sleep_stages, health_data.sleep_stages),
	              workouts = COALESCE(EXCLUDED.workouts, health_data.workouts),
	              sync_session_id = EXCLUDED.sync_session_id,
	              data_source = EXCLUDED.data_source,
	              is_active = TRUE,
	              updated_at = EXCLUDED.updated_at
	          RETURNING id, created_at`

	var systolic, diastolic *int
	if bp := point.BloodPressure; bp != nil {
		systolic, diastolic = bp.Systolic, bp.Diastolic
	}

	sleepStages, err := marshalNullable(point.SleepStages != nil, point.SleepStages)
	if err != nil {
		return fmt.Errorf("failed to encode sleep stages: %w", err)
	}
	workouts, err := marshalNullable(point.Workouts != nil, point.Workouts)
	if err != nil {
		return fmt.Errorf("failed to encode workouts: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		point.UserID,
		point.DeviceID,
		point.Date,
		point.Steps,
		point.HeartRate,
		point.Calories,
		point.Distance,
		point.SleepHours,
		point.ActiveMinutes,
		point.BloodOxygen,
		systolic,
		diastolic,
		point.Temperature,
		point.StressLevel,
		sleepStages,
		workouts,
		point.SyncSessionID,
		string(point.DataSource),
		point.UpdatedAt,
		point.BloodPressure != nil,
	).Scan(&point.ID, &point.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert health data: %w", err)
	}

	point.IsActive = true
	return nil
}

func (r *PostgresHealthDataRepository) ListByDevice(ctx context.Context, userID uuid.UUID, deviceID string, filter models.HealthDataFilter) ([]*models.HealthDataPoint, error) {
	query := `SELECT ` + healthDataColumns + `
	          FROM health_data
	          WHERE user_id = $1 AND device_id = $2 AND is_active`
	args := []any{userID, deviceID}

	if !filter.StartDate.IsZero() {
		args = append(args, filter.StartDate)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !filter.EndDate.IsZero() {
		args = append(args, filter.EndDate)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}

	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query health data: %w", err)
	}
	defer rows.Close()

	points := make([]*models.HealthDataPoint, 0)
	for rows.Next() {
		point, err := scanHealthData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health data: %w", err)
		}
		points = append(points, point)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating health data: %w", err)
	}
	return points, nil
}

func (r *PostgresHealthDataRepository) DeactivateByDevice(ctx context.Context, userID uuid.UUID, deviceID string) (int64, error) {
	query := `UPDATE health_data SET is_active = FALSE, updated_at = NOW()
	          WHERE user_id = $1 AND device_id = $2 AND is_active`

	result, err := r.pool.Exec(ctx, query, userID, deviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate health data: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanHealthData(row pgx.Row) (*models.HealthDataPoint, error) {
	var point models.HealthDataPoint
	var systolic, diastolic *int
	var sleepStages, workouts []byte
	var dataSource string

	err := row.Scan(
		&point.ID,
		&point.UserID,
		&point.DeviceID,
		&point.Date,
		&point.Steps,
		&point.HeartRate,
		&point.Calories,
		&point.Distance,
		&point.SleepHours,
		&point.ActiveMinutes,
		&point.BloodOxygen,
		&systolic,
		&diastolic,
		&point.Temperature,
		&point.StressLevel,
		&sleepStages,
		&workouts,
		&point.SyncSessionID,
		&dataSource,
		&point.IsActive,
		&point.CreatedAt,
		&point.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	point.DataSource = models.DataSource(dataSource)
	if systolic != nil || diastolic != nil {
		point.BloodPressure = &models.BloodPressure{Systolic: systolic, Diastolic: diastolic}
	}
	if sleepStages != nil {
		if err := json.Unmarshal(sleepStages, &point.SleepStages); err != nil {
			return nil, fmt.Errorf("failed to decode sleep stages: %w", err)
		}
	}
	if workouts != nil {
		if err := json.Unmarshal(workouts, &point.Workouts); err != nil {
			return nil, fmt.Errorf("failed to decode workouts: %w", err)
		}
	}
	return &point, nil
}

// marshalNullable encodes v as JSON, or returns nil (SQL NULL) when absent.
func marshalNullable(present bool, v any) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}
