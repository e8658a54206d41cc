package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/fitsync/internal/models"
)

const deviceColumns = `id, user_id, device_id, device_name, device_type, brand, model,
	mac_address, firmware_version, is_connected, battery_level, signal_strength,
	last_sync, last_connected, last_disconnected, is_active, created_at, updated_at`

type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

// Pair relies on xmax = 0 being true only for freshly inserted tuples.
func (r *PostgresDeviceRepository) Pair(ctx context.Context, device *models.Device, now time.Time) (bool, error) {
	query := `INSERT INTO devices (user_id, device_id, device_name, device_type, brand, model,
	                               mac_address, firmware_version, is_connected, last_connected,
	                               is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, TRUE, $9, $9)
	          ON CONFLICT (user_id, device_id) DO UPDATE
	          SET is_connected = TRUE,
	              is_active = TRUE,
	              last_connected = $9,
	              last_sync = $9,
	              updated_at = $9
	          RETURNING ` + deviceColumns + `, (xmax = 0) AS inserted`

	var inserted bool
	var deviceType string
	err := r.pool.QueryRow(ctx, query,
		device.UserID,
		device.DeviceID,
		device.DeviceName,
		string(device.DeviceType),
		device.Brand,
		device.Model,
		device.MacAddress,
		device.FirmwareVersion,
		now,
	).Scan(
		&device.ID,
		&device.UserID,
		&device.DeviceID,
		&device.DeviceName,
		&deviceType,
		&device.Brand,
		&device.Model,
		&device.MacAddress,
		&device.FirmwareVersion,
		&device.IsConnected,
		&device.BatteryLevel,
		&device.SignalStrength,
		&device.LastSync,
		&device.LastConnected,
		&device.LastDisconnected,
		&device.IsActive,
		&device.CreatedAt,
		&device.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return false, fmt.Errorf("failed to pair device: %w", err)
	}

	device.DeviceType = models.DeviceType(deviceType)
	return inserted, nil
}

func (r *PostgresDeviceRepository) GetByDeviceID(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + `
	          FROM devices
	          WHERE user_id = $1 AND device_id = $2`

	device, err := scanDevice(r.pool.QueryRow(ctx, query, userID, deviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

func (r *PostgresDeviceRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + `
	          FROM devices
	          WHERE user_id = $1 AND is_active
	          ORDER BY last_sync DESC NULLS LAST, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*models.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

// UpdateStatus leaves battery and signal untouched when the report omits them.
func (r *PostgresDeviceRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, deviceID string, status models.DeviceStatus, now time.Time) (*models.Device, error) {
	query := `UPDATE devices
	          SET is_connected = $3,
	              battery_level = COALESCE($4, battery_level),
	              signal_strength = COALESCE($5, signal_strength),
	              last_connected = CASE WHEN $3 THEN $6 ELSE last_connected END,
	              last_disconnected = CASE WHEN $3 THEN last_disconnected ELSE $6 END,
	              updated_at = $6
	          WHERE user_id = $1 AND device_id = $2
	          RETURNING ` + deviceColumns

	device, err := scanDevice(r.pool.QueryRow(ctx, query,
		userID,
		deviceID,
		status.IsConnected,
		status.BatteryLevel,
		status.SignalStrength,
		now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update device status: %w", err)
	}
	return device, nil
}

func (r *PostgresDeviceRepository) Deactivate(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	query := `UPDATE devices
	          SET is_active = FALSE, is_connected = FALSE, last_disconnected = $3, updated_at = $3
	          WHERE user_id = $1 AND device_id = $2 AND is_active`

	result, err := r.pool.Exec(ctx, query, userID, deviceID, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDeviceRepository) TouchLastSync(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	query := `UPDATE devices SET last_sync = $3, updated_at = $3
	          WHERE user_id = $1 AND device_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, deviceID, now)
	if err != nil {
		return fmt.Errorf("failed to update device last sync: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	var device models.Device
	var deviceType string
	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.DeviceID,
		&device.DeviceName,
		&deviceType,
		&device.Brand,
		&device.Model,
		&device.MacAddress,
		&device.FirmwareVersion,
		&device.IsConnected,
		&device.BatteryLevel,
		&device.SignalStrength,
		&device.LastSync,
		&device.LastConnected,
		&device.LastDisconnected,
		&device.IsActive,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	device.DeviceType = models.DeviceType(deviceType)
	return &device, nil
}
