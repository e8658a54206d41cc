package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/prudhvinik1/fitsync/internal/repositories"
)

var ErrDeviceNotFound = errors.New("device not found")

// DeviceService is the device registry. Presence writes are best effort: a
// Redis outage never fails a registry operation.
type DeviceService struct {
	deviceRepo     repositories.DeviceRepository
	healthDataRepo repositories.HealthDataRepository
	presenceRepo   repositories.PresenceRepository
	clock          Clock
	log            *slog.Logger
}

type PairDeviceRequest struct {
	DeviceID        string
	DeviceName      string
	DeviceType      models.DeviceType
	Brand           string
	Model           string
	MacAddress      *string
	FirmwareVersion *string
}

func NewDeviceService(
	deviceRepo repositories.DeviceRepository,
	healthDataRepo repositories.HealthDataRepository,
	presenceRepo repositories.PresenceRepository,
	clock Clock,
	log *slog.Logger,
) *DeviceService {
	return &DeviceService{
		deviceRepo:     deviceRepo,
		healthDataRepo: healthDataRepo,
		presenceRepo:   presenceRepo,
		clock:          clock,
		log:            log.With("component", "devices"),
	}
}

// Pair registers the device or reactivates an earlier pairing of the same
// device id. created is false on reactivation.
func (s *DeviceService) Pair(ctx context.Context, userID uuid.UUID, req PairDeviceRequest) (*models.Device, bool, error) {
	deviceType := req.DeviceType
	if deviceType == "" {
		deviceType = models.DeviceTypeSmartwatch
	}

	device := &models.Device{
		UserID:          userID,
		DeviceID:        req.DeviceID,
		DeviceName:      req.DeviceName,
		DeviceType:      deviceType,
		Brand:           req.Brand,
		Model:           req.Model,
		MacAddress:      req.MacAddress,
		FirmwareVersion: req.FirmwareVersion,
	}

	now := s.clock.Now()
	created, err := s.deviceRepo.Pair(ctx, device, now)
	if err != nil {
		return nil, false, err
	}

	s.log.Info("device paired", "user_id", userID, "device_id", device.DeviceID, "created", created)
	s.recordPresence(ctx, device, models.DeviceStatus{IsConnected: true})
	return device, created, nil
}

func (s *DeviceService) UpdateStatus(ctx context.Context, userID uuid.UUID, deviceID string, status models.DeviceStatus) (*models.Device, error) {
	device, err := s.deviceRepo.UpdateStatus(ctx, userID, deviceID, status, s.clock.Now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	s.recordPresence(ctx, device, status)
	return device, nil
}

// GetDevice returns one active device with its live presence attached.
func (s *DeviceService) GetDevice(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Device, error) {
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

	presence, err := s.presenceRepo.GetPresence(ctx, userID, deviceID)
	if err != nil {
		s.log.Warn("failed to load presence", "user_id", userID, "device_id", deviceID, "error", err)
		return device, nil
	}
	device.Presence = presence
	return device, nil
}

// Unpair soft-deletes the device and hides its health history.
func (s *DeviceService) Unpair(ctx context.Context, userID uuid.UUID, deviceID string) error {
	err := s.deviceRepo.Deactivate(ctx, userID, deviceID, s.clock.Now())
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrDeviceNotFound
	}
	if err != nil {
		return err
	}

	rows, err := s.healthDataRepo.DeactivateByDevice(ctx, userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to deactivate health data: %w", err)
	}

	if err := s.presenceRepo.DeletePresence(ctx, userID, deviceID); err != nil {
		s.log.Warn("failed to clear presence", "user_id", userID, "device_id", deviceID, "error", err)
	}

	s.log.Info("device unpaired", "user_id", userID, "device_id", deviceID, "health_rows", rows)
	return nil
}

// ListDevices returns the user's active devices, most recently synced first,
// with their current presence attached.
func (s *DeviceService) ListDevices(ctx context.Context, userID uuid.UUID) ([]*models.Device, error) {
	devices, err := s.deviceRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return devices, nil
	}

	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.DeviceID
	}

	presence, err := s.presenceRepo.GetBulkPresence(ctx, userID, ids)
	if err != nil {
		s.log.Warn("failed to load presence", "user_id", userID, "error", err)
		return devices, nil
	}

	for _, d := range devices {
		if p, ok := presence[d.DeviceID]; ok {
			d.Presence = &p
		}
	}
	return devices, nil
}

func (s *DeviceService) recordPresence(ctx context.Context, device *models.Device, status models.DeviceStatus) {
	state := models.StatusOffline
	if status.IsConnected {
		state = models.StatusOnline
	}

	err := s.presenceRepo.SetPresence(ctx, &models.Presence{
		UserID:         device.UserID,
		DeviceID:       device.DeviceID,
		Status:         string(state),
		BatteryLevel:   device.BatteryLevel,
		SignalStrength: device.SignalStrength,
		LastSeen:       s.clock.Now(),
	})
	if err != nil {
		s.log.Warn("failed to record presence", "user_id", device.UserID, "device_id", device.DeviceID, "error", err)
	}
}
