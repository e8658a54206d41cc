package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/middleware"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/prudhvinik1/fitsync/internal/services"
)

// DeviceRegistry is the device operations the HTTP layer needs.
type DeviceRegistry interface {
	Pair(ctx context.Context, userID uuid.UUID, req services.PairDeviceRequest) (*models.Device, bool, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, deviceID string, status models.DeviceStatus) (*models.Device, error)
	Unpair(ctx context.Context, userID uuid.UUID, deviceID string) error
	ListDevices(ctx context.Context, userID uuid.UUID) ([]*models.Device, error)
	GetDevice(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Device, error)
}

type DeviceHandler struct {
	devices DeviceRegistry
	log     *slog.Logger
}

func NewDeviceHandler(devices DeviceRegistry, log *slog.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, log: log}
}

type pairDeviceRequest struct {
	DeviceID        string  `json:"deviceId" validate:"required,max=128"`
	DeviceName      string  `json:"deviceName" validate:"required,max=128"`
	DeviceType      string  `json:"deviceType" validate:"omitempty,oneof=smartwatch fitness-band phone tablet health-monitor"`
	Brand           string  `json:"brand" validate:"required,max=128"`
	Model           string  `json:"model" validate:"required,max=128"`
	MacAddress      *string `json:"macAddress" validate:"omitempty,max=64"`
	FirmwareVersion *string `json:"firmwareVersion" validate:"omitempty,max=64"`
}

type updateStatusRequest struct {
	IsConnected    *bool `json:"isConnected" validate:"required"`
	BatteryLevel   *int  `json:"batteryLevel" validate:"omitempty,gte=0,lte=100"`
	SignalStrength *int  `json:"signalStrength" validate:"omitempty,gte=0,lte=100"`
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	devices, err := h.devices.ListDevices(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	device, err := h.devices.GetDevice(r.Context(), userID, chi.URLParam(r, "deviceId"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) Pair(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req pairDeviceRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	device, created, err := h.devices.Pair(r.Context(), userID, services.PairDeviceRequest{
		DeviceID:        req.DeviceID,
		DeviceName:      req.DeviceName,
		DeviceType:      models.DeviceType(req.DeviceType),
		Brand:           req.Brand,
		Model:           req.Model,
		MacAddress:      req.MacAddress,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, device)
}

func (h *DeviceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req updateStatusRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	device, err := h.devices.UpdateStatus(r.Context(), userID, chi.URLParam(r, "deviceId"), models.DeviceStatus{
		IsConnected:    *req.IsConnected,
		BatteryLevel:   req.BatteryLevel,
		SignalStrength: req.SignalStrength,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) Unpair(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := h.devices.Unpair(r.Context(), userID, chi.URLParam(r, "deviceId")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Device unpaired successfully"})
}
