package models

import (
	"time"

	"github.com/google/uuid"
)

type DeviceType string

const (
	DeviceTypeSmartwatch    DeviceType = "smartwatch"
	DeviceTypeFitnessBand   DeviceType = "fitness-band"
	DeviceTypePhone         DeviceType = "phone"
	DeviceTypeTablet        DeviceType = "tablet"
	DeviceTypeHealthMonitor DeviceType = "health-monitor"
)

// Device is a wearable paired by a user. DeviceID is the vendor-assigned
// identifier and is unique per user.
type Device struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"userId"`
	DeviceID         string     `json:"deviceId"`
	DeviceName       string     `json:"deviceName"`
	DeviceType       DeviceType `json:"deviceType"`
	Brand            string     `json:"brand"`
	Model            string     `json:"model"`
	MacAddress       *string    `json:"macAddress,omitempty"`
	FirmwareVersion  *string    `json:"firmwareVersion,omitempty"`
	IsConnected      bool       `json:"isConnected"`
	BatteryLevel     *int       `json:"batteryLevel,omitempty"`
	SignalStrength   *int       `json:"signalStrength,omitempty"`
	LastSync         *time.Time `json:"lastSync,omitempty"`
	LastConnected    *time.Time `json:"lastConnected,omitempty"`
	LastDisconnected *time.Time `json:"lastDisconnected,omitempty"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	// Presence is filled from the presence store when listing devices.
	Presence *Presence `json:"presence,omitempty"`
}

// DeviceStatus is a connection report from the client.
type DeviceStatus struct {
	IsConnected    bool
	BatteryLevel   *int
	SignalStrength *int
}
