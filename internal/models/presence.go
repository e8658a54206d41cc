package models

import (
	"time"

	"github.com/google/uuid"
)

// Presence is the last connection state a device reported. It lives only in
// the presence store and expires to offline.
type Presence struct {
	UserID         uuid.UUID `json:"userId"`
	DeviceID       string    `json:"deviceId"`
	Status         string    `json:"status"`
	BatteryLevel   *int      `json:"batteryLevel,omitempty"`
	SignalStrength *int      `json:"signalStrength,omitempty"`
	LastSeen       time.Time `json:"lastSeen"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)
