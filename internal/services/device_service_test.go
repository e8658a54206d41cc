package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceService_PairDefaultsType(t *testing.T) {
	f := newSyncFixture(t, time.UTC)

	device, created, err := f.registry.Pair(context.Background(), f.userID, PairDeviceRequest{
		DeviceID:   "watch-1",
		DeviceName: "My Watch",
		Brand:      "Acme",
		Model:      "X1",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.DeviceTypeSmartwatch, device.DeviceType)
	assert.True(t, device.IsConnected)
	assert.True(t, device.IsActive)
}

// Pairing an existing device id reactivates it instead of duplicating it.
func TestDeviceService_PairReactivation(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "watch-1")

	_, err := f.registry.UpdateStatus(ctx, f.userID, "watch-1", models.DeviceStatus{IsConnected: false})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	device, created, err := f.registry.Pair(ctx, f.userID, PairDeviceRequest{
		DeviceID:   "watch-1",
		DeviceName: "Watch watch-1",
		Brand:      "Acme",
		Model:      "X1",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, device.IsConnected)
	require.NotNil(t, device.LastSync)
	assert.True(t, f.clock.Now().Equal(*device.LastSync))

	devices, err := f.registry.ListDevices(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestDeviceService_UpdateStatus(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "watch-1")

	battery, signal := 64, 90
	device, err := f.registry.UpdateStatus(ctx, f.userID, "watch-1", models.DeviceStatus{
		IsConnected:    true,
		BatteryLevel:   &battery,
		SignalStrength: &signal,
	})
	require.NoError(t, err)
	assert.Equal(t, 64, *device.BatteryLevel)
	assert.Equal(t, 90, *device.SignalStrength)

	presence, err := f.presence.GetPresence(ctx, f.userID, "watch-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOnline), presence.Status)
	assert.Equal(t, 64, *presence.BatteryLevel)

	device, err = f.registry.UpdateStatus(ctx, f.userID, "watch-1", models.DeviceStatus{IsConnected: false})
	require.NoError(t, err)
	assert.False(t, device.IsConnected)
	assert.NotNil(t, device.LastDisconnected)
	assert.Equal(t, 64, *device.BatteryLevel)

	presence, err = f.presence.GetPresence(ctx, f.userID, "watch-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), presence.Status)

	_, err = f.registry.UpdateStatus(ctx, f.userID, "ghost", models.DeviceStatus{IsConnected: true})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

// A presence store outage does not fail registry operations.
func TestDeviceService_PresenceIsBestEffort(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "watch-1")
	f.presence.Err = errors.New("redis down")

	_, err := f.registry.UpdateStatus(ctx, f.userID, "watch-1", models.DeviceStatus{IsConnected: true})
	require.NoError(t, err)

	devices, err := f.registry.ListDevices(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Nil(t, devices[0].Presence)

	require.NoError(t, f.registry.Unpair(ctx, f.userID, "watch-1"))
}

// Unpairing hides the device and its health rows.
func TestDeviceService_UnpairCascade(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "watch-1")
	f.pair(t, "band-1")

	for _, id := range []string{"watch-1", "band-1"} {
		_, err := f.engine.Sync(ctx, f.userID, id, SyncRequest{
			Samples: decodeSamples(t, `[{"date":"2024-01-05","steps":10}]`),
		})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	require.NoError(t, f.registry.Unpair(ctx, f.userID, "watch-1"))

	devices, err := f.registry.ListDevices(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "band-1", devices[0].DeviceID)

	rows, err := f.engine.HealthHistory(ctx, f.userID, "watch-1", models.HealthDataFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = f.engine.HealthHistory(ctx, f.userID, "band-1", models.HealthDataFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	presence, err := f.presence.GetPresence(ctx, f.userID, "watch-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), presence.Status)

	err = f.registry.Unpair(ctx, f.userID, "watch-1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

// Re-pairing after an unpair makes the device's history visible again once
// it syncs.
func TestDeviceService_RepairAfterUnpair(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "watch-1")
	require.NoError(t, f.registry.Unpair(ctx, f.userID, "watch-1"))

	f.pair(t, "watch-1")
	devices, err := f.registry.ListDevices(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].IsActive)
}

func TestDeviceService_ListOrdersByLastSync(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "a")
	f.pair(t, "b")
	f.pair(t, "never")

	for _, id := range []string{"b", "a"} {
		f.clock.Advance(time.Minute)
		_, err := f.engine.Sync(ctx, f.userID, id, SyncRequest{Samples: decodeSamples(t, `[{"steps":1}]`)})
		require.NoError(t, err)
	}

	devices, err := f.registry.ListDevices(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "a", devices[0].DeviceID)
	assert.Equal(t, "b", devices[1].DeviceID)
	assert.Equal(t, "never", devices[2].DeviceID)
	require.NotNil(t, devices[0].Presence)
	assert.Equal(t, string(models.StatusOnline), devices[0].Presence.Status)
}

func TestDeviceService_GetDeviceWithPresence(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	ctx := context.Background()
	f.pair(t, "watch-1")
	battery := 42
	_, err := f.registry.UpdateStatus(ctx, f.userID, "watch-1", models.DeviceStatus{IsConnected: true, BatteryLevel: &battery})
	require.NoError(t, err)

	device, err := f.registry.GetDevice(ctx, f.userID, "watch-1")
	require.NoError(t, err)
	assert.Equal(t, "watch-1", device.DeviceID)
	require.NotNil(t, device.Presence)
	assert.Equal(t, string(models.StatusOnline), device.Presence.Status)
	require.NotNil(t, device.Presence.BatteryLevel)
	assert.Equal(t, 42, *device.Presence.BatteryLevel)

	_, err = f.registry.GetDevice(ctx, f.userID, "ghost")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	require.NoError(t, f.registry.Unpair(ctx, f.userID, "watch-1"))
	_, err = f.registry.GetDevice(ctx, f.userID, "watch-1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeviceService_GetDeviceWithoutPresenceStore(t *testing.T) {
	f := newSyncFixture(t, time.UTC)
	f.pair(t, "watch-1")
	f.presence.Err = errors.New("redis down")

	device, err := f.registry.GetDevice(context.Background(), f.userID, "watch-1")
	require.NoError(t, err)
	assert.Equal(t, "watch-1", device.DeviceID)
	assert.Nil(t, device.Presence)
}
