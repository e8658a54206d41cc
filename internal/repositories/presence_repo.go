package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

type RedisPresenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPresenceRepository stores presence entries that expire after ttl
// without a fresh status report.
func NewRedisPresenceRepository(client *redis.Client, ttl time.Duration) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client, ttl: ttl}
}

func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	key := presenceKey(presence.UserID, presence.DeviceID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(userID, deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		// No presence = device is offline
		return offlinePresence(userID, deviceID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

func (r *RedisPresenceRepository) DeletePresence(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if err := r.client.Del(ctx, presenceKey(userID, deviceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// GetBulkPresence retrieves presence for several devices in one round trip.
func (r *RedisPresenceRepository) GetBulkPresence(ctx context.Context, userID uuid.UUID, deviceIDs []string) (map[string]models.Presence, error) {
	presenceMap := make(map[string]models.Presence, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return presenceMap, nil
	}

	keys := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		keys[i] = presenceKey(userID, id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	for i, result := range results {
		deviceID := deviceIDs[i]

		data, ok := result.(string)
		if !ok {
			presenceMap[deviceID] = *offlinePresence(userID, deviceID)
			continue
		}

		var presence models.Presence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			// If we can't unmarshal, treat as offline
			presenceMap[deviceID] = *offlinePresence(userID, deviceID)
			continue
		}
		presenceMap[deviceID] = presence
	}

	return presenceMap, nil
}

func offlinePresence(userID uuid.UUID, deviceID string) *models.Presence {
	return &models.Presence{
		UserID:   userID,
		DeviceID: deviceID,
		Status:   string(models.StatusOffline),
	}
}

func presenceKey(userID uuid.UUID, deviceID string) string {
	return presenceKeyPrefix + userID.String() + ":" + deviceID
}
