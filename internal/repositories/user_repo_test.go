package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByEmailIgnoresCase(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	repo := NewPostgresUserRepository(pool)

	userID := setupTestUser(t, ctx, pool)
	user, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)

	found, err := repo.GetByEmail(ctx, strings.ToUpper(user.Email))
	require.NoError(t, err)
	assert.Equal(t, userID, found.ID)
}

func TestUserRepository_DeleteHidesUser(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	repo := NewPostgresUserRepository(pool)

	userID := setupTestUser(t, ctx, pool)
	require.NoError(t, repo.Delete(ctx, userID))

	_, err := repo.GetByID(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Delete(ctx, userID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	repo := NewPostgresUserRepository(pool)

	userID := setupTestUser(t, ctx, pool)
	user, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)

	user.Name = "Renamed"
	require.NoError(t, repo.Update(ctx, user))

	updated, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	err = repo.Update(ctx, &models.User{ID: uuid.New(), Email: "x@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrNotFound)
}
