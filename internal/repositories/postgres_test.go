package repositories

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/fitsync/internal/database/migrations"
	"github.com/prudhvinik1/fitsync/internal/models"
	"github.com/stretchr/testify/require"
)

var testMigration onceErr

// onceErr runs f once and hands its error to every caller, so a failed
// migration fails every test instead of only the first.
type onceErr struct {
	once sync.Once
	err  error
}

func (o *onceErr) Do(f func() error) error {
	o.once.Do(func() { o.err = f() })
	return o.err
}

// getTestPool connects to TEST_DATABASE_URL, migrating it on first use. Tests
// that need Postgres are skipped when the variable is unset.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	migrateErr := testMigration.Do(func() error {
		db, err := migrations.Open(url)
		if err != nil {
			return err
		}
		defer db.Close()
		return migrations.MigrateUp(db)
	})
	require.NoError(t, migrateErr, "Failed to migrate test database")

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	return pool
}

// setupTestUser creates a user and removes it, with everything it owns, when
// the test ends.
func setupTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	user := &models.User{
		Email:        "test-" + uuid.New().String() + "@example.com",
		Name:         "Test User",
		PasswordHash: "test-hash",
	}
	require.NoError(t, NewPostgresUserRepository(pool).Create(ctx, user), "Failed to create test user")

	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, user.ID); err != nil {
			t.Logf("Warning: failed to cleanup test user: %v", err)
		}
	})
	return user.ID
}

func TestOnceErr_SharesFirstError(t *testing.T) {
	var o onceErr
	calls := 0
	fail := func() error {
		calls++
		return errors.New("migration failed")
	}

	first := o.Do(fail)
	second := o.Do(fail)

	require.EqualError(t, first, "migration failed")
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
