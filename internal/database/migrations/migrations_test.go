package migrations

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrationFiles_Paired checks every embedded migration has both an up
// and a down script and versions are contiguous from 1.
func TestMigrationFiles_Paired(t *testing.T) {
	src, err := iofs.New(migrationFiles, "files")
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	count := 0
	for {
		count++

		up, _, err := src.ReadUp(version)
		require.NoError(t, err, "version %d has no up script", version)
		up.Close()

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "version %d has no down script", version)
		down.Close()

		next, err := src.Next(version)
		if err != nil {
			break
		}
		assert.Equal(t, version+1, next, "migration versions must be contiguous")
		version = next
	}

	assert.Equal(t, 5, count)
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	err := MigrateDown(nil, 0)

	assert.Error(t, err)
}
