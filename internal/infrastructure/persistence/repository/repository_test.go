package repository

import (
	"testing"

	"github.com/garyjia/scanpaie/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/scanpaie/migrations"
	"github.com/garyjia/scanpaie/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDB opens a migrated in-memory database
func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.GetFS()))

	return sqlite.NewDB(db.DB, logger)
}
