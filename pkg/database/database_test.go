package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/garyjia/scanpaie/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_FileDatabaseCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scanpaie.db")

	db, err := New(Config{Path: path, MaxOpenConns: 4, MaxIdleConns: 2}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health(context.Background()))
	assert.FileExists(t, path)
}

func TestRunMigrations_EmbeddedSchema(t *testing.T) {
	db := openMemory(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.RunMigrations(migrations.GetFS()))
	// second run is a no-op
	require.NoError(t, migrator.RunMigrations(migrations.GetFS()))

	applied, err := migrator.AppliedVersions()
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true}, applied)

	for _, table := range []string{"payroll_entries", "scan_analyses", "scan_anomalies"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestRunMigrations_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openMemory(t)
	migrator := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	}

	err := migrator.RunMigrations(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migration 2")

	applied, err := migrator.AppliedVersions()
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true}, applied)
}

func TestLoadMigrations(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		want    []Migration
		wantErr string
	}{
		{
			name: "sorted by version, non-sql ignored",
			fsys: fstest.MapFS{
				"010_add_index.sql":  {Data: []byte("B")},
				"002_create_foo.sql": {Data: []byte("A")},
				"README.md":          {Data: []byte("docs")},
			},
			want: []Migration{
				{Version: 2, Name: "create_foo", SQL: "A"},
				{Version: 10, Name: "add_index", SQL: "B"},
			},
		},
		{
			name:    "invalid filename",
			fsys:    fstest.MapFS{"create_foo.sql": {Data: []byte("A")}},
			wantErr: "invalid migration filename format",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.sql": {Data: []byte("A")},
				"01_b.sql":  {Data: []byte("B")},
			},
			wantErr: "duplicate migration version 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadMigrations(tt.fsys)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
