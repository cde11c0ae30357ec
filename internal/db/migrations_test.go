package db

import (
	"context"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_AtRoot(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)

	names, err := fs.Glob(files, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_settings.sql"}, names)
}

func TestNewMigrationProvider_FindsEmbeddedMigrations(t *testing.T) {
	// The pool is lazy and never dials; the provider only collects sources.
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/tubepost?sslmode=disable")
	require.NoError(t, err)
	defer pool.Close()
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	provider, err := newMigrationProvider(sqlDB)
	require.NoError(t, err)

	sources := provider.ListSources()
	require.Len(t, sources, 2)
	assert.Equal(t, int64(1), sources[0].Version)
	assert.Equal(t, int64(2), sources[1].Version)
}
