package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVStore(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(newTestDB(t).SQL)

	t.Run("LoadMissing", func(t *testing.T) {
		_, ok, err := store.Load(ctx, "foods")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "foods", []byte(`[{"id":1}]`)))
		data, ok, err := store.Load(ctx, "foods")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `[{"id":1}]`, string(data))
	})

	t.Run("SaveIsIdempotentUpsert", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "goal", []byte("2000")))
		require.NoError(t, store.Save(ctx, "goal", []byte("2000")))
		require.NoError(t, store.Save(ctx, "goal", []byte("1800")))

		data, ok, err := store.Load(ctx, "goal")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1800", string(data))
	})
}

func TestRunMigrationsTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
