package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tadoif/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	storage, err := New(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		storage.Close()
	})

	return storage
}

func TestSQLiteStorage_LoadEmpty(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrNoToken)

	_, err = storage.UpdatedAt(context.Background())
	assert.ErrorIs(t, err, core.ErrNoToken)
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "abc123"))
	token, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	before := time.Now().Add(-time.Second)

	// Rotation replaces the single row
	require.NoError(t, storage.Save(ctx, "RT2"))
	token, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RT2", token)

	var rows int
	require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM refresh_tokens").Scan(&rows))
	assert.Equal(t, 1, rows)

	updatedAt, err := storage.UpdatedAt(ctx)
	require.NoError(t, err)
	assert.True(t, updatedAt.After(before))
}

func TestSQLiteStorage_SaveEmpty(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "keep-me"))

	err := storage.Save(ctx, "  ")
	assert.ErrorIs(t, err, core.ErrNoToken)

	token, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keep-me", token)
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tokens.db")
	ctx := context.Background()

	first, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "persisted"))
	require.NoError(t, first.Close())

	second, err := New(dbPath)
	require.NoError(t, err)
	defer second.Close()

	token, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}
