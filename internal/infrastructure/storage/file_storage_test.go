package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalUploadStorage_Save(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	store, err := NewLocalUploadStorage(filepath.Join(tempDir, "uploads"), logger)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("saves content under a fresh name", func(t *testing.T) {
		path, err := store.Save(ctx, "Vouchers Export.CSV", strings.NewReader("Voucher code\nABC\n"))

		require.NoError(t, err)
		assert.FileExists(t, path)
		assert.Equal(t, ".csv", filepath.Ext(path))
		assert.Equal(t, store.BaseDir(), filepath.Dir(path))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Voucher code\nABC\n", string(content))
	})

	t.Run("two uploads with the same name do not collide", func(t *testing.T) {
		first, err := store.Save(ctx, "same.xlsx", strings.NewReader("a"))
		require.NoError(t, err)
		second, err := store.Save(ctx, "same.xlsx", strings.NewReader("b"))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("ignores directories in the original name", func(t *testing.T) {
		path, err := store.Save(ctx, "../../etc/passwd.csv", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, store.BaseDir(), filepath.Dir(path))
	})
}

func TestLocalUploadStorage_Remove(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	store, err := NewLocalUploadStorage(tempDir, logger)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("removes a stored upload", func(t *testing.T) {
		path, err := store.Save(ctx, "a.csv", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, store.Remove(ctx, path))
		assert.NoFileExists(t, path)
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		assert.NoError(t, store.Remove(ctx, filepath.Join(tempDir, "gone.csv")))
	})

	t.Run("rejects paths outside the upload directory", func(t *testing.T) {
		outside := filepath.Join(filepath.Dir(tempDir), "other.csv")
		err := store.Remove(ctx, outside)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "escapes upload directory")
	})
}

func TestLocalUploadStorage_RemoveOlderThan(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalUploadStorage(tempDir, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	stale, err := store.Save(ctx, "stale.csv", strings.NewReader("x"))
	require.NoError(t, err)
	fresh, err := store.Save(ctx, "fresh.csv", strings.NewReader("y"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "nested"), 0755))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := store.RemoveOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(tempDir, "nested"))
}
