package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamforge/dataloader/storage"
)

func TestLocal_ReadFileAndExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	l := storage.NewLocal()
	ctx := context.Background()

	exists, err := l.FileExists(ctx, path)
	require.NoError(t, err)
	require.True(t, exists)

	data, err := l.ReadFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	size, err := l.FileSize(ctx, path)
	require.NoError(t, err)
	require.EqualValues(t, 5, size)

	text, err := l.ReadTextFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}

func TestLocal_ReadFile_MissingReturnsNotFound(t *testing.T) {
	l := storage.NewLocal()
	_, err := l.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocal_ListFiles_OnlyRegularFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("y"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	l := storage.NewLocal()
	files, err := l.ListFiles(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestLocal_WatchInvalidate_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	l := storage.NewLocal()

	changed := make(chan string, 4)
	stop, err := l.WatchInvalidate(dir, func(path string) {
		changed <- path
	})
	require.NoError(t, err)
	defer stop()

	path := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fsnotify event")
	}
}
