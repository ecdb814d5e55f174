package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Local reads files from the process's own filesystem. It is the default
// Storage for any locator without a recognized remote scheme.
type Local struct{}

// NewLocal creates a Local storage backend.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: read %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (l *Local) FileExists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

func (l *Local) FileSize(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("storage: stat %s: %w", path, ErrNotFound)
		}
		return 0, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.Size(), nil
}

func (l *Local) ReadTextFile(ctx context.Context, path string) (string, error) {
	data, err := l.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Local) ListFiles(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: list %s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// WatchInvalidate watches dir for filesystem changes and calls onChange
// with the changed path whenever a write, create, remove or rename event
// fires, so a caller layering a cache.LRU on top of Local can evict the
// stale entry instead of serving content that no longer matches disk.
// The returned stop function closes the underlying watcher.
func (l *Local) WatchInvalidate(dir string, onChange func(path string)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("storage: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("storage: watch %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange(event.Name)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}
