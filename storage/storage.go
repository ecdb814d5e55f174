// Package storage provides the file-access abstraction locators are
// resolved through: a uniform Storage interface with a Local
// implementation for plain filesystem paths and Distributed
// implementations (S3, a namenode-addressed distributed filesystem) for
// remote schemes, selected automatically from the locator's prefix.
//
// Grounded on the original storage.h/storage.cpp Storage /
// DistributedStorage / StorageFactory hierarchy, rendered as Go
// interfaces plus a scheme-dispatch constructor instead of a class
// hierarchy with a factory method.
package storage

import "context"

// Storage reads file content addressed by a path. Local and every
// Distributed implementation satisfy it.
type Storage interface {
	// ReadFile returns the full contents of path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// FileExists reports whether path refers to a regular file.
	FileExists(ctx context.Context, path string) (bool, error)
	// FileSize returns the size in bytes of path.
	FileSize(ctx context.Context, path string) (int64, error)
	// ReadTextFile returns the contents of path decoded as UTF-8 text.
	ReadTextFile(ctx context.Context, path string) (string, error)
	// ListFiles returns the regular files directly under dir.
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// Distributed is a Storage backed by a remote system that must be
// connected to before use.
type Distributed interface {
	Storage

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool
}
