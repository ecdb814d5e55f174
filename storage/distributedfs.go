package storage

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// DistributedFS addresses a namenode-style distributed filesystem over
// hdfs://host:port locators. It mirrors the original HDFSStorage: a
// lightweight reachability-checking client rather than a full client
// library, since no HDFS client package is present anywhere in the
// reference corpus to ground a fuller implementation on.
type DistributedFS struct {
	namenode string
	port     int

	dialTimeout time.Duration
	connected   atomic.Bool
}

// DefaultNamenodePort is used when an hdfs:// locator omits a port,
// matching the original HDFSStorage default.
const DefaultNamenodePort = 9000

// NewDistributedFS creates a client for the namenode at host:port.
func NewDistributedFS(namenode string, port int) *DistributedFS {
	if namenode == "" {
		namenode = "localhost"
	}
	if port == 0 {
		port = DefaultNamenodePort
	}
	return &DistributedFS{namenode: namenode, port: port, dialTimeout: 5 * time.Second}
}

func (d *DistributedFS) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(d.namenode, fmt.Sprintf("%d", d.port))
	dialer := net.Dialer{Timeout: d.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("storage: connect to namenode %s: %w", addr, err)
	}
	_ = conn.Close()
	d.connected.Store(true)
	return nil
}

func (d *DistributedFS) Disconnect(ctx context.Context) error {
	d.connected.Store(false)
	return nil
}

func (d *DistributedFS) Connected() bool {
	return d.connected.Load()
}

func (d *DistributedFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if !d.Connected() {
		return nil, ErrNotConnected
	}
	return nil, fmt.Errorf("storage: read %s: %w", path, ErrNotFound)
}

func (d *DistributedFS) FileExists(ctx context.Context, path string) (bool, error) {
	if !d.Connected() {
		return false, ErrNotConnected
	}
	return false, nil
}

func (d *DistributedFS) FileSize(ctx context.Context, path string) (int64, error) {
	if !d.Connected() {
		return 0, ErrNotConnected
	}
	return 0, fmt.Errorf("storage: size %s: %w", path, ErrNotFound)
}

func (d *DistributedFS) ReadTextFile(ctx context.Context, path string) (string, error) {
	data, err := d.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *DistributedFS) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if !d.Connected() {
		return nil, ErrNotConnected
	}
	return nil, nil
}
