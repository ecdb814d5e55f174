package storage

import "errors"

// ErrNotConnected is returned by a Distributed implementation's methods
// when called before Connect or after Disconnect.
var ErrNotConnected = errors.New("storage: not connected")

// ErrNotFound is returned when a path does not exist.
var ErrNotFound = errors.New("storage: file does not exist")
