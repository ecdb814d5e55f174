package dataloader

import (
	"errors"
	"fmt"
)

// ErrLoaderUnset is returned by a load task when Config.LoaderFunc was nil
// at the time the pipeline started.
var ErrLoaderUnset = errors.New("dataloader: loader function not set")

// ErrCacheDisabled is a soft signal, not an error in the failure sense:
// cache accessors documented to report it do so only to let a caller
// distinguish "empty because disabled" from "empty because cold".
// CacheSize and ApproxRepeatRatio report 0 on a disabled cache instead.
var ErrCacheDisabled = errors.New("dataloader: cache disabled (capacity 0)")

// LoaderFailure wraps an error returned by Config.LoaderFunc for one
// locator. It never stops the pipeline; the affected item is simply
// dropped.
type LoaderFailure struct {
	Locator string
	Err     error
}

func (e *LoaderFailure) Error() string {
	return fmt.Sprintf("dataloader: load %q: %v", e.Locator, e.Err)
}

func (e *LoaderFailure) Unwrap() error {
	return e.Err
}

// ProcessorFailure wraps an error returned by Config.ProcessorFunc for
// one item. It never stops the pipeline; the affected item is simply
// dropped.
type ProcessorFailure struct {
	Err error
}

func (e *ProcessorFailure) Error() string {
	return fmt.Sprintf("dataloader: process: %v", e.Err)
}

func (e *ProcessorFailure) Unwrap() error {
	return e.Err
}

// InvalidConfig is returned by New when a Config fails validation.
type InvalidConfig struct {
	Reason string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("dataloader: invalid config: %s", e.Reason)
}
