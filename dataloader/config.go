// Package dataloader implements the Pipeline Engine: it loads items from
// a list of locators through a worker pool, preprocesses them through a
// second stage, and assembles the result into fixed-size batches, with
// an optional LRU cache sitting in front of the loader.
package dataloader

import (
	"fmt"
	"os"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/streamforge/dataloader/item"
	"github.com/streamforge/dataloader/storage"
)

// LoaderFunc resolves one locator into a DataItem. It is required;
// starting an Engine with LoaderFunc nil fails every load task with
// ErrLoaderUnset.
type LoaderFunc func(locator string) (*item.DataItem, error)

// ProcessorFunc transforms a loaded DataItem. It is optional; if nil,
// items pass through unchanged.
type ProcessorFunc func(*item.DataItem) (*item.DataItem, error)

// Config is the full set of options recognized when constructing an
// Engine.
type Config struct {
	// Locators is the ordered sequence of source locators to ingest.
	Locators []string

	// BatchSize is the number of items NextBatch assembles per call.
	BatchSize int

	// LoaderThreads is the size of the worker pool used for load tasks.
	LoaderThreads int

	// ProcessorThreads is the number of persistent preprocess workers.
	ProcessorThreads int

	// BufferSize caps each of the loaded and processed queues.
	BufferSize int

	// CacheCapacity is the item cache's capacity; 0 disables caching.
	CacheCapacity int

	// LoaderFunc resolves a locator into a DataItem. Required.
	LoaderFunc LoaderFunc

	// ProcessorFunc transforms a loaded DataItem. Optional.
	ProcessorFunc ProcessorFunc

	// Storage is consulted by the default LoaderFunc wiring in
	// cmd/dataloader-demo; the core engine never calls it directly, it
	// is the caller's LoaderFunc that is expected to use it. If nil and
	// Locators is non-empty, storage.ForLocator(Locators[0]) selects one.
	Storage storage.Storage

	// LoaderRateLimit, if set, throttles load task starts to at most
	// this many per second, with a burst of the integer part of this
	// value plus one. Zero disables throttling.
	LoaderRateLimit float64

	// Logger receives diagnostic messages. Defaults to NoOpLogger.
	Logger Logger

	// Stats receives activity counters. Defaults to a fresh
	// BasicStatsCollector.
	Stats StatsCollector

	// ResourceLimits bounds estimated in-flight memory and outstanding
	// batches. Zero value means no limits.
	ResourceLimits ResourceLimits
}

// Validate checks Config for internal consistency, returning
// *InvalidConfig describing the first violation.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return &InvalidConfig{Reason: "BatchSize must be >= 1"}
	}
	if c.BufferSize < 1 {
		return &InvalidConfig{Reason: "BufferSize must be >= 1"}
	}
	if c.LoaderThreads < 1 {
		return &InvalidConfig{Reason: "LoaderThreads must be >= 1"}
	}
	if c.ProcessorThreads < 1 {
		return &InvalidConfig{Reason: "ProcessorThreads must be >= 1"}
	}
	if c.CacheCapacity < 0 {
		return &InvalidConfig{Reason: "CacheCapacity must be >= 0"}
	}
	if c.LoaderRateLimit < 0 {
		return &InvalidConfig{Reason: "LoaderRateLimit must be >= 0"}
	}
	if err := c.ResourceLimits.Validate(); err != nil {
		return &InvalidConfig{Reason: err.Error()}
	}
	return nil
}

// withDefaults returns a copy of c with unset optional fields filled in.
// LoaderFunc and Locators are left as-is: an absent loader is a runtime
// failure condition (ErrLoaderUnset), not a construction-time default.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = &NoOpLogger{}
	}
	if c.Stats == nil {
		c.Stats = NewBasicStatsCollector()
	}
	if c.Storage == nil && len(c.Locators) > 0 {
		backend, _ := storage.ForLocator(c.Locators[0])
		c.Storage = backend
	}
	return c
}

func (c Config) rateLimiter() *rate.Limiter {
	if c.LoaderRateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.LoaderRateLimit), int(c.LoaderRateLimit)+1)
}

// FileConfig is the YAML-serializable subset of Config used by
// LoadConfigFile. Locators and the callables are supplied separately by
// the caller (a loader/processor function has no YAML representation).
type FileConfig struct {
	BatchSize        int     `yaml:"batchSize"`
	LoaderThreads    int     `yaml:"loaderThreads"`
	ProcessorThreads int     `yaml:"processorThreads"`
	BufferSize       int     `yaml:"bufferSize"`
	CacheCapacity    int     `yaml:"cacheCapacity"`
	LoaderRateLimit  float64 `yaml:"loaderRateLimit"`

	ResourceLimits struct {
		MaxInFlightBytes      int64 `yaml:"maxInFlightBytes"`
		MaxOutstandingBatches int   `yaml:"maxOutstandingBatches"`
	} `yaml:"resourceLimits"`
}

// LoadConfigFile reads a YAML document at path into a FileConfig.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataloader: read config %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("dataloader: parse config %s: %w", path, err)
	}
	return &fc, nil
}

// Apply merges fc's values onto a Config's numeric/tuning fields,
// leaving Locators, LoaderFunc, ProcessorFunc, Storage, Logger and Stats
// untouched since those have no YAML representation.
func (fc *FileConfig) Apply(cfg Config) Config {
	cfg.BatchSize = fc.BatchSize
	cfg.LoaderThreads = fc.LoaderThreads
	cfg.ProcessorThreads = fc.ProcessorThreads
	cfg.BufferSize = fc.BufferSize
	cfg.CacheCapacity = fc.CacheCapacity
	cfg.LoaderRateLimit = fc.LoaderRateLimit
	cfg.ResourceLimits.MaxInFlightBytes = fc.ResourceLimits.MaxInFlightBytes
	cfg.ResourceLimits.MaxOutstandingBatches = fc.ResourceLimits.MaxOutstandingBatches
	return cfg
}
