package dataloader

import "runtime"

// DefaultConfig returns a Config with sensible defaults for locators and
// loaderFn: BatchSize 32, LoaderThreads and ProcessorThreads set to
// runtime.NumCPU(), BufferSize 64, caching disabled. Callers typically
// start from this and override the fields they care about.
func DefaultConfig(locators []string, loaderFn LoaderFunc) Config {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return Config{
		Locators:         locators,
		BatchSize:        32,
		LoaderThreads:    n,
		ProcessorThreads: n,
		BufferSize:       64,
		LoaderFunc:       loaderFn,
	}
}

// DefaultResourceLimits returns resource limits scaled to the system's
// available memory: half of reported Sys memory, shared across all
// in-flight items.
func DefaultResourceLimits() ResourceLimits {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return ResourceLimits{
		MaxInFlightBytes:      int64(float64(memStats.Sys) * 0.5),
		MaxOutstandingBatches: 64,
	}
}
