package dataloader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamforge/dataloader/item"
)

// recordingLogger captures Warn calls so tests can assert on soft-limit
// notifications without depending on log output formatting.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Log(level LogLevel, format string, args ...interface{}) {}
func (l *recordingLogger) Debug(format string, args ...interface{})               {}
func (l *recordingLogger) Info(format string, args ...interface{})                {}

func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func countingLoader(calls *atomic.Int64) LoaderFunc {
	return func(locator string) (*item.DataItem, error) {
		calls.Add(1)
		return item.NewText(locator), nil
	}
}

func locators(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("loc-%d", i)
	}
	return out
}

func drainAll(t *testing.T, e *Engine) []*item.DataItem {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var all []*item.DataItem
	for {
		b, err := e.NextBatch(ctx)
		require.NoError(t, err)
		if b == nil {
			return all
		}
		all = append(all, b.Items...)
	}
}

func TestEngine_DeliversAllItemsAcrossPartialFinalBatch(t *testing.T) {
	var calls atomic.Int64
	locs := locators(7)
	e, err := New(Config{
		Locators:         locs,
		BatchSize:        3,
		LoaderThreads:    2,
		ProcessorThreads: 2,
		BufferSize:       4,
		LoaderFunc:       countingLoader(&calls),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sizes := []int{}
	for {
		b, err := e.NextBatch(ctx)
		require.NoError(t, err)
		if b == nil {
			break
		}
		sizes = append(sizes, len(b.Items))
	}

	require.Equal(t, []int{3, 3, 1}, sizes)
	require.EqualValues(t, 7, calls.Load())

	// A further call keeps returning the drained signal, not an error.
	b, err := e.NextBatch(ctx)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestEngine_NoLocatorsDrainsImmediately(t *testing.T) {
	e, err := New(Config{
		Locators:         nil,
		BatchSize:        4,
		LoaderThreads:    1,
		ProcessorThreads: 1,
		BufferSize:       1,
		LoaderFunc:       func(string) (*item.DataItem, error) { return nil, nil },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b, err := e.NextBatch(ctx)
	require.NoError(t, err)
	require.Nil(t, b)
}

func TestEngine_BackpressureWithSingleSlotBuffer(t *testing.T) {
	var calls atomic.Int64
	e, err := New(Config{
		Locators:         locators(20),
		BatchSize:        5,
		LoaderThreads:    4,
		ProcessorThreads: 4,
		BufferSize:       1,
		LoaderFunc:       countingLoader(&calls),
	})
	require.NoError(t, err)

	items := drainAll(t, e)
	require.Len(t, items, 20)
}

func TestEngine_ProcessorTransformsItems(t *testing.T) {
	e, err := New(Config{
		Locators:         locators(4),
		BatchSize:        4,
		LoaderThreads:    2,
		ProcessorThreads: 2,
		BufferSize:       4,
		LoaderFunc: func(locator string) (*item.DataItem, error) {
			return item.NewText(locator), nil
		},
		ProcessorFunc: func(d *item.DataItem) (*item.DataItem, error) {
			return item.NewText(strings.ToUpper(d.Text)), nil
		},
	})
	require.NoError(t, err)

	items := drainAll(t, e)
	require.Len(t, items, 4)
	for _, it := range items {
		require.Equal(t, strings.ToUpper(it.Text), it.Text)
	}
}

func TestEngine_ResetReplaysFromCacheWithoutReloading(t *testing.T) {
	var calls atomic.Int64
	e, err := New(Config{
		Locators:         locators(10),
		BatchSize:        10,
		LoaderThreads:    3,
		ProcessorThreads: 3,
		BufferSize:       4,
		CacheCapacity:    16,
		LoaderFunc:       countingLoader(&calls),
	})
	require.NoError(t, err)

	first := drainAll(t, e)
	require.Len(t, first, 10)
	require.EqualValues(t, 10, calls.Load())

	e.Reset()

	second := drainAll(t, e)
	require.Len(t, second, 10)
	require.EqualValues(t, 10, calls.Load(), "a warm cache must not invoke LoaderFunc again")
}

func TestEngine_StopIsIdempotentAndUnblocksPromptly(t *testing.T) {
	e, err := New(Config{
		Locators:         locators(500),
		BatchSize:        8,
		LoaderThreads:    4,
		ProcessorThreads: 4,
		BufferSize:       1,
		LoaderFunc: func(locator string) (*item.DataItem, error) {
			return item.NewText(locator), nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = e.NextBatch(ctx)
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		e.Stop()
		e.Stop() // idempotent
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return promptly; a goroutine is likely stuck on a full queue")
	}

	require.Equal(t, StateStopped, e.State())
}

func TestEngine_LoaderUnsetRecordsErrorPerLocator(t *testing.T) {
	e, err := New(Config{
		Locators:         locators(3),
		BatchSize:        3,
		LoaderThreads:    2,
		ProcessorThreads: 2,
		BufferSize:       4,
		LoaderFunc:       nil,
	})
	require.NoError(t, err)

	items := drainAll(t, e)
	require.Empty(t, items)
	require.EqualValues(t, 3, e.Stats().LoaderErrors)
}

func TestEngine_LoaderFailureDropsOnlyThatItem(t *testing.T) {
	e, err := New(Config{
		Locators:         []string{"ok-1", "bad", "ok-2"},
		BatchSize:        3,
		LoaderThreads:    2,
		ProcessorThreads: 2,
		BufferSize:       4,
		LoaderFunc: func(locator string) (*item.DataItem, error) {
			if locator == "bad" {
				return nil, fmt.Errorf("boom")
			}
			return item.NewText(locator), nil
		},
	})
	require.NoError(t, err)

	items := drainAll(t, e)
	require.Len(t, items, 2)
	require.EqualValues(t, 1, e.Stats().LoaderErrors)
}

func TestEngine_ProcessorFailureDropsOnlyThatItem(t *testing.T) {
	e, err := New(Config{
		Locators:         []string{"ok-1", "bad", "ok-2"},
		BatchSize:        3,
		LoaderThreads:    2,
		ProcessorThreads: 2,
		BufferSize:       4,
		LoaderFunc: func(locator string) (*item.DataItem, error) {
			return item.NewText(locator), nil
		},
		ProcessorFunc: func(d *item.DataItem) (*item.DataItem, error) {
			if d.Text == "bad" {
				return nil, fmt.Errorf("boom")
			}
			return d, nil
		},
	})
	require.NoError(t, err)

	items := drainAll(t, e)
	require.Len(t, items, 2)
	require.EqualValues(t, 1, e.Stats().ProcessorErrors)
}

func TestEngine_New_InvalidConfigRejected(t *testing.T) {
	_, err := New(Config{LoaderFunc: func(string) (*item.DataItem, error) { return nil, nil }})
	require.Error(t, err)
	var invalid *InvalidConfig
	require.ErrorAs(t, err, &invalid)
}

func TestEngine_CacheDisabledBySettersReturnError(t *testing.T) {
	e, err := New(Config{
		Locators:         locators(1),
		BatchSize:        1,
		LoaderThreads:    1,
		ProcessorThreads: 1,
		BufferSize:       1,
		LoaderFunc:       func(l string) (*item.DataItem, error) { return item.NewText(l), nil },
	})
	require.NoError(t, err)
	drainAll(t, e)

	require.ErrorIs(t, e.SetCacheCapacity(10), ErrCacheDisabled)
	require.ErrorIs(t, e.ClearCache(), ErrCacheDisabled)
	require.Equal(t, 0, e.CacheSize())
}

func TestEngine_NextBatch_RespectsContextCancellation(t *testing.T) {
	// The loader blocks until the test releases it, so no item reaches the
	// processed queue and the run cannot drain before the deadline.
	release := make(chan struct{})
	e, err := New(Config{
		Locators:         locators(1),
		BatchSize:        5, // never reached with only one item
		LoaderThreads:    1,
		ProcessorThreads: 1,
		BufferSize:       1,
		LoaderFunc: func(l string) (*item.DataItem, error) {
			<-release
			return item.NewText(l), nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = e.NextBatch(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	e.Stop()
}

func TestEngine_ResourceLimits_WarnsWhenOutstandingBatchesExceedLimit(t *testing.T) {
	logger := &recordingLogger{}
	e, err := New(Config{
		Locators:         locators(50),
		BatchSize:        2,
		LoaderThreads:    8,
		ProcessorThreads: 8,
		BufferSize:       50,
		LoaderFunc: func(l string) (*item.DataItem, error) {
			return item.NewText(l), nil
		},
		Logger:         logger,
		ResourceLimits: ResourceLimits{MaxOutstandingBatches: 1},
	})
	require.NoError(t, err)

	// Nobody calls NextBatch, so the processed queue is free to accumulate
	// well past one batch's worth of items before anything drains it.
	deadline := time.Now().Add(2 * time.Second)
	for logger.warnCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Greater(t, logger.warnCount(), 0,
		"expected a warning once outstanding processed items exceeded MaxOutstandingBatches*BatchSize")

	drainAll(t, e)
}

func TestEngine_ResourceLimits_WarnsWhenInFlightBytesExceedLimit(t *testing.T) {
	logger := &recordingLogger{}
	big := strings.Repeat("x", 1024)
	e, err := New(Config{
		Locators:         locators(20),
		BatchSize:        4,
		LoaderThreads:    4,
		ProcessorThreads: 1,
		BufferSize:       20,
		LoaderFunc: func(l string) (*item.DataItem, error) {
			return item.NewText(big), nil
		},
		Logger:         logger,
		ResourceLimits: ResourceLimits{MaxInFlightBytes: 512},
	})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for logger.warnCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Greater(t, logger.warnCount(), 0,
		"expected a warning once estimated in-flight bytes exceeded MaxInFlightBytes")

	drainAll(t, e)
}

func TestEngine_CachesAllItemKindsFromGenerator(t *testing.T) {
	gen := item.NewGenerator()
	e, err := New(Config{
		Locators:         locators(9),
		BatchSize:        9,
		LoaderThreads:    3,
		ProcessorThreads: 3,
		BufferSize:       9,
		CacheCapacity:    16,
		LoaderFunc:       gen.Load,
	})
	require.NoError(t, err)

	items := drainAll(t, e)
	require.Len(t, items, 9)
	require.Zero(t, e.Stats().LoaderErrors)

	var sawImage, sawText, sawOpaque bool
	for _, it := range items {
		switch it.Kind {
		case item.KindImage:
			sawImage = true
		case item.KindText:
			sawText = true
		case item.KindOpaque:
			sawOpaque = true
		}
	}
	require.True(t, sawImage, "expected at least one image item to round-trip through the compressed cache path")
	require.True(t, sawText)
	require.True(t, sawOpaque)
}

func TestCompressForCache_RoundTripsImageBytesWithoutAliasingOriginal(t *testing.T) {
	raw := make([]byte, 48)
	for i := range raw {
		raw[i] = byte(i)
	}
	original, err := item.NewImage(4, 4, 3, append([]byte(nil), raw...))
	require.NoError(t, err)

	cv := compressForCache(original)
	require.True(t, cv.compressed)
	require.Equal(t, raw, original.Image.Bytes, "compressForCache must not mutate the caller's item in place")

	got, err := decompressFromCache(cv)
	require.NoError(t, err)
	require.True(t, got.Equal(original))

	got.Image.Bytes[0] ^= 0xFF
	got2, err := decompressFromCache(cv)
	require.NoError(t, err)
	require.True(t, got2.Equal(original), "mutating a decompressed copy must not corrupt the cached compressed bytes")
}

func TestCompressForCache_PassesNonImageKindsThrough(t *testing.T) {
	text := item.NewText("hello")
	cv := compressForCache(text)
	require.False(t, cv.compressed)

	got, err := decompressFromCache(cv)
	require.NoError(t, err)
	require.Same(t, text, got)
}
