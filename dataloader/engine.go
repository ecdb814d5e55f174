package dataloader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/streamforge/dataloader/cache"
	"github.com/streamforge/dataloader/item"
	"github.com/streamforge/dataloader/pool"
	"github.com/streamforge/dataloader/storage"
)

// State is one of an Engine's lifecycle states.
type State int32

const (
	// StateIdle is never observed from outside the package: New moves an
	// Engine straight to StateRunning. It exists so the zero value of
	// State is distinct from a real running engine.
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Batch is an ordered group of up to Config.BatchSize items, in the order
// NextBatch assembled them in. Order across locators is not guaranteed:
// loader and preprocess workers run concurrently.
type Batch struct {
	Items []*item.DataItem
}

// pipelineItem carries a DataItem through the loaded and processed queues
// alongside the estimated byte size reserved for it in resourceTracker, so
// that size can be released exactly once regardless of which stage the
// item is dropped or delivered at.
type pipelineItem struct {
	data          *item.DataItem
	estimatedSize int64
}

// cachedValue is what the LRU cache actually stores. Image payloads are
// snappy-compressed before being cached and decompressed on every read, so
// the cache's resident size tracks the wire/disk size of image data rather
// than its decoded size.
type cachedValue struct {
	item       *item.DataItem
	compressed bool
}

func compressForCache(d *item.DataItem) cachedValue {
	if d.Kind != item.KindImage || len(d.Image.Bytes) == 0 {
		return cachedValue{item: d}
	}
	clone := d.Clone()
	clone.Image.Bytes = snappy.Encode(nil, clone.Image.Bytes)
	return cachedValue{item: clone, compressed: true}
}

func decompressFromCache(cv cachedValue) (*item.DataItem, error) {
	if !cv.compressed {
		return cv.item, nil
	}
	decoded, err := snappy.Decode(nil, cv.item.Image.Bytes)
	if err != nil {
		return nil, fmt.Errorf("dataloader: decompress cached image: %w", err)
	}
	clone := cv.item.Clone()
	clone.Image.Bytes = decoded
	return clone, nil
}

func estimatedSize(it *item.DataItem) int64 {
	switch it.Kind {
	case item.KindImage:
		return int64(len(it.Image.Bytes))
	case item.KindText:
		return int64(len(it.Text))
	default:
		return 0
	}
}

// generation is everything that is torn down and rebuilt on Stop/Reset:
// the done signal, the loaded/processed queues, and the two worker pools
// driving them. Engine swaps generations atomically so Reset can join the
// previous generation's goroutines completely before a new one starts,
// closing the race where a late load task from before a reset could land
// in a queue a new run thinks is empty.
type generation struct {
	done      chan struct{}
	closeOnce sync.Once

	loaded    chan *pipelineItem
	processed chan *pipelineItem

	loaderPool    *pool.Pool
	processorPool *pool.Pool

	loaderWG sync.WaitGroup
	procWG   sync.WaitGroup
}

func newGeneration(cfg Config) *generation {
	return &generation{
		done:          make(chan struct{}),
		loaded:        make(chan *pipelineItem, cfg.BufferSize),
		processed:     make(chan *pipelineItem, cfg.BufferSize),
		loaderPool:    pool.New(cfg.LoaderThreads),
		processorPool: pool.New(cfg.ProcessorThreads),
	}
}

// stop signals done, then blocks until every load task and preprocess
// worker belonging to this generation has returned. It is idempotent and
// safe to call from more than one goroutine.
func (g *generation) stop() {
	g.closeOnce.Do(func() { close(g.done) })
	g.loaderPool.Shutdown()
	g.processorPool.Shutdown()
}

// Engine is the Pipeline Engine: it owns the loaded and processed queues,
// the worker pools driving them, and the optional cache sitting in front
// of the loader. An Engine is created already running; call NextBatch to
// consume its output and Stop or Reset to end or restart a run. An Engine
// is safe for concurrent use except where a method's doc says otherwise.
type Engine struct {
	cfg Config
	id  uuid.UUID

	logger          Logger
	stats           StatsCollector
	resourceTracker *resourceTracker
	limiter         *rate.Limiter

	cache *cache.LRU[string, cachedValue]
	dedup *cache.DedupSampler

	storageMu sync.RWMutex
	storage   storage.Storage

	state        atomic.Int32
	currentIndex atomic.Int64

	gen atomic.Pointer[generation]
}

// New constructs an Engine from cfg and starts it immediately: one load
// task is submitted per locator and cfg.ProcessorThreads persistent
// preprocess workers are started. It returns *InvalidConfig if cfg fails
// Validate.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:     cfg,
		id:      uuid.New(),
		logger:  cfg.Logger,
		stats:   cfg.Stats,
		storage: cfg.Storage,
		limiter: cfg.rateLimiter(),
	}

	if cfg.ResourceLimits.MaxInFlightBytes > 0 || cfg.ResourceLimits.MaxOutstandingBatches > 0 {
		e.resourceTracker = newResourceTracker(cfg.ResourceLimits, cfg.BatchSize)
	}
	if cfg.CacheCapacity > 0 {
		e.cache = cache.New[string, cachedValue](cfg.CacheCapacity)
		e.dedup = cache.NewDedupSampler(uint(cfg.CacheCapacity)*4+16, 0.01)
	}

	g := newGeneration(cfg)
	e.gen.Store(g)
	e.state.Store(int32(StateRunning))
	e.start(g)

	e.logger.Info("engine %s started with %d locators", e.id, len(cfg.Locators))
	return e, nil
}

// start submits g's load tasks and preprocess workers and arranges for
// g.loaded and g.processed to close once their producers are done.
func (e *Engine) start(g *generation) {
	g.loaderWG.Add(len(e.cfg.Locators))
	for _, locator := range e.cfg.Locators {
		locator := locator
		_, err := pool.SubmitContext(context.Background(), g.loaderPool, func(ctx context.Context) (struct{}, error) {
			defer g.loaderWG.Done()
			return e.loadOne(ctx, locator, g)
		})
		if err != nil {
			g.loaderWG.Done()
		}
	}
	go func() {
		g.loaderWG.Wait()
		close(g.loaded)
	}()

	g.procWG.Add(e.cfg.ProcessorThreads)
	for i := 0; i < e.cfg.ProcessorThreads; i++ {
		_, err := pool.SubmitContext(context.Background(), g.processorPool, func(ctx context.Context) (struct{}, error) {
			defer g.procWG.Done()
			e.processLoop(g)
			return struct{}{}, nil
		})
		if err != nil {
			g.procWG.Done()
		}
	}
	go func() {
		g.procWG.Wait()
		close(g.processed)
		// Natural completion (every locator loaded and processed without
		// anyone calling Stop): move the state machine along ourselves.
		// If Stop already did this, the CAS below is a harmless no-op.
		e.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
	}()
}

// loadOne resolves one locator, pushing the result onto g.loaded. It is
// the body of a single load task, run on g.loaderPool.
func (e *Engine) loadOne(ctx context.Context, locator string, g *generation) (struct{}, error) {
	e.currentIndex.Add(1)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}
	}

	if e.cfg.LoaderFunc == nil {
		e.stats.RecordLoaderError()
		e.logger.Error("engine %s: loader unset, locator %q dropped", e.id, locator)
		return struct{}{}, ErrLoaderUnset
	}

	it, err := e.loadWithCache(locator)
	if err != nil {
		e.stats.RecordLoaderError()
		e.logger.Error("engine %s: load %q: %v", e.id, locator, err)
		return struct{}{}, &LoaderFailure{Locator: locator, Err: err}
	}

	e.stats.RecordItemLoaded()
	estimated := estimatedSize(it)
	if e.resourceTracker != nil && e.resourceTracker.reserve(estimated) {
		e.logger.Warn("engine %s: in-flight size estimate over limit (%s)", e.id, e.resourceTracker)
	}

	select {
	case g.loaded <- &pipelineItem{data: it, estimatedSize: estimated}:
	case <-g.done:
		// Shutting down: drop the item rather than block on a queue that
		// may never be drained again.
		if e.resourceTracker != nil {
			e.resourceTracker.release(estimated)
		}
	}
	return struct{}{}, nil
}

// loadWithCache resolves locator through the cache if one is configured,
// collapsing concurrent misses for the same locator into a single
// LoaderFunc call, and falls straight through to LoaderFunc otherwise.
func (e *Engine) loadWithCache(locator string) (*item.DataItem, error) {
	if e.cache == nil {
		return e.cfg.LoaderFunc(locator)
	}
	if e.dedup != nil {
		e.dedup.Observe(locator)
	}

	cv, err := e.cache.GetOrLoad(locator, func() (cachedValue, error) {
		loaded, err := e.cfg.LoaderFunc(locator)
		if err != nil {
			return cachedValue{}, err
		}
		return compressForCache(loaded), nil
	})
	if err != nil {
		return nil, err
	}
	return decompressFromCache(cv)
}

// processLoop repeatedly pops an item from g.loaded, runs it through
// ProcessorFunc, and pushes the result onto g.processed, until g.loaded is
// closed and drained. It is the body of one persistent preprocess worker,
// run on g.processorPool.
func (e *Engine) processLoop(g *generation) {
	for pi := range g.loaded {
		out, err := e.applyProcessor(pi.data)
		if err != nil {
			e.stats.RecordProcessorError()
			e.logger.Error("engine %s: process: %v", e.id, err)
			if e.resourceTracker != nil {
				e.resourceTracker.release(pi.estimatedSize)
			}
			continue
		}

		e.stats.RecordItemProcessed()
		select {
		case g.processed <- &pipelineItem{data: out, estimatedSize: pi.estimatedSize}:
			if e.resourceTracker != nil && e.resourceTracker.reserveProcessed() {
				e.logger.Warn("engine %s: outstanding processed items over limit (%s)", e.id, e.resourceTracker)
			}
		case <-g.done:
			if e.resourceTracker != nil {
				e.resourceTracker.release(pi.estimatedSize)
			}
			return
		}
	}
}

func (e *Engine) applyProcessor(it *item.DataItem) (*item.DataItem, error) {
	if e.cfg.ProcessorFunc == nil {
		return it, nil
	}
	out, err := e.cfg.ProcessorFunc(it)
	if err != nil {
		return nil, &ProcessorFailure{Err: err}
	}
	return out, nil
}

// NextBatch assembles up to Config.BatchSize processed items. It returns
// (nil, nil) once the run has fully drained: every locator has been loaded
// and processed (or dropped by a Stop) and no more items remain. A short
// final batch is returned once, immediately before the (nil, nil) result,
// when fewer than BatchSize items remain.
func (e *Engine) NextBatch(ctx context.Context) (*Batch, error) {
	g := e.gen.Load()
	items := make([]*item.DataItem, 0, e.cfg.BatchSize)

	for len(items) < e.cfg.BatchSize {
		select {
		case pi, ok := <-g.processed:
			if !ok {
				if len(items) == 0 {
					return nil, nil
				}
				e.stats.RecordBatchDelivered(len(items))
				return &Batch{Items: items}, nil
			}
			items = append(items, pi.data)
			if e.resourceTracker != nil {
				e.resourceTracker.release(pi.estimatedSize)
				e.resourceTracker.releaseProcessed()
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.stats.RecordBatchDelivered(len(items))
	return &Batch{Items: items}, nil
}

// Stop ends the current run: it unblocks any load task or preprocess
// worker waiting to push into a full queue, then waits for all of them to
// return. It is idempotent. Items still in the loaded queue or in a
// worker's hands may be dropped; items already in the processed queue stay
// readable through NextBatch, which returns (nil, nil) once they are gone.
func (e *Engine) Stop() {
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		// Already stopping, stopped, or stopped itself just before we got
		// here (the natural-completion CAS in start's closer goroutine).
		// Quiesce the current generation regardless so its goroutines
		// never leak, even if nobody observed it as StateRunning.
		if g := e.gen.Load(); g != nil {
			g.stop()
		}
		return
	}

	e.gen.Load().stop()
	e.state.Store(int32(StateStopped))
	e.logger.Info("engine %s stopped", e.id)
}

// Reset stops the current run, joins every one of its load tasks and
// preprocess workers, then starts a fresh run over the same locator list
// from the beginning. The cache, if enabled, is preserved across Reset:
// locators already cached will not invoke LoaderFunc again. Reset must not
// be called concurrently with NextBatch on the same Engine.
func (e *Engine) Reset() {
	if old := e.gen.Load(); old != nil {
		old.stop()
		// Every producer and consumer of old has returned, so whatever is
		// still buffered in its queues is dropped here and released.
		if e.resourceTracker != nil {
			for len(old.loaded) > 0 {
				e.resourceTracker.release((<-old.loaded).estimatedSize)
			}
			for len(old.processed) > 0 {
				e.resourceTracker.release((<-old.processed).estimatedSize)
				e.resourceTracker.releaseProcessed()
			}
		}
	}

	e.currentIndex.Store(0)

	next := newGeneration(e.cfg)
	e.gen.Store(next)
	e.state.Store(int32(StateRunning))
	e.start(next)

	e.logger.Info("engine %s reset, restarting %d locators", e.id, len(e.cfg.Locators))
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// ID returns the engine's correlation ID, suitable for tagging log lines
// and traces that span multiple components handling the same run.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Size returns the number of locators this engine's current Config was
// constructed with.
func (e *Engine) Size() int {
	return len(e.cfg.Locators)
}

// SetCacheCapacity changes the cache's capacity. It returns ErrCacheDisabled
// if the engine was constructed with CacheCapacity 0.
func (e *Engine) SetCacheCapacity(n int) error {
	if e.cache == nil {
		return ErrCacheDisabled
	}
	e.cache.SetCapacity(n)
	return nil
}

// ClearCache empties the cache. It returns ErrCacheDisabled if the engine
// was constructed with CacheCapacity 0.
func (e *Engine) ClearCache() error {
	if e.cache == nil {
		return ErrCacheDisabled
	}
	e.cache.Clear()
	return nil
}

// CacheSize returns the number of entries currently cached, or 0 if
// caching is disabled.
func (e *Engine) CacheSize() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Size()
}

// ApproxRepeatRatio returns the fraction of loaded locators that were
// (probably) repeats of an earlier one, or 0 if caching is disabled. It is
// a diagnostic signal only, never consulted for cache decisions.
func (e *Engine) ApproxRepeatRatio() float64 {
	if e.dedup == nil {
		return 0
	}
	return e.dedup.ApproxRepeatRatio()
}

// SetStorage replaces the storage backend consulted by the caller-supplied
// LoaderFunc (via Storage()). The core engine never calls it directly.
func (e *Engine) SetStorage(s storage.Storage) {
	e.storageMu.Lock()
	e.storage = s
	e.storageMu.Unlock()
}

// Storage returns the engine's current storage backend, which may be nil
// if none was configured and no Locators were given to infer one from.
func (e *Engine) Storage() storage.Storage {
	e.storageMu.RLock()
	defer e.storageMu.RUnlock()
	return e.storage
}

// Stats returns a snapshot of engine activity, with cache hit/miss/
// eviction counts and queue depths merged in from the cache and the
// current generation's queues.
func (e *Engine) Stats() Stats {
	s := e.stats.GetStats()
	if e.cache != nil {
		cs := e.cache.Stats()
		s.CacheHits = uint64(cs.Hits)
		s.CacheMisses = uint64(cs.Misses)
		s.CacheEvictions = uint64(cs.Evictions)
	}
	if g := e.gen.Load(); g != nil {
		s.LoadedQueueDepth = len(g.loaded)
		s.ProcessedQueueDepth = len(g.processed)
	}
	return s
}
