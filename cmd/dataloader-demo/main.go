// Command dataloader-demo runs the pipeline end to end against the local
// filesystem: it loads a directory of image and text files, preprocesses
// them, prints batch counts for a first pass and a cache-warmed second
// pass, and serves /healthz, /stats and /metrics while doing so.
//
// Grounded on the original example.cpp's two-pass image-loader walkthrough
// (first pass cold, reset, second pass warm, then clear the cache),
// rendered with the same LoaderFunc/ProcessorFunc split and local storage
// backend but without the std::cout narration.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streamforge/dataloader/dataloader"
	"github.com/streamforge/dataloader/httpapi"
	"github.com/streamforge/dataloader/item"
	"github.com/streamforge/dataloader/storage"
)

func main() {
	dir := flag.String("dir", ".", "directory of files to load")
	addr := flag.String("addr", ":8080", "address for the introspection HTTP server")
	cacheCapacity := flag.Int("cache", 64, "LRU cache capacity (0 disables caching)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	local := storage.NewLocal()
	locators, err := local.ListFiles(context.Background(), *dir)
	if err != nil {
		logger.Fatal("list files", zap.String("dir", *dir), zap.Error(err))
	}
	if len(locators) == 0 {
		logger.Warn("no files found, nothing to load", zap.String("dir", *dir))
	}

	cfg := dataloader.Config{
		Locators:         locators,
		BatchSize:        16,
		LoaderThreads:    4,
		ProcessorThreads: 4,
		BufferSize:       32,
		CacheCapacity:    *cacheCapacity,
		LoaderFunc:       loaderFunc(local),
		ProcessorFunc:    processorFunc,
		Storage:          local,
		Logger:           dataloader.NewZapLogger(logger),
		Stats:            dataloader.NewBasicStatsCollector(),
	}

	engine, err := dataloader.New(cfg)
	if err != nil {
		logger.Fatal("start engine", zap.Error(err))
	}

	server := httpapi.NewServer(engine, logger)
	httpServer := &http.Server{Addr: *addr, Handler: server.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("introspection server", zap.Error(err))
		}
	}()

	runPass(logger, engine, "first pass")

	engine.Reset()
	runPass(logger, engine, "second pass (cache-warmed)")

	stats := engine.Stats()
	logger.Info("run complete",
		zap.Uint64("items_loaded", stats.ItemsLoaded),
		zap.Uint64("cache_hits", stats.CacheHits),
		zap.Uint64("cache_misses", stats.CacheMisses),
		zap.Float64("cache_hit_rate", stats.CacheHitRate()),
		zap.Int("cache_size", engine.CacheSize()),
	)

	if err := engine.ClearCache(); err != nil {
		logger.Warn("clear cache", zap.Error(err))
	}

	engine.Stop()
	_ = httpServer.Close()
}

func runPass(logger *zap.Logger, engine *dataloader.Engine, label string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	batchCount := 0
	itemCount := 0
	for {
		batch, err := engine.NextBatch(ctx)
		if err != nil {
			logger.Error(label, zap.Error(err))
			return
		}
		if batch == nil {
			break
		}
		batchCount++
		itemCount += len(batch.Items)
	}

	logger.Info(label,
		zap.Int("batches", batchCount),
		zap.Int("items", itemCount),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// loaderFunc decodes .txt files as text and treats everything else as an
// opaque blob of file bytes read through storage, mirroring the original
// example's loadImage/loadText split without requiring an image codec.
func loaderFunc(backend *storage.Local) dataloader.LoaderFunc {
	return func(locator string) (*item.DataItem, error) {
		ctx := context.Background()
		if strings.EqualFold(filepath.Ext(locator), ".txt") {
			text, err := backend.ReadTextFile(ctx, locator)
			if err != nil {
				return nil, err
			}
			return item.NewText(text), nil
		}

		data, err := backend.ReadFile(ctx, locator)
		if err != nil {
			return nil, err
		}
		return item.NewOpaque(data), nil
	}
}

// processorFunc upper-cases text items and leaves every other kind
// unchanged, standing in for the original's preprocessImage/preprocessText
// pair without a real image pipeline to resize or normalize against.
func processorFunc(d *item.DataItem) (*item.DataItem, error) {
	switch d.Kind {
	case item.KindText:
		return item.NewText(strings.ToUpper(d.Text)), nil
	default:
		return d, nil
	}
}
