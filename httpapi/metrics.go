package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamforge/dataloader/dataloader"
)

// statsCollector is a prometheus.Collector that pulls a fresh
// dataloader.Stats snapshot from the engine on every scrape, rather than
// needing the engine to push updates into pre-registered metric objects.
type statsCollector struct {
	engine *dataloader.Engine

	itemsLoaded         *prometheus.Desc
	itemsProcessed      *prometheus.Desc
	batchesDelivered    *prometheus.Desc
	loaderErrors        *prometheus.Desc
	processorErrors     *prometheus.Desc
	cacheHits           *prometheus.Desc
	cacheMisses         *prometheus.Desc
	cacheEvictions      *prometheus.Desc
	loadedQueueDepth    *prometheus.Desc
	processedQueueDepth *prometheus.Desc
	cacheSize           *prometheus.Desc
	repeatRatio         *prometheus.Desc
}

func newStatsCollector(engine *dataloader.Engine) *statsCollector {
	const ns = "dataloader"
	return &statsCollector{
		engine:              engine,
		itemsLoaded:         prometheus.NewDesc(ns+"_items_loaded_total", "Items successfully loaded.", nil, nil),
		itemsProcessed:      prometheus.NewDesc(ns+"_items_processed_total", "Items successfully processed.", nil, nil),
		batchesDelivered:    prometheus.NewDesc(ns+"_batches_delivered_total", "Batches returned by NextBatch.", nil, nil),
		loaderErrors:        prometheus.NewDesc(ns+"_loader_errors_total", "Load tasks that failed.", nil, nil),
		processorErrors:     prometheus.NewDesc(ns+"_processor_errors_total", "Items that failed processing.", nil, nil),
		cacheHits:           prometheus.NewDesc(ns+"_cache_hits_total", "Cache lookups that hit.", nil, nil),
		cacheMisses:         prometheus.NewDesc(ns+"_cache_misses_total", "Cache lookups that missed.", nil, nil),
		cacheEvictions:      prometheus.NewDesc(ns+"_cache_evictions_total", "Entries evicted from the cache.", nil, nil),
		loadedQueueDepth:    prometheus.NewDesc(ns+"_loaded_queue_depth", "Items buffered between loaders and processors.", nil, nil),
		processedQueueDepth: prometheus.NewDesc(ns+"_processed_queue_depth", "Items buffered waiting for NextBatch.", nil, nil),
		cacheSize:           prometheus.NewDesc(ns+"_cache_size", "Entries currently cached.", nil, nil),
		repeatRatio:         prometheus.NewDesc(ns+"_cache_approx_repeat_ratio", "Approximate fraction of loads that were repeat locators.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.itemsLoaded
	ch <- c.itemsProcessed
	ch <- c.batchesDelivered
	ch <- c.loaderErrors
	ch <- c.processorErrors
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.cacheEvictions
	ch <- c.loadedQueueDepth
	ch <- c.processedQueueDepth
	ch <- c.cacheSize
	ch <- c.repeatRatio
}

// Collect implements prometheus.Collector.
func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.engine.Stats()

	ch <- prometheus.MustNewConstMetric(c.itemsLoaded, prometheus.CounterValue, float64(s.ItemsLoaded))
	ch <- prometheus.MustNewConstMetric(c.itemsProcessed, prometheus.CounterValue, float64(s.ItemsProcessed))
	ch <- prometheus.MustNewConstMetric(c.batchesDelivered, prometheus.CounterValue, float64(s.BatchesDelivered))
	ch <- prometheus.MustNewConstMetric(c.loaderErrors, prometheus.CounterValue, float64(s.LoaderErrors))
	ch <- prometheus.MustNewConstMetric(c.processorErrors, prometheus.CounterValue, float64(s.ProcessorErrors))
	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(s.CacheHits))
	ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue, float64(s.CacheMisses))
	ch <- prometheus.MustNewConstMetric(c.cacheEvictions, prometheus.CounterValue, float64(s.CacheEvictions))
	ch <- prometheus.MustNewConstMetric(c.loadedQueueDepth, prometheus.GaugeValue, float64(s.LoadedQueueDepth))
	ch <- prometheus.MustNewConstMetric(c.processedQueueDepth, prometheus.GaugeValue, float64(s.ProcessedQueueDepth))
	ch <- prometheus.MustNewConstMetric(c.cacheSize, prometheus.GaugeValue, float64(c.engine.CacheSize()))
	ch <- prometheus.MustNewConstMetric(c.repeatRatio, prometheus.GaugeValue, c.engine.ApproxRepeatRatio())
}
