// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the simulator.
const (
	// Cache metrics.
	MetricCacheHits       = "lrusim_cache_hits_total"
	MetricCacheMisses     = "lrusim_cache_misses_total"
	MetricCacheEvictions  = "lrusim_cache_evictions_total"
	MetricCacheWriteBacks = "lrusim_cache_writebacks_total"
	MetricCacheRefetches  = "lrusim_cache_refetches_total"
	MetricCacheSize       = "lrusim_cache_size"

	// Backing store metrics.
	MetricStoreReads          = "lrusim_store_reads_total"
	MetricStoreWrites         = "lrusim_store_writes_total"
	MetricStoreLatencySeconds = "lrusim_store_latency_seconds"

	// Worker metrics.
	MetricWorkerOps    = "lrusim_worker_ops_total"
	MetricWorkerErrors = "lrusim_worker_errors_total"
	MetricWorkersLive  = "lrusim_workers_running"
)

// Collector defines the interface for collecting metrics.
// Implementations must be safe for concurrent use.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
