// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/lrusim/internal/stats"
)

// help holds descriptions for the simulator's own metrics.
// Unknown names use the metric name as help text.
var help = map[string]string{
	stats.MetricCacheHits:           "Cache lookups served without touching the backing store.",
	stats.MetricCacheMisses:         "Cache lookups that required a backing store fetch or insert.",
	stats.MetricCacheEvictions:      "Entries evicted from the cache.",
	stats.MetricCacheWriteBacks:     "Dirty pages written back to the backing store.",
	stats.MetricCacheRefetches:      "Fetches discarded because the page changed while fetching.",
	stats.MetricCacheSize:           "Current number of cached pages.",
	stats.MetricStoreReads:          "Backing store page reads.",
	stats.MetricStoreWrites:         "Backing store page writes.",
	stats.MetricStoreLatencySeconds: "Backing store call latency in seconds.",
	stats.MetricWorkerOps:           "Operations issued by client workers.",
	stats.MetricWorkerErrors:        "Worker operations that failed and were skipped.",
	stats.MetricWorkersLive:         "Client workers currently running.",
}

// latencyBuckets spans 50µs to ~1.6s, covering in-memory through remote stores.
var latencyBuckets = prometheus.ExponentialBuckets(0.00005, 2, 16)

// Collector implements stats.Collector using Prometheus metrics.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.RWMutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new Prometheus collector.
// If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	counter := getOrRegister(c, c.counters, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: helpFor(name)})
	})
	counter.Add(float64(delta))
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	gauge := getOrRegister(c, c.gauges, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: helpFor(name)})
	})
	gauge.Set(float64(value))
}

// ObserveHistogram records a value in a histogram.
// Metrics whose name ends in "_seconds" use latency buckets.
func (c *Collector) ObserveHistogram(name string, value float64) {
	histogram := getOrRegister(c, c.histograms, name, func() prometheus.Histogram {
		buckets := prometheus.DefBuckets
		if strings.HasSuffix(name, "_seconds") {
			buckets = latencyBuckets
		}
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    helpFor(name),
			Buckets: buckets,
		})
	})
	histogram.Observe(value)
}

// getOrRegister returns the metric stored under name, creating and
// registering it on first use. A metric already registered elsewhere under
// the same name is adopted instead.
func getOrRegister[T prometheus.Collector](c *Collector, metrics map[string]T, name string, build func() T) T {
	c.mu.RLock()
	m, ok := metrics[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if m, ok = metrics[name]; ok {
		return m
	}

	m = build()
	if err := c.registry.Register(m); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				metrics[name] = existing
				return existing
			}
		}
		// Registration failed but the metric still works unexported.
	}
	metrics[name] = m
	return m
}

func helpFor(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}
