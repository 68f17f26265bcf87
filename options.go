package lrusim

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/store"
	"github.com/discochess/lrusim/internal/workload"
)

// Option configures a Coordinator.
type Option interface {
	apply(*options)
}

// options holds the coordinator wiring that does not belong in Config.
type options struct {
	store     store.Store
	stats     stats.Collector
	registry  *prometheus.Registry
	logger    *zap.Logger
	generator func(worker int) workload.Generator
}

// defaultOptions returns the default wiring.
func defaultOptions() options {
	return options{
		logger: zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithStore sets the base backing store, replacing the one Config.Store
// would open. Latency and throttling from Config.Store still apply.
// The coordinator closes it on Close.
func WithStore(s store.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used, or a Prometheus collector when
// Config.MetricsAddr is set. Combining WithStats with Config.MetricsAddr
// also requires WithRegistry naming the registry the collector writes to;
// New rejects the configuration otherwise.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithRegistry sets the Prometheus registry served on Config.MetricsAddr.
// Without WithStats, metrics are registered on it.
func WithRegistry(r *prometheus.Registry) Option {
	return optionFunc(func(o *options) {
		o.registry = r
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithWorkload overrides the key generator for each worker.
// If not set, generators are built from Config.Pattern.
func WithWorkload(fn func(worker int) workload.Generator) Option {
	return optionFunc(func(o *options) {
		o.generator = fn
	})
}
