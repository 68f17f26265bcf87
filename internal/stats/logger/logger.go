// Package logger provides a zap-based stats collector that logs metrics
// and keeps running counter totals.
package logger

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/stats"
)

// Collector implements stats.Collector by logging metrics via zap.
type Collector struct {
	logger *zap.Logger

	mu     sync.Mutex
	totals map[string]int64
	gauges map[string]int64
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new logger-based collector.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger: logger,
		totals: make(map[string]int64),
		gauges: make(map[string]int64),
	}
}

// IncCounter logs a counter increment.
func (c *Collector) IncCounter(name string, delta int64) {
	c.mu.Lock()
	c.totals[name] += delta
	c.mu.Unlock()

	if ce := c.logger.Check(zap.DebugLevel, "counter"); ce != nil {
		ce.Write(zap.String("metric", name), zap.Int64("delta", delta))
	}
}

// SetGauge logs a gauge value.
func (c *Collector) SetGauge(name string, value int64) {
	c.mu.Lock()
	c.gauges[name] = value
	c.mu.Unlock()

	if ce := c.logger.Check(zap.DebugLevel, "gauge"); ce != nil {
		ce.Write(zap.String("metric", name), zap.Int64("value", value))
	}
}

// ObserveHistogram logs a histogram observation.
func (c *Collector) ObserveHistogram(name string, value float64) {
	if ce := c.logger.Check(zap.DebugLevel, "histogram"); ce != nil {
		ce.Write(zap.String("metric", name), zap.Float64("value", value))
	}
}

// Total returns the accumulated value of a counter.
func (c *Collector) Total(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals[name]
}

// LogTotals writes every counter total and last gauge value at info level.
func (c *Collector) LogTotals() {
	c.mu.Lock()
	fields := make([]zap.Field, 0, len(c.totals)+len(c.gauges))
	for _, name := range sortedKeys(c.totals) {
		fields = append(fields, zap.Int64(name, c.totals[name]))
	}
	for _, name := range sortedKeys(c.gauges) {
		fields = append(fields, zap.Int64(name, c.gauges[name]))
	}
	c.mu.Unlock()

	c.logger.Info("metric totals", fields...)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
