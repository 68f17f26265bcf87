package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/lrusim/internal/stats"
)

// sample returns the counter or gauge value and histogram sample count of
// the named metric, or ok=false if it was never registered.
func sample(t *testing.T, reg *prometheus.Registry, name string) (value float64, count uint64, ok bool) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		if len(f.GetMetric()) != 1 {
			t.Fatalf("%s has %d series, want 1", name, len(f.GetMetric()))
		}
		m := f.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue(), 0, true
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue(), 0, true
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount()), m.GetHistogram().GetSampleCount(), true
		}
	}
	return 0, 0, false
}

func TestNew_NilRegistry(t *testing.T) {
	if c := New(nil); c.registry != prometheus.DefaultRegisterer {
		t.Error("New(nil) did not fall back to the default registerer")
	}
}

func TestCollector_SimulatorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricCacheHits, 5)
	c.IncCounter(stats.MetricCacheHits, 3)
	c.IncCounter(stats.MetricCacheEvictions, 1)
	c.SetGauge(stats.MetricCacheSize, 64)
	c.SetGauge(stats.MetricCacheSize, 12)
	c.SetGauge(stats.MetricWorkersLive, 4)
	for _, v := range []float64{0.0001, 0.002, 0.3} {
		c.ObserveHistogram(stats.MetricStoreLatencySeconds, v)
	}

	tests := []struct {
		name string
		want float64
	}{
		{stats.MetricCacheHits, 8},
		{stats.MetricCacheEvictions, 1},
		{stats.MetricCacheSize, 12},
		{stats.MetricWorkersLive, 4},
		{stats.MetricStoreLatencySeconds, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := sample(t, reg, tt.name)
			if !ok {
				t.Fatalf("%s not registered", tt.name)
			}
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if _, _, ok := sample(t, reg, stats.MetricCacheMisses); ok {
		t.Errorf("%s registered without being recorded", stats.MetricCacheMisses)
	}
}

func TestCollector_ConcurrentWorkers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	const workers, ops = 8, 250
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ops {
				c.IncCounter(stats.MetricWorkerOps, 1)
				c.SetGauge(stats.MetricWorkersLive, int64(w))
				c.ObserveHistogram(stats.MetricStoreLatencySeconds, float64(i)/1e6)
			}
		}()
	}
	wg.Wait()

	if got, _, _ := sample(t, reg, stats.MetricWorkerOps); got != workers*ops {
		t.Errorf("%s = %v, want %d", stats.MetricWorkerOps, got, workers*ops)
	}
	if _, count, _ := sample(t, reg, stats.MetricStoreLatencySeconds); count != workers*ops {
		t.Errorf("latency samples = %d, want %d", count, workers*ops)
	}
}

func TestCollector_AdoptsRegisteredMetric(t *testing.T) {
	tests := []struct {
		name string
		help string
		want float64
	}{
		// Same descriptor: the collector adds to the existing counter.
		{"same help", helpFor(stats.MetricStoreReads), 105},
		// Conflicting descriptor: the collector keeps its own copy unexported.
		{"different help", "registered by an earlier run", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			existing := prometheus.NewCounter(prometheus.CounterOpts{
				Name: stats.MetricStoreReads,
				Help: tt.help,
			})
			reg.MustRegister(existing)
			existing.Add(100)

			c := New(reg)
			c.IncCounter(stats.MetricStoreReads, 5)

			if got, _, _ := sample(t, reg, stats.MetricStoreReads); got != tt.want {
				t.Errorf("%s = %v, want %v", stats.MetricStoreReads, got, tt.want)
			}
		})
	}
}

func TestCollector_LatencyBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram(stats.MetricStoreLatencySeconds, 0.0001)
	c.ObserveHistogram("lrusim_custom_ratio", 0.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	seen := 0
	for _, f := range families {
		buckets := f.GetMetric()[0].GetHistogram().GetBucket()
		switch f.GetName() {
		case stats.MetricStoreLatencySeconds:
			seen++
			if len(buckets) != len(latencyBuckets) {
				t.Errorf("latency bucket count = %d, want %d", len(buckets), len(latencyBuckets))
			}
			if got := buckets[0].GetUpperBound(); got != 0.00005 {
				t.Errorf("first latency bound = %v, want 0.00005", got)
			}
			if f.GetHelp() != help[stats.MetricStoreLatencySeconds] {
				t.Errorf("help = %q", f.GetHelp())
			}
		case "lrusim_custom_ratio":
			seen++
			if len(buckets) != len(prometheus.DefBuckets) {
				t.Errorf("default bucket count = %d, want %d", len(buckets), len(prometheus.DefBuckets))
			}
			if f.GetHelp() != "lrusim_custom_ratio" {
				t.Errorf("help = %q, want metric name", f.GetHelp())
			}
		}
	}
	if seen != 2 {
		t.Errorf("found %d histograms, want 2", seen)
	}
}
