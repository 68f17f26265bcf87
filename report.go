package lrusim

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/discochess/lrusim/internal/cache"
	"github.com/discochess/lrusim/internal/worker"
)

// Report summarizes a run.
type Report struct {
	RunID    string
	Workers  int
	Capacity int
	Variant  string
	Pattern  string
	Store    string

	// Duration is the configured run length; Elapsed is measured from
	// start until every worker was joined.
	Duration time.Duration
	Elapsed  time.Duration

	Totals    worker.Statistics
	PerWorker []worker.Statistics
	Cache     cache.Stats

	// HitRate is hits/(hits+misses) over all workers.
	HitRate float64
	// OpsPerSecond is (hits+misses)/Elapsed.
	OpsPerSecond float64
	// Throughput describes per-worker operations per second.
	Throughput Distribution
	// Imbalance is the Gini coefficient of per-worker operation counts:
	// 0 when every worker did the same work.
	Imbalance float64

	// Partial is set when the run was cut short by a worker panic or
	// cancellation; Failure holds the reason.
	Partial bool
	Failure string
}

// Distribution contains basic descriptive statistics for a sample.
type Distribution struct {
	N      int
	Mean   float64
	StdDev float64
	Median float64
	Min    float64
	Max    float64
}

func newReport(runID string, cfg Config, elapsed time.Duration, perWorker []worker.Statistics, cs cache.Stats) *Report {
	r := &Report{
		RunID:     runID,
		Workers:   cfg.Workers,
		Capacity:  cfg.Capacity,
		Variant:   cfg.Variant,
		Pattern:   cfg.Pattern,
		Store:     cfg.Store.Kind,
		Duration:  cfg.Duration,
		Elapsed:   elapsed,
		PerWorker: perWorker,
		Cache:     cs,
	}

	ops := make([]float64, len(perWorker))
	rates := make([]float64, len(perWorker))
	for i, st := range perWorker {
		r.Totals.Merge(st)
		ops[i] = float64(st.Ops())
		if elapsed > 0 {
			rates[i] = ops[i] / elapsed.Seconds()
		}
	}

	r.HitRate = r.Totals.HitRate()
	if elapsed > 0 {
		r.OpsPerSecond = float64(r.Totals.Ops()) / elapsed.Seconds()
	}
	r.Throughput = describe(rates)
	r.Imbalance = gini(ops)
	return r
}

// describe computes descriptive statistics for a sample.
func describe(sample []float64) Distribution {
	if len(sample) == 0 {
		return Distribution{}
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	d := Distribution{
		N:      len(sample),
		Mean:   stat.Mean(sample, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	if len(sample) > 1 {
		d.StdDev = stat.StdDev(sample, nil)
	}
	return d
}

// gini returns the Gini coefficient of values, 0 for an empty or all-zero sample.
func gini(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := float64(len(sorted))
	var sum, cumulativeSum float64
	for i, v := range sorted {
		sum += v
		cumulativeSum += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return (2*cumulativeSum)/(n*sum) - (n+1)/n
}

// WriteText writes a plain-text summary of the report to w.
func (r *Report) WriteText(w io.Writer) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "LRU Cache Simulation\n")
	fmt.Fprintf(&b, "====================\n\n")
	fmt.Fprintf(&b, "Run:       %s\n", r.RunID)
	fmt.Fprintf(&b, "Workers:   %d\n", r.Workers)
	fmt.Fprintf(&b, "Cache:     %d pages (%s)\n", r.Capacity, r.Variant)
	fmt.Fprintf(&b, "Workload:  %s\n", r.Pattern)
	fmt.Fprintf(&b, "Store:     %s\n", r.Store)
	fmt.Fprintf(&b, "Elapsed:   %s (configured %s)\n\n", r.Elapsed.Round(time.Millisecond), r.Duration)

	fmt.Fprintf(&b, "Results:\n")
	fmt.Fprintf(&b, "--------\n\n")
	fmt.Fprintf(&b, "  Total operations:  %d (%d reads, %d writes)\n", r.Totals.Ops(), r.Totals.Reads, r.Totals.Writes)
	fmt.Fprintf(&b, "  Hits:              %d\n", r.Totals.Hits)
	fmt.Fprintf(&b, "  Misses:            %d\n", r.Totals.Misses)
	fmt.Fprintf(&b, "  Hit rate:          %.2f%%\n", r.HitRate*100)
	fmt.Fprintf(&b, "  Throughput:        %.1f ops/sec\n", r.OpsPerSecond)
	fmt.Fprintf(&b, "  Evictions:         %d\n", r.Totals.Evictions)
	fmt.Fprintf(&b, "  Write-backs:       %d\n", r.Totals.WriteBacks)
	fmt.Fprintf(&b, "  Errors:            %d\n", r.Totals.Errors)
	fmt.Fprintf(&b, "  Stale refetches:   %d\n\n", r.Cache.Refetches)

	if len(r.PerWorker) > 1 {
		fmt.Fprintf(&b, "Per worker:\n")
		fmt.Fprintf(&b, "-----------\n\n")
		fmt.Fprintf(&b, "  ops/sec mean %.1f, stddev %.1f, median %.1f, min %.1f, max %.1f\n",
			r.Throughput.Mean, r.Throughput.StdDev, r.Throughput.Median, r.Throughput.Min, r.Throughput.Max)
		fmt.Fprintf(&b, "  imbalance (gini): %.3f\n", r.Imbalance)
		for i, st := range r.PerWorker {
			fmt.Fprintf(&b, "  worker %d: %d ops, hit rate %.2f%%, %d errors\n", i, st.Ops(), st.HitRate()*100, st.Errors)
		}
		fmt.Fprintln(&b)
	}

	if r.Partial {
		fmt.Fprintf(&b, "PARTIAL RESULTS: %s\n", r.Failure)
	}

	_, err := w.Write(b.Bytes())
	return err
}
