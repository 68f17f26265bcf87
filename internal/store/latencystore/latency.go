// Package latencystore wraps a Store with simulated device latency.
package latencystore

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store delays every call by base plus a uniformly random jitter in [0, jitter).
type Store struct {
	inner     store.Store
	base      time.Duration
	jitter    time.Duration
	collector stats.Collector

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithStats sets the collector receiving read/write counts and latencies.
func WithStats(c stats.Collector) Option {
	return func(s *Store) { s.collector = c }
}

// WithSeed makes the jitter sequence deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Store) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New wraps inner. Negative durations are treated as zero.
func New(inner store.Store, base, jitter time.Duration, opts ...Option) *Store {
	s := &Store{
		inner:     inner,
		base:      max(base, 0),
		jitter:    max(jitter, 0),
		collector: stats.NewNoop(),
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadPage waits out the simulated latency, then reads from the inner store.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	start := time.Now()
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	data, err := s.inner.ReadPage(ctx, key)
	s.collector.IncCounter(stats.MetricStoreReads, 1)
	s.collector.ObserveHistogram(stats.MetricStoreLatencySeconds, time.Since(start).Seconds())
	return data, err
}

// WritePage waits out the simulated latency, then writes to the inner store.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	start := time.Now()
	if err := s.wait(ctx); err != nil {
		return err
	}
	err := s.inner.WritePage(ctx, key, data)
	s.collector.IncCounter(stats.MetricStoreWrites, 1)
	s.collector.ObserveHistogram(stats.MetricStoreLatencySeconds, time.Since(start).Seconds())
	return err
}

// Close closes the inner store.
func (s *Store) Close() error {
	return s.inner.Close()
}

// Unwrap returns the decorated store.
func (s *Store) Unwrap() store.Store {
	return s.inner
}

// delay picks the latency for one call.
func (s *Store) delay() time.Duration {
	if s.jitter == 0 {
		return s.base
	}
	s.mu.Lock()
	j := time.Duration(s.rng.Int64N(int64(s.jitter)))
	s.mu.Unlock()
	return s.base + j
}

func (s *Store) wait(ctx context.Context) error {
	d := s.delay()
	if d == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
