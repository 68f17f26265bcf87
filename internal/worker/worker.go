// Package worker runs one simulated client against the shared cache.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/cache"
	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/workload"
)

// ErrPanic is matched by every *PanicError.
var ErrPanic = errors.New("worker: panic")

// Operation names.
const (
	OpGet = "get"
	OpPut = "put"
)

// PanicError reports a panic recovered from a worker.
type PanicError struct {
	Worker int
	Op     string
	Key    int64
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker %d panicked during %s of key %d: %v", e.Worker, e.Op, e.Key, e.Value)
}

// Unwrap lets errors.Is(err, ErrPanic) match.
func (e *PanicError) Unwrap() error { return ErrPanic }

// Cache is the part of the page cache a worker drives.
type Cache interface {
	Get(ctx context.Context, key int64) ([]byte, cache.Access, error)
	Put(ctx context.Context, key int64, content []byte) (cache.Access, error)
}

// Compile-time check that *cache.Cache satisfies Cache.
var _ Cache = (*cache.Cache)(nil)

// Worker issues a stream of gets and puts until told to stop.
type Worker struct {
	id         int
	cache      Cache
	gen        workload.Generator
	writeRatio float64
	pageSize   int
	rng        *rand.Rand
	collector  stats.Collector
	logger     *zap.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithWriteRatio sets the probability that an operation is a put.
func WithWriteRatio(r float64) Option {
	return func(w *Worker) { w.writeRatio = r }
}

// WithPageSize bounds the content written by puts.
func WithPageSize(n int) Option {
	return func(w *Worker) { w.pageSize = n }
}

// WithSeed seeds the read/write choice.
func WithSeed(seed uint64) Option {
	return func(w *Worker) { w.rng = rand.New(rand.NewPCG(seed, uint64(w.id))) }
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return func(w *Worker) { w.collector = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// New creates worker id driving c with keys from gen.
func New(id int, c Cache, gen workload.Generator, opts ...Option) *Worker {
	w := &Worker{
		id:        id,
		cache:     c,
		gen:       gen,
		pageSize:  4096,
		rng:       rand.New(rand.NewPCG(uint64(id), uint64(id))),
		collector: stats.NewNoop(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.Int("worker", id))
	return w
}

// ID returns the worker number.
func (w *Worker) ID() int { return w.id }

// Run performs operations until stop is set or ctx is done. The stop flag
// is checked before each operation, so an operation in progress always
// completes. Per-operation errors are counted and the loop continues; a
// panic ends the run with a *PanicError and the statistics gathered so far.
func (w *Worker) Run(ctx context.Context, stop *atomic.Bool) (st Statistics, err error) {
	var (
		op       string
		key      int64
		warned   bool
		sequence int64
	)
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Worker: w.id, Op: op, Key: key, Value: r, Stack: debug.Stack()}
			w.logger.Error("worker panicked",
				zap.String("op", op),
				zap.Int64("key", key),
				zap.Any("panic", r),
			)
			err = perr
		}
	}()

	for !stop.Load() && ctx.Err() == nil {
		key = w.gen.Next()
		sequence++

		var (
			acc   cache.Access
			opErr error
		)
		if w.writeRatio > 0 && w.rng.Float64() < w.writeRatio {
			op = OpPut
			st.Writes++
			acc, opErr = w.cache.Put(ctx, key, w.content(key, sequence))
		} else {
			op = OpGet
			st.Reads++
			_, acc, opErr = w.cache.Get(ctx, key)
		}

		// Failed calls count as misses, as they do in the cache.
		st.Evictions += int64(acc.Evictions)
		st.WriteBacks += int64(acc.WriteBacks)
		if acc.Hit {
			st.Hits++
		} else {
			st.Misses++
		}
		w.collector.IncCounter(stats.MetricWorkerOps, 1)

		if opErr != nil {
			if ctx.Err() != nil {
				// Aborted mid-operation; not a steady-state failure.
				break
			}
			st.Errors++
			w.collector.IncCounter(stats.MetricWorkerErrors, 1)
			if !warned {
				w.logger.Warn("operation failed", zap.String("op", op), zap.Int64("key", key), zap.Error(opErr))
				warned = true
			} else if ce := w.logger.Check(zap.DebugLevel, "operation failed"); ce != nil {
				ce.Write(zap.String("op", op), zap.Int64("key", key), zap.Error(opErr))
			}
		}
	}
	op = ""
	return st, nil
}

// content builds the page body for a put, truncated to the page size.
func (w *Worker) content(key, sequence int64) []byte {
	b := fmt.Appendf(nil, "key=%d worker=%d seq=%d", key, w.id, sequence)
	if len(b) > w.pageSize {
		b = b[:w.pageSize]
	}
	return b
}
