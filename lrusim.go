// Package lrusim simulates a shared, fixed-capacity LRU page cache in front
// of a slow backing store, driven by concurrent clients.
//
// Example usage:
//
//	cfg := lrusim.DefaultConfig()
//	cfg.Workers = 8
//	cfg.Duration = 5 * time.Second
//
//	sim, err := lrusim.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sim.Close()
//
//	report, err := sim.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.WriteText(os.Stdout)
package lrusim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/lrusim/internal/cache"
	"github.com/discochess/lrusim/internal/metricsserver"
	"github.com/discochess/lrusim/internal/seed"
	"github.com/discochess/lrusim/internal/stats"
	statsprom "github.com/discochess/lrusim/internal/stats/prometheus"
	"github.com/discochess/lrusim/internal/store"
	"github.com/discochess/lrusim/internal/worker"
	"github.com/discochess/lrusim/internal/workload"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the coordinator has been closed.
	ErrClosed = errors.New("lrusim: coordinator closed")

	// ErrAlreadyRun indicates Run was called more than once.
	ErrAlreadyRun = errors.New("lrusim: coordinator already ran")
)

// State is a coordinator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateReporting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Coordinator owns the cache and backing store and runs the workers.
// A Coordinator runs once.
type Coordinator struct {
	cfg       Config
	store     store.Store
	cache     *cache.Cache
	stats     stats.Collector
	registry  *prometheus.Registry
	logger    *zap.Logger
	generator func(worker int) workload.Generator

	state  atomic.Int32
	closed atomic.Bool
}

// New validates cfg, opens and seeds the backing store and builds the cache.
// Configuration problems are reported as ErrInvalidConfiguration before
// anything is opened.
func New(ctx context.Context, cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.stats != nil && o.registry == nil && cfg.MetricsAddr != "" {
		return nil, fmt.Errorf("%w: metrics_addr needs WithRegistry when WithStats supplies the collector", ErrInvalidConfiguration)
	}

	c := &Coordinator{
		cfg:       cfg,
		stats:     o.stats,
		registry:  o.registry,
		logger:    o.logger,
		generator: o.generator,
	}
	if c.registry == nil && cfg.MetricsAddr != "" {
		c.registry = prometheus.NewRegistry()
	}
	if c.stats == nil {
		if c.registry != nil {
			c.stats = statsprom.New(c.registry)
		} else {
			c.stats = stats.NewNoop()
		}
	}

	base := o.store
	if base == nil {
		var err error
		base, err = openStore(ctx, cfg.Store, cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Kind, err)
		}
	}

	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(ctx, cfg.SeedFile, base, cfg.PageSize, c.logger); err != nil {
			base.Close()
			return nil, fmt.Errorf("seeding store: %w", err)
		}
	}

	c.store = decorate(base, cfg.Store, cfg.RandomSeed, c.stats, c.logger)

	pc, err := cache.New(cfg.Capacity, c.store,
		cache.WithVariant(cfg.Variant),
		cache.WithPageSize(cfg.PageSize),
		cache.WithStats(c.stats),
		cache.WithLogger(c.logger.Named("cache")),
	)
	if err != nil {
		c.store.Close()
		if errors.Is(err, cache.ErrInvalidCapacity) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	c.cache = pc

	c.logger.Debug("coordinator initialized",
		zap.Int("workers", cfg.Workers),
		zap.Duration("duration", cfg.Duration),
		zap.Int("capacity", cfg.Capacity),
		zap.String("variant", pc.Strategy()),
		zap.String("store", cfg.Store.Kind),
	)
	return c, nil
}

// Run starts the workers, stops them at the configured deadline, waits for
// in-flight operations to finish and reports the merged statistics.
//
// If a worker panics, the remaining workers are cancelled and Run returns a
// partial report together with the *worker.PanicError. Cancelling ctx also
// yields a partial report and ctx's error.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyRun
	}
	defer c.state.Store(int32(StateDone))

	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run", runID))

	if c.cfg.MetricsAddr != "" {
		srv, err := metricsserver.Start(c.cfg.MetricsAddr, c.registry, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := srv.Close(); err != nil {
				logger.Warn("closing metrics server", zap.Error(err))
			}
		}()
	}

	workers, err := c.workers(logger)
	if err != nil {
		return nil, err
	}

	logger.Info("run started",
		zap.Int("workers", len(workers)),
		zap.Duration("duration", c.cfg.Duration),
	)

	var (
		stop    atomic.Bool
		live    atomic.Int64
		results = make([]worker.Statistics, len(workers))
	)
	g, gctx := errgroup.WithContext(ctx)

	start := time.Now()
	deadline := time.AfterFunc(c.cfg.Duration, func() {
		stop.Store(true)
		c.drain()
	})

	for i, w := range workers {
		g.Go(func() error {
			c.stats.SetGauge(stats.MetricWorkersLive, live.Add(1))
			defer func() { c.stats.SetGauge(stats.MetricWorkersLive, live.Add(-1)) }()

			st, err := w.Run(gctx, &stop)
			results[i] = st
			return err
		})
	}

	runErr := g.Wait()
	deadline.Stop()
	c.drain()
	elapsed := time.Since(start)

	c.state.Store(int32(StateReporting))
	report := newReport(runID, c.cfg, elapsed, results, c.cache.Stats())

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		report.Partial = true
		report.Failure = runErr.Error()
		logger.Error("run aborted", zap.Error(runErr), zap.Int64("ops", report.Totals.Ops()))
		return report, runErr
	}

	if err := c.cache.Verify(); err != nil {
		return report, err
	}

	logger.Info("run finished",
		zap.Duration("elapsed", elapsed),
		zap.Int64("ops", report.Totals.Ops()),
		zap.Float64("hitRate", report.HitRate),
		zap.Float64("opsPerSecond", report.OpsPerSecond),
	)
	return report, nil
}

// drain moves a running coordinator to StateDraining.
func (c *Coordinator) drain() {
	c.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
}

func (c *Coordinator) workers(logger *zap.Logger) ([]*worker.Worker, error) {
	workerLogger := logger.Named("worker")
	workers := make([]*worker.Worker, c.cfg.Workers)
	for i := range workers {
		gen, err := c.workload(i)
		if err != nil {
			return nil, err
		}
		workers[i] = worker.New(i, c.cache, gen,
			worker.WithWriteRatio(c.cfg.WriteRatio),
			worker.WithPageSize(c.cfg.PageSize),
			worker.WithSeed(c.cfg.RandomSeed),
			worker.WithStats(c.stats),
			worker.WithLogger(workerLogger),
		)
	}
	return workers, nil
}

func (c *Coordinator) workload(i int) (workload.Generator, error) {
	if c.generator != nil {
		return c.generator(i), nil
	}
	gen, err := workload.New(workload.Spec{
		Pattern: c.cfg.Pattern,
		Keys:    c.cfg.Keys,
		ZipfS:   c.cfg.ZipfS,
	}, c.cfg.RandomSeed+uint64(i))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return gen, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Cache returns the shared page cache.
func (c *Coordinator) Cache() *cache.Cache {
	return c.cache
}

// Config returns the configuration the coordinator was built with.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// Close flushes dirty pages if configured and closes the backing store.
// After Close, the coordinator should not be used.
func (c *Coordinator) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	var errs []error
	if c.cfg.FlushOnClose {
		if err := c.cache.Flush(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("flushing cache: %w", err))
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	c.logger.Debug("coordinator closed")
	return errors.Join(errs...)
}
