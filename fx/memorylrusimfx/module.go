// Package memorylrusimfx provides an fx module for a coordinator backed by
// an in-memory store. Useful for testing.
package memorylrusimfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/lrusim"
	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/stats/logger"
	"github.com/discochess/lrusim/internal/store/memstore"
)

// Module provides an in-memory coordinator and its store.
// Requires a *zap.Logger to be provided; an lrusim.Config is optional and
// defaults to lrusim.DefaultConfig().
var Module = fx.Module("memorylrusim",
	fx.Provide(
		newStatsCollector,
		newCoordinator,
	),
)

func newStatsCollector(log *zap.Logger) *logger.Collector {
	return logger.New(log.Named("lrusim.stats"))
}

// Params holds dependencies for creating the coordinator.
type Params struct {
	fx.In

	Config    *lrusim.Config `optional:"true"`
	Logger    *zap.Logger
	Collector *logger.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided coordinator, store and collector.
type Result struct {
	fx.Out

	Coordinator *lrusim.Coordinator
	Store       *memstore.Store // Exposed for test setup
	Collector   stats.Collector
}

func newCoordinator(p Params) (Result, error) {
	cfg := lrusim.DefaultConfig()
	if p.Config != nil {
		cfg = *p.Config
	}
	cfg.Store.Kind = lrusim.StoreMemory

	mem := memstore.New(cfg.PageSize)
	c, err := lrusim.New(context.Background(), cfg,
		lrusim.WithStore(mem),
		lrusim.WithStats(p.Collector),
		lrusim.WithLogger(p.Logger.Named("lrusim")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Collector.LogTotals()
			return c.Close()
		},
	})

	return Result{
		Coordinator: c,
		Store:       mem,
		Collector:   p.Collector,
	}, nil
}
