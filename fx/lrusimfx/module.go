// Package lrusimfx provides an fx module for a simulation coordinator
// built from an lrusim.Config.
package lrusimfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/lrusim"
	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/stats/logger"
)

// Module provides a *lrusim.Coordinator.
// Requires a *zap.Logger and an lrusim.Config to be provided. Stats go to
// the logger unless Config.MetricsAddr is set.
var Module = fx.Module("lrusim",
	fx.Provide(
		newStatsCollector,
		newCoordinator,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("lrusim.stats"))
}

// Params holds dependencies for creating the coordinator.
type Params struct {
	fx.In

	Config    lrusim.Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided coordinator.
type Result struct {
	fx.Out

	Coordinator *lrusim.Coordinator
}

func newCoordinator(p Params) (Result, error) {
	// Stores connect during construction; the fx start timeout does not apply here.
	opts := []lrusim.Option{lrusim.WithLogger(p.Logger.Named("lrusim"))}
	// With metrics_addr set, the coordinator serves its own Prometheus collector.
	if p.Config.MetricsAddr == "" {
		opts = append(opts, lrusim.WithStats(p.Collector))
	}
	c, err := lrusim.New(context.Background(), p.Config, opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})

	return Result{Coordinator: c}, nil
}
