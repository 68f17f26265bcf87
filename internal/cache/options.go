package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/cache/strategy"
	"github.com/discochess/lrusim/internal/cache/strategy/arena"
	"github.com/discochess/lrusim/internal/cache/strategy/lru"
	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/store"
)

// Strategy variants accepted by WithVariant and NewStrategy.
const (
	VariantArena     = "arena"
	VariantGolangLRU = "golang-lru"
)

// Variants lists the known strategy variants.
var Variants = []string{VariantArena, VariantGolangLRU}

// Option configures a Cache.
type Option func(*options)

type options struct {
	variant   string
	pageSize  int
	collector stats.Collector
	logger    *zap.Logger
}

func defaultOptions() options {
	return options{
		variant:   VariantArena,
		pageSize:  store.DefaultPageSize,
		collector: stats.NewNoop(),
		logger:    zap.NewNop(),
	}
}

// WithVariant selects the recency strategy. Default is VariantArena.
func WithVariant(name string) Option {
	return func(o *options) {
		o.variant = name
	}
}

// WithPageSize sets the page size in bytes. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return func(o *options) {
		if c != nil {
			o.collector = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewStrategy creates the named recency strategy sized for capacity entries.
func NewStrategy(variant string, capacity int) (strategy.Strategy, error) {
	switch variant {
	case VariantArena, "":
		return arena.New(capacity), nil
	case VariantGolangLRU:
		s, err := lru.New(capacity)
		if err != nil {
			return nil, fmt.Errorf("creating %s strategy: %w", variant, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown strategy variant %q", variant)
	}
}
