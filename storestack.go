package lrusim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/codec"
	"github.com/discochess/lrusim/internal/codec/gzipcodec"
	"github.com/discochess/lrusim/internal/codec/noopcodec"
	"github.com/discochess/lrusim/internal/codec/zstdcodec"
	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/store"
	"github.com/discochess/lrusim/internal/store/diskstore"
	"github.com/discochess/lrusim/internal/store/gcsstore"
	"github.com/discochess/lrusim/internal/store/latencystore"
	"github.com/discochess/lrusim/internal/store/memstore"
	"github.com/discochess/lrusim/internal/store/redisstore"
	"github.com/discochess/lrusim/internal/store/s3store"
	"github.com/discochess/lrusim/internal/store/throttledstore"
)

// openStore opens the base store described by sc.
func openStore(ctx context.Context, sc StoreConfig, pageSize int) (store.Store, error) {
	switch sc.Kind {
	case StoreMemory, "":
		return memstore.New(pageSize), nil
	case StoreFile:
		return diskstore.New(sc.Path, pageSize, diskstore.WithSync(sc.Sync))
	case StoreS3:
		var opts []s3store.Option
		if sc.Prefix != "" {
			opts = append(opts, s3store.WithPrefix(sc.Prefix))
		}
		if sc.Region != "" {
			opts = append(opts, s3store.WithRegion(sc.Region))
		}
		if sc.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(sc.Endpoint))
		}
		return s3store.New(ctx, sc.Bucket, codecFor(sc.Codec), pageSize, opts...)
	case StoreGCS:
		var opts []gcsstore.Option
		if sc.Prefix != "" {
			opts = append(opts, gcsstore.WithPrefix(sc.Prefix))
		}
		return gcsstore.New(ctx, sc.Bucket, codecFor(sc.Codec), pageSize, opts...)
	case StoreRedis:
		return redisstore.New(ctx, sc.Redis, codecFor(sc.Codec), pageSize)
	default:
		return nil, fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfiguration, sc.Kind)
	}
}

// decorate wraps base with the IOPS ceiling and simulated latency.
func decorate(base store.Store, sc StoreConfig, seed uint64, collector stats.Collector, logger *zap.Logger) store.Store {
	st := base
	if sc.IOPS > 0 {
		burst := sc.Burst
		if burst <= 0 {
			burst = 1
		}
		st = throttledstore.New(st, sc.IOPS, burst)
		logger.Debug("store throttled", zap.Float64("iops", sc.IOPS), zap.Int("burst", burst))
	}
	return latencystore.New(st, sc.Latency, sc.Jitter,
		latencystore.WithStats(collector),
		latencystore.WithSeed(seed),
	)
}

func codecFor(name string) codec.Codec {
	switch name {
	case CodecNone:
		return noopcodec.New()
	case CodecGzip:
		return gzipcodec.New()
	default:
		return zstdcodec.New()
	}
}
