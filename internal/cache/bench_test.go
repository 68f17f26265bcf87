package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/discochess/lrusim/internal/store/memstore"
	"github.com/discochess/lrusim/internal/workload"
)

const benchPageSize = 4096

func newBenchCache(b *testing.B, capacity int, variant string) *Cache {
	b.Helper()
	c, err := New(capacity, memstore.New(benchPageSize),
		WithPageSize(benchPageSize),
		WithVariant(variant),
	)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	return c
}

// BenchmarkGet_ColdCache measures Get when every access misses.
func BenchmarkGet_ColdCache(b *testing.B) {
	for _, variant := range Variants {
		b.Run(variant, func(b *testing.B) {
			c := newBenchCache(b, 64, variant)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := c.Get(ctx, int64(i)); err != nil {
					b.Fatalf("Get() error = %v", err)
				}
			}
		})
	}
}

// BenchmarkGet_WarmCache measures Get on a resident page.
func BenchmarkGet_WarmCache(b *testing.B) {
	for _, variant := range Variants {
		b.Run(variant, func(b *testing.B) {
			c := newBenchCache(b, 64, variant)
			ctx := context.Background()
			if _, _, err := c.Get(ctx, 1); err != nil {
				b.Fatalf("Get() error = %v", err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := c.Get(ctx, 1); err != nil {
					b.Fatalf("Get() error = %v", err)
				}
			}
		})
	}
}

// BenchmarkGet_Zipf measures a skewed workload larger than the cache.
func BenchmarkGet_Zipf(b *testing.B) {
	for _, variant := range Variants {
		b.Run(variant, func(b *testing.B) {
			c := newBenchCache(b, 128, variant)
			gen, err := workload.New(workload.Spec{Pattern: workload.PatternZipf, Keys: 4096}, 1)
			if err != nil {
				b.Fatalf("workload.New() error = %v", err)
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := c.Get(ctx, gen.Next()); err != nil {
					b.Fatalf("Get() error = %v", err)
				}
			}
			b.ReportMetric(c.Stats().HitRate()*100, "hit%")
		})
	}
}

// BenchmarkPut_Parallel measures contended puts with write-back.
func BenchmarkPut_Parallel(b *testing.B) {
	for _, variant := range Variants {
		b.Run(variant, func(b *testing.B) {
			c := newBenchCache(b, 256, variant)
			ctx := context.Background()
			buf := []byte(fmt.Sprintf("page-%d", b.N))

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				gen := workload.NewUniform(1024, rand.New(rand.NewPCG(rand.Uint64(), 0)))
				for pb.Next() {
					if _, err := c.Put(ctx, gen.Next(), buf); err != nil {
						b.Errorf("Put() error = %v", err)
						return
					}
				}
			})
		})
	}
}
