package throttledstore

import (
	"context"
	"testing"
	"time"

	"github.com/discochess/lrusim/internal/store/memstore"
)

func TestStore_LimitsRate(t *testing.T) {
	// 100 ops/s with burst 1: the 11 calls below need at least ~100ms.
	s := New(memstore.New(8), 100, 1)
	ctx := context.Background()

	start := time.Now()
	for i := int64(0); i < 11; i++ {
		if _, err := s.ReadPage(ctx, i); err != nil {
			t.Fatalf("ReadPage() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("11 reads at 100 IOPS took %v, want >= 90ms", elapsed)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s := New(memstore.New(8), 0.001, 1)
	ctx := context.Background()

	// Drain the single token.
	if err := s.WritePage(ctx, 1, []byte("x")); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := s.WritePage(ctx, 2, []byte("y")); err == nil {
		t.Error("WritePage() expected error when no token arrives before the deadline")
	}
}
