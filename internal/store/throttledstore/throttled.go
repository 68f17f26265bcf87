// Package throttledstore caps the rate of backing store operations,
// modelling a device with a fixed IOPS budget.
package throttledstore

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store admits at most iops operations per second (reads and writes share
// the budget).
type Store struct {
	inner   store.Store
	limiter *rate.Limiter
}

// New wraps inner with a token bucket of the given rate and burst.
// A burst below 1 is raised to 1.
func New(inner store.Store, iops float64, burst int) *Store {
	return &Store{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(iops), max(burst, 1)),
	}
}

// ReadPage waits for a token, then reads from the inner store.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.ReadPage(ctx, key)
}

// WritePage waits for a token, then writes to the inner store.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.WritePage(ctx, key, data)
}

// Close closes the inner store.
func (s *Store) Close() error {
	return s.inner.Close()
}
