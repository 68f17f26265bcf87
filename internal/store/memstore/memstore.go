// Package memstore provides the in-memory backing store.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an unbounded in-memory page store. It never fails.
type Store struct {
	pageSize int

	mu    sync.RWMutex
	pages map[int64][]byte

	reads  atomic.Int64
	writes atomic.Int64
}

// New creates a new in-memory store serving pages of pageSize bytes.
// A non-positive pageSize selects store.DefaultPageSize.
func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	return &Store{
		pageSize: pageSize,
		pages:    make(map[int64][]byte),
	}
}

// ReadPage returns a copy of the page, or a zero page if it was never written.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.pages[key]
	if !ok {
		return store.ZeroPage(s.pageSize), nil
	}
	return store.PagePad(data, s.pageSize), nil
}

// WritePage stores a copy of data, padded or truncated to the page size.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	copied := store.PagePad(data, s.pageSize)

	s.writes.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = copied
	return nil
}

// Len returns the number of pages ever written.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Counts returns the number of reads and writes served so far.
func (s *Store) Counts() (reads, writes int64) {
	return s.reads.Load(), s.writes.Load()
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}
