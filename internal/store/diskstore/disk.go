// Package diskstore implements a file-backed page store.
//
// Pages live in a single file (or raw block device) at offset key*pageSize.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a file-backed page store.
type Store struct {
	file     *os.File
	pageSize int
	sync     bool
	closed   atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithSync makes every WritePage call fsync before returning.
func WithSync(enabled bool) Option {
	return func(s *Store) { s.sync = enabled }
}

// New opens (creating if necessary) the file at path as a page store.
func New(path string, pageSize int, opts ...Option) (*Store, error) {
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening backing file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat backing file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	s := &Store{
		file:     f,
		pageSize: pageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ReadPage reads the page at key. Regions past the end of the file read as zeroes.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, err
	}

	page := store.ZeroPage(s.pageSize)
	n, err := s.file.ReadAt(page, s.offset(key))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading page %d: %w", store.ErrBackingStore, key, err)
	}
	// ReadAt may leave garbage past n on a short read.
	clear(page[n:])
	return page, nil
}

// WritePage writes data (padded to the page size) at key.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	if _, err := s.file.WriteAt(store.PagePad(data, s.pageSize), s.offset(key)); err != nil {
		return fmt.Errorf("%w: writing page %d: %w", store.ErrBackingStore, key, err)
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("%w: syncing page %d: %w", store.ErrBackingStore, key, err)
		}
	}
	return nil
}

// Sync flushes the file to stable storage.
func (s *Store) Sync() error {
	return s.file.Sync()
}

// Close closes the underlying file.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return store.ErrClosed
	}
	return s.file.Close()
}

func (s *Store) check(ctx context.Context, key int64) error {
	// Check for cancellation before starting I/O.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if s.closed.Load() {
		return store.ErrClosed
	}
	if key < 0 {
		return fmt.Errorf("%w: negative page key %d", store.ErrBackingStore, key)
	}
	return nil
}

func (s *Store) offset(key int64) int64 {
	return key * int64(s.pageSize)
}
