// Package store defines the backing store interface the page cache reads
// from and writes back to.
package store

import (
	"context"
	"errors"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 4096

var (
	// ErrBackingStore wraps failures reported by a real backing device or service.
	// The in-memory store never returns it.
	ErrBackingStore = errors.New("store: backing store failure")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store defines the interface for backing stores.
// Implementations must be safe for concurrent use.
type Store interface {
	// ReadPage returns the content of the given page.
	// Pages that were never written read back as zero-filled pages.
	ReadPage(ctx context.Context, key int64) ([]byte, error)

	// WritePage persists the content of the given page.
	WritePage(ctx context.Context, key int64, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// ZeroPage returns a zero-filled page of the given size.
func ZeroPage(pageSize int) []byte {
	return make([]byte, pageSize)
}

// PagePad returns data padded with zeroes (or truncated) to exactly pageSize bytes.
// The returned slice never aliases data.
func PagePad(data []byte, pageSize int) []byte {
	page := make([]byte, pageSize)
	copy(page, data)
	return page
}
