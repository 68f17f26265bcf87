// Package gcsstore implements a Google Cloud Storage page store.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/discochess/lrusim/internal/codec"
	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// bucket is the object access Store needs from a GCS bucket.
type bucket interface {
	NewReader(ctx context.Context, name string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, name string) io.WriteCloser
}

// gcsBucket adapts *storage.BucketHandle to bucket.
type gcsBucket struct {
	handle *storage.BucketHandle
}

func (b gcsBucket) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	return b.handle.Object(name).NewReader(ctx)
}

func (b gcsBucket) NewWriter(ctx context.Context, name string) io.WriteCloser {
	return b.handle.Object(name).NewWriter(ctx)
}

// Store is a Google Cloud Storage page store.
type Store struct {
	client   *storage.Client
	bucket   bucket
	prefix   string
	codec    codec.Codec
	pageSize int
}

// New creates a new GCS store.
// The bucket must already exist.
// The codec handles compression/decompression.
func New(ctx context.Context, bucketName string, c codec.Codec, pageSize int, opts ...Option) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}

	s := &Store{
		client:   client,
		bucket:   gcsBucket{handle: client.Bucket(bucketName)},
		codec:    c,
		pageSize: pageSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
	}
}

// ReadPage reads and decompresses a page object.
// A missing object reads as a zero page.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	reader, err := s.bucket.NewReader(ctx, s.pageKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return store.ZeroPage(s.pageSize), nil
		}
		return nil, fmt.Errorf("%w: reading page %d: %w", store.ErrBackingStore, key, err)
	}
	defer reader.Close()

	data, err := codec.Decode(s.codec, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", store.ErrBackingStore, key, err)
	}
	return store.PagePad(data, s.pageSize), nil
}

// WritePage compresses and uploads a page object.
// The upload is committed when the object writer is closed.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	encoded, err := codec.Encode(s.codec, store.PagePad(data, s.pageSize))
	if err != nil {
		return fmt.Errorf("%w: page %d: %w", store.ErrBackingStore, key, err)
	}

	w := s.bucket.NewWriter(ctx, s.pageKey(key))
	if _, err := w.Write(encoded); err != nil {
		w.Close()
		return fmt.Errorf("%w: writing page %d: %w", store.ErrBackingStore, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: committing page %d: %w", store.ErrBackingStore, key, err)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// pageKey returns the full object key for a page.
func (s *Store) pageKey(key int64) string {
	return s.prefix + "pages/" + s.pageName(key)
}

// pageName returns the object name for a page key.
func (s *Store) pageName(key int64) string {
	name := fmt.Sprintf("%010d", key)
	if ext := s.codec.Extension(); ext != "" {
		name += "." + ext
	}
	return name
}
