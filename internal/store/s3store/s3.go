// Package s3store implements an AWS S3 page store: one object per page.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/lrusim/internal/codec"
	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// objectAPI is the subset of *s3.Client used by Store.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store is an AWS S3 page store.
type Store struct {
	client   objectAPI
	bucket   string
	prefix   string
	codec    codec.Codec
	pageSize int
}

// New creates a new S3 store.
// The bucket must already exist.
// The codec handles compression/decompression of page objects.
func New(ctx context.Context, bucketName string, c codec.Codec, pageSize int, opts ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}

	s := &Store{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucketName,
		codec:    c,
		pageSize: pageSize,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Option configures a Store.
type Option func(*Store) error

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) error {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *Store) error {
		cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
		if err != nil {
			return fmt.Errorf("loading AWS config with region: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
		return nil
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
func WithEndpoint(endpoint string) Option {
	return func(s *Store) error {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("loading AWS config for endpoint: %w", err)
		}
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		return nil
	}
}

// ReadPage fetches and decompresses a page object.
// A missing object reads as a zero page.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	// Check for cancellation before starting.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pageKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return store.ZeroPage(s.pageSize), nil
		}
		return nil, fmt.Errorf("%w: reading page %d: %w", store.ErrBackingStore, key, err)
	}
	defer result.Body.Close()

	data, err := codec.Decode(s.codec, result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", store.ErrBackingStore, key, err)
	}
	return store.PagePad(data, s.pageSize), nil
}

// WritePage compresses and uploads a page object.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	encoded, err := codec.Encode(s.codec, store.PagePad(data, s.pageSize))
	if err != nil {
		return fmt.Errorf("%w: page %d: %w", store.ErrBackingStore, key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pageKey(key)),
		Body:   bytes.NewReader(encoded),
	})
	if err != nil {
		return fmt.Errorf("%w: writing page %d: %w", store.ErrBackingStore, key, err)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	// S3 client doesn't need explicit closing.
	return nil
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
