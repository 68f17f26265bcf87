// Package redisstore implements a Redis page store: one string value per page.
package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/discochess/lrusim/internal/codec"
	"github.com/discochess/lrusim/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// client is the subset of *redis.Client used by Store.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Config holds the Redis connection settings.
type Config struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

// Store is a Redis page store.
type Store struct {
	client    client
	namespace string
	codec     codec.Codec
	pageSize  int
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config, c codec.Codec, pageSize int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}

	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "lrusim:"
	}

	return &Store{
		client:    rdb,
		namespace: namespace,
		codec:     c,
		pageSize:  pageSize,
	}, nil
}

// ReadPage fetches a page value. A missing key reads as a zero page.
func (s *Store) ReadPage(ctx context.Context, key int64) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.ZeroPage(s.pageSize), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading page %d: %w", store.ErrBackingStore, key, err)
	}

	data, err := codec.Decode(s.codec, bytes.NewReader(val))
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", store.ErrBackingStore, key, err)
	}
	return store.PagePad(data, s.pageSize), nil
}

// WritePage stores a page value without expiry.
func (s *Store) WritePage(ctx context.Context, key int64, data []byte) error {
	encoded, err := codec.Encode(s.codec, store.PagePad(data, s.pageSize))
	if err != nil {
		return fmt.Errorf("%w: page %d: %w", store.ErrBackingStore, key, err)
	}
	if err := s.client.Set(ctx, s.key(key), encoded, 0).Err(); err != nil {
		return fmt.Errorf("%w: writing page %d: %w", store.ErrBackingStore, key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key int64) string {
	return fmt.Sprintf("%spage:%d", s.namespace, key)
}
