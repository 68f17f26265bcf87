// Package lru implements recency tracking on top of hashicorp/golang-lru.
package lru

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/discochess/lrusim/internal/cache/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

// Strategy keeps keys in a simplelru.LRU with no values. The cache evicts
// before inserting, so the LRU's own size bound is never what evicts.
type Strategy struct {
	cache *simplelru.LRU[int64, struct{}]
}

// New creates a new LRU strategy with the given capacity.
func New(capacity int) (*Strategy, error) {
	c, err := simplelru.NewLRU[int64, struct{}](capacity, nil)
	if err != nil {
		return nil, err
	}
	return &Strategy{cache: c}, nil
}

// Name returns "golang-lru".
func (s *Strategy) Name() string { return "golang-lru" }

// Push adds key as most recently used.
func (s *Strategy) Push(key int64) {
	if evicted := s.cache.Add(key, struct{}{}); evicted {
		panic(fmt.Sprintf("strategy/lru: push of %d exceeded capacity", key))
	}
}

// Touch marks key as most recently used.
func (s *Strategy) Touch(key int64) {
	s.cache.Get(key)
}

// Remove drops key.
func (s *Strategy) Remove(key int64) {
	s.cache.Remove(key)
}

// Victim checks the oldest key first and only scans when it is skipped.
func (s *Strategy) Victim(skip func(key int64) bool) (int64, bool) {
	oldest, _, ok := s.cache.GetOldest()
	if !ok {
		return 0, false
	}
	if skip == nil || !skip(oldest) {
		return oldest, true
	}
	for _, k := range s.cache.Keys() {
		if !skip(k) {
			return k, true
		}
	}
	return 0, false
}

// Len returns the number of items in the cache.
func (s *Strategy) Len() int {
	return s.cache.Len()
}

// Keys returns keys from most to least recently used.
func (s *Strategy) Keys() []int64 {
	oldestFirst := s.cache.Keys()
	keys := make([]int64, len(oldestFirst))
	for i, k := range oldestFirst {
		keys[len(keys)-1-i] = k
	}
	return keys
}
