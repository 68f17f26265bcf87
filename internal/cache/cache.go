// Package cache implements a fixed-capacity, thread-safe LRU page cache
// in front of a backing store.
//
// A single mutex guards the key map, the recency strategy and the table of
// in-flight write-backs. Backing store I/O never happens under that mutex:
// misses fetch outside the lock and re-check before inserting, and dirty
// victims are written back after the lock is released.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/discochess/lrusim/internal/cache/strategy"
	"github.com/discochess/lrusim/internal/stats"
	"github.com/discochess/lrusim/internal/store"
)

// Sentinel errors.
var (
	// ErrInvalidCapacity is returned by New for a capacity below 1.
	ErrInvalidCapacity = errors.New("cache: capacity must be positive")

	// ErrNoEvictableEntry is returned when the cache is full and every entry is pinned.
	ErrNoEvictableEntry = errors.New("cache: no evictable entry")

	// ErrPageSize is returned by Put for content larger than a page.
	ErrPageSize = errors.New("cache: content exceeds page size")

	// ErrInvariant is returned by Verify when the cache state is inconsistent.
	ErrInvariant = errors.New("cache: invariant violated")
)

// entry is one cached page.
type entry struct {
	data    []byte
	dirty   bool
	pins    int
	version uint64
}

// writeBack is a dirty page on its way to the store. A newer eviction of
// the same key replaces data and bumps seq; the goroutine that owns the
// write-back keeps writing until seq stops changing, then sets err and
// closes done.
type writeBack struct {
	data []byte
	seq  uint64
	done chan struct{}
	err  error
}

// fetch tracks goroutines reading one key from the store outside the lock.
type fetch struct {
	refs    int
	changed uint64 // Cache.clock at the last Put of the key
}

// Access describes what a single Get or Put did.
type Access struct {
	// Hit reports whether the page was already cached.
	Hit bool
	// Evictions is the number of entries this call evicted.
	Evictions int
	// WriteBacks is the number of dirty pages this call wrote to the store.
	WriteBacks int
}

// Cache is an LRU page cache. A Cache is safe for concurrent use.
type Cache struct {
	capacity  int
	pageSize  int
	store     store.Store
	strategy  strategy.Strategy
	collector stats.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[int64]*entry
	pending map[int64]*writeBack
	fetches map[int64]*fetch
	clock   uint64

	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	writeBacks atomic.Int64
	refetches  atomic.Int64
}

// New creates a cache holding at most capacity pages of st.
func New(capacity int, st store.Store, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	strat, err := NewStrategy(cfg.variant, capacity)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		capacity:  capacity,
		pageSize:  cfg.pageSize,
		store:     st,
		strategy:  strat,
		collector: cfg.collector,
		logger:    cfg.logger,
		entries:   make(map[int64]*entry, capacity),
		pending:   make(map[int64]*writeBack),
		fetches:   make(map[int64]*fetch),
	}

	c.logger.Debug("cache initialized",
		zap.Int("capacity", capacity),
		zap.Int("pageSize", c.pageSize),
		zap.String("strategy", strat.Name()),
	)
	return c, nil
}

// Get returns a copy of the page at key, loading it from the store on a miss.
//
// If evicting to make room forced a dirty page to be written back and that
// write failed, Get still returns the page along with the error.
func (c *Cache) Get(ctx context.Context, key int64) ([]byte, Access, error) {
	return c.load(ctx, key, false)
}

// Put replaces the page at key with content, zero-padded to the page size,
// and marks it dirty. A miss inserts without reading the store.
func (c *Cache) Put(ctx context.Context, key int64, content []byte) (Access, error) {
	if len(content) > c.pageSize {
		return Access{}, fmt.Errorf("%w: %d > %d bytes", ErrPageSize, len(content), c.pageSize)
	}
	data := store.PagePad(content, c.pageSize)

	c.mu.Lock()
	c.markWrite(key)
	if e, ok := c.entries[key]; ok {
		e.data = data
		e.dirty = true
		e.version++
		c.strategy.Touch(key)
		c.mu.Unlock()

		acc := Access{Hit: true}
		c.record(acc)
		return acc, nil
	}

	victims, evicted, err := c.insertLocked(key, data, true, 0)
	c.mu.Unlock()

	acc := Access{Evictions: evicted}
	acc.WriteBacks, err = c.finishInsert(ctx, victims, err)
	c.record(acc)
	return acc, err
}

// Flush writes every dirty page to the store and marks it clean. A page
// whose write-back is already in flight is handed to that write, and Flush
// waits for it. Pages modified while the flush is in progress stay dirty.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	var keys []int64
	versions := make(map[int64]uint64)
	inFlight := make(map[int64]*writeBack)
	for k, e := range c.entries {
		if !e.dirty {
			continue
		}
		e.dirty = false
		versions[k] = e.version
		if c.queueWriteBack(k, e.data) {
			keys = append(keys, k)
		} else {
			inFlight[k] = c.pending[k]
		}
	}
	c.mu.Unlock()

	written, failed := c.writeBack(ctx, keys)

	var waitErr error
	for k, wb := range inFlight {
		select {
		case <-wb.done:
		case <-ctx.Done():
			waitErr = ctx.Err()
			failed = append(failed, k)
			continue
		}
		if wb.err != nil {
			failed = append(failed, k)
			continue
		}
		written++
	}

	if len(failed) == 0 {
		c.logger.Debug("cache flushed", zap.Int("pages", written))
		return nil
	}

	// Failed pages are dirty again unless they were overwritten meanwhile.
	c.mu.Lock()
	for _, k := range failed {
		if e, ok := c.entries[k]; ok && e.version == versions[k] {
			e.dirty = true
		}
	}
	c.mu.Unlock()
	if waitErr != nil {
		return fmt.Errorf("flushing %d of %d pages: %w", len(failed), written+len(failed), waitErr)
	}
	return fmt.Errorf("flushing %d of %d pages: %w", len(failed), written+len(failed), store.ErrBackingStore)
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the maximum number of cached pages.
func (c *Cache) Capacity() int { return c.capacity }

// PageSize returns the page size in bytes.
func (c *Cache) PageSize() int { return c.pageSize }

// Strategy returns the name of the recency strategy in use.
func (c *Cache) Strategy() string { return c.strategy.Name() }

// Dirty reports whether key is cached with unflushed writes.
func (c *Cache) Dirty(key int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.dirty
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache) Keys() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy.Keys()
}

// Verify checks that the cache holds at most capacity entries and that the
// key map and the recency sequence contain exactly the same keys once each.
func (c *Cache) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.entries); n > c.capacity {
		return fmt.Errorf("%w: %d entries exceed capacity %d", ErrInvariant, n, c.capacity)
	}

	keys := c.strategy.Keys()
	if len(keys) != len(c.entries) || c.strategy.Len() != len(c.entries) {
		return fmt.Errorf("%w: recency holds %d keys, map holds %d", ErrInvariant, len(keys), len(c.entries))
	}

	seen := make(map[int64]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: key %d appears twice in recency order", ErrInvariant, k)
		}
		seen[k] = struct{}{}
		if _, ok := c.entries[k]; !ok {
			return fmt.Errorf("%w: key %d in recency order but not in map", ErrInvariant, k)
		}
	}
	return nil
}

// load implements Get and Pin.
func (c *Cache) load(ctx context.Context, key int64, pin bool) ([]byte, Access, error) {
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			c.strategy.Touch(key)
			if pin {
				e.pins++
			}
			data := bytes.Clone(e.data)
			c.mu.Unlock()

			acc := Access{Hit: attempt == 0}
			c.record(acc)
			return data, acc, nil
		}

		// A page still being written back is newer than the store's copy.
		if wb, ok := c.pending[key]; ok {
			data := bytes.Clone(wb.data)
			victims, evicted, err := c.insertLocked(key, bytes.Clone(data), false, pinCount(pin))
			c.mu.Unlock()
			return c.finishMiss(ctx, data, victims, evicted, err)
		}

		f := c.beginFetch(key)
		start := c.clock
		c.mu.Unlock()

		data, err := c.store.ReadPage(ctx, key)

		c.mu.Lock()
		c.endFetch(key, f)
		if err != nil {
			c.mu.Unlock()
			c.record(Access{})
			return nil, Access{}, fmt.Errorf("fetching page %d: %w", key, err)
		}
		if f.changed > start {
			// The page was rewritten (and possibly evicted and written
			// back) while we were reading; what we read may be stale.
			c.mu.Unlock()
			c.refetches.Add(1)
			c.collector.IncCounter(stats.MetricCacheRefetches, 1)
			continue
		}
		if e, ok := c.entries[key]; ok {
			// Another goroutine inserted the page first; drop our copy.
			c.strategy.Touch(key)
			if pin {
				e.pins++
			}
			data = bytes.Clone(e.data)
			c.mu.Unlock()

			acc := Access{}
			c.record(acc)
			return data, acc, nil
		}

		data = store.PagePad(data, c.pageSize)
		victims, evicted, err := c.insertLocked(key, bytes.Clone(data), false, pinCount(pin))
		c.mu.Unlock()
		return c.finishMiss(ctx, data, victims, evicted, err)
	}
}

func (c *Cache) finishMiss(ctx context.Context, data []byte, victims []int64, evicted int, insertErr error) ([]byte, Access, error) {
	acc := Access{Evictions: evicted}
	var err error
	acc.WriteBacks, err = c.finishInsert(ctx, victims, insertErr)
	c.record(acc)
	if errors.Is(insertErr, ErrNoEvictableEntry) {
		return nil, acc, err
	}
	return data, acc, err
}

// finishInsert writes back the victims of an insert after the lock is released.
func (c *Cache) finishInsert(ctx context.Context, victims []int64, insertErr error) (int, error) {
	written, failed := c.writeBack(ctx, victims)
	if len(failed) > 0 {
		insertErr = errors.Join(insertErr,
			fmt.Errorf("writing back %d evicted pages: %w", len(failed), store.ErrBackingStore))
	}
	return written, insertErr
}

// insertLocked evicts until there is room, then inserts key at the most
// recently used position. It returns the keys whose write-back the caller
// now owns and the number of entries evicted. Callers hold c.mu.
func (c *Cache) insertLocked(key int64, data []byte, dirty bool, pins int) ([]int64, int, error) {
	var victims []int64
	evicted := 0
	for len(c.entries) >= c.capacity {
		k, ok := c.strategy.Victim(c.pinned)
		if !ok {
			return victims, evicted, fmt.Errorf("%w: all %d entries pinned", ErrNoEvictableEntry, len(c.entries))
		}
		e := c.entries[k]
		c.strategy.Remove(k)
		delete(c.entries, k)
		evicted++
		if e.dirty && c.queueWriteBack(k, e.data) {
			victims = append(victims, k)
		}
	}

	c.entries[key] = &entry{data: data, dirty: dirty, pins: pins}
	c.strategy.Push(key)

	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		c.collector.IncCounter(stats.MetricCacheEvictions, int64(evicted))
	}
	c.collector.SetGauge(stats.MetricCacheSize, int64(len(c.entries)))
	return victims, evicted, nil
}

// queueWriteBack registers data as the newest content to write for key.
// It reports whether the caller owns the write; if a write-back for key is
// already in flight, its owner picks up the new data instead.
func (c *Cache) queueWriteBack(key int64, data []byte) bool {
	if wb, ok := c.pending[key]; ok {
		wb.data = data
		wb.seq++
		return false
	}
	c.pending[key] = &writeBack{data: data, done: make(chan struct{})}
	return true
}

// writeBack drains the pending write-backs owned by the caller. Writes
// outlive the caller's context so a cancelled run does not drop dirty pages.
func (c *Cache) writeBack(ctx context.Context, keys []int64) (written int, failed []int64) {
	if len(keys) == 0 {
		return 0, nil
	}
	ctx = context.WithoutCancel(ctx)

	for _, k := range keys {
		for {
			c.mu.Lock()
			wb := c.pending[k]
			data, seq := wb.data, wb.seq
			c.mu.Unlock()

			err := c.store.WritePage(ctx, k, data)

			c.mu.Lock()
			if err != nil || wb.seq == seq {
				wb.err = err
				delete(c.pending, k)
				c.mu.Unlock()
				close(wb.done)

				if err != nil {
					c.logger.Error("write-back failed", zap.Int64("key", k), zap.Error(err))
					failed = append(failed, k)
				} else {
					written++
				}
				break
			}
			c.mu.Unlock()
		}
	}

	if written > 0 {
		c.writeBacks.Add(int64(written))
		c.collector.IncCounter(stats.MetricCacheWriteBacks, int64(written))
	}
	return written, failed
}

// markWrite records a content change of key for any concurrent fetchers.
func (c *Cache) markWrite(key int64) {
	c.clock++
	if f, ok := c.fetches[key]; ok {
		f.changed = c.clock
	}
}

func (c *Cache) beginFetch(key int64) *fetch {
	f, ok := c.fetches[key]
	if !ok {
		f = &fetch{}
		c.fetches[key] = f
	}
	f.refs++
	return f
}

func (c *Cache) endFetch(key int64, f *fetch) {
	f.refs--
	if f.refs == 0 {
		delete(c.fetches, key)
	}
}

func (c *Cache) pinned(key int64) bool {
	return c.entries[key].pins > 0
}

func (c *Cache) record(acc Access) {
	if acc.Hit {
		c.hits.Add(1)
		c.collector.IncCounter(stats.MetricCacheHits, 1)
		return
	}
	c.misses.Add(1)
	c.collector.IncCounter(stats.MetricCacheMisses, 1)
}

func pinCount(pin bool) int {
	if pin {
		return 1
	}
	return 0
}
