package cache

import (
	"bytes"
	"context"
	"sync"
)

// Handle keeps a page resident until Release is called.
type Handle struct {
	c    *Cache
	key  int64
	once sync.Once
}

// Pin loads key like Get and prevents it from being evicted until the
// returned handle is released.
func (c *Cache) Pin(ctx context.Context, key int64) (*Handle, error) {
	data, _, err := c.load(ctx, key, true)
	if data == nil {
		return nil, err
	}
	// A failed write-back of a victim still leaves the page pinned.
	return &Handle{c: c, key: key}, err
}

// Key returns the pinned key.
func (h *Handle) Key() int64 { return h.key }

// Data returns a copy of the current page content.
func (h *Handle) Data() []byte {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	if e, ok := h.c.entries[h.key]; ok {
		return bytes.Clone(e.data)
	}
	return nil
}

// Release unpins the page. Calling Release more than once has no effect.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.c.mu.Lock()
		defer h.c.mu.Unlock()
		if e, ok := h.c.entries[h.key]; ok && e.pins > 0 {
			e.pins--
		}
	})
}
