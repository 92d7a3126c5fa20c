package specstore

import (
	"container/list"
	"time"
)

// cacheEntry mirrors a single loaded spec file's provenance, the same
// (path, mtime, size) shape the pack's file cache keys on, plus the parsed
// value and any parse error recorded for it.
type cacheEntry struct {
	path     string
	modTime  time.Time
	size     int64
	loadedAt time.Time

	value *loadResult
	elem  *list.Element
}

// lruCache is a per-path cache with LRU eviction above maxEntries and an
// explicit Sweep that evicts entries older than maxAge, independent of LRU
// position.
type lruCache struct {
	maxEntries int
	entries    map[string]*cacheEntry
	order      *list.List // front = most recently used
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
		order:      list.New(),
	}
}

// Get returns the cached entry for path if present, touching its LRU
// position. It does not check freshness: the caller compares the entry's
// mtime and size and treats a stale entry as a miss; it is not evicted here.
func (c *lruCache) Get(path string) (*cacheEntry, bool) {
	e, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e, true
}

// Put inserts or replaces the entry for path, evicting the least-recently
// used entry if this insert would exceed maxEntries.
func (c *lruCache) Put(e *cacheEntry) {
	if existing, ok := c.entries[e.path]; ok {
		c.order.Remove(existing.elem)
	}
	e.elem = c.order.PushFront(e.path)
	c.entries[e.path] = e

	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.entries, back.Value.(string))
	}
}

// Delete removes path from the cache, if present.
func (c *lruCache) Delete(path string) {
	if e, ok := c.entries[path]; ok {
		c.order.Remove(e.elem)
		delete(c.entries, path)
	}
}

// Sweep evicts every entry loaded more than maxAge ago, regardless of LRU
// recency; returns the number of entries evicted.
func (c *lruCache) Sweep(maxAge time.Duration, now time.Time) int {
	if maxAge <= 0 {
		return 0
	}
	var evicted int
	for path, e := range c.entries {
		if now.Sub(e.loadedAt) > maxAge {
			c.order.Remove(e.elem)
			delete(c.entries, path)
			evicted++
		}
	}
	return evicted
}
