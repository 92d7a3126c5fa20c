package specstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_PutAndGet(t *testing.T) {
	c := newLRUCache(10)
	e := &cacheEntry{path: "a.md", loadedAt: time.Now()}
	c.Put(e)

	got, ok := c.Get("a.md")
	require.True(t, ok)
	assert.Equal(t, "a.md", got.path)

	_, ok = c.Get("missing.md")
	assert.False(t, ok)
}

func TestLRUCache_EvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	c := newLRUCache(2)
	c.Put(&cacheEntry{path: "a.md", loadedAt: time.Now()})
	c.Put(&cacheEntry{path: "b.md", loadedAt: time.Now()})

	// touch "a" so "b" becomes least-recently-used
	_, _ = c.Get("a.md")
	c.Put(&cacheEntry{path: "c.md", loadedAt: time.Now()})

	_, ok := c.Get("b.md")
	assert.False(t, ok, "b.md should have been evicted as least-recently-used")
	_, ok = c.Get("a.md")
	assert.True(t, ok)
	_, ok = c.Get("c.md")
	assert.True(t, ok)
}

func TestLRUCache_ZeroMaxEntriesDisablesEviction(t *testing.T) {
	c := newLRUCache(0)
	for i := 0; i < 50; i++ {
		c.Put(&cacheEntry{path: string(rune('a' + i%26)), loadedAt: time.Now()})
	}
	assert.NotEmpty(t, c.entries)
}

func TestLRUCache_Delete(t *testing.T) {
	c := newLRUCache(10)
	c.Put(&cacheEntry{path: "a.md", loadedAt: time.Now()})
	c.Delete("a.md")

	_, ok := c.Get("a.md")
	assert.False(t, ok)
}

func TestLRUCache_SweepEvictsOnlyStaleEntries(t *testing.T) {
	c := newLRUCache(10)
	now := time.Now()
	c.Put(&cacheEntry{path: "old.md", loadedAt: now.Add(-time.Hour)})
	c.Put(&cacheEntry{path: "fresh.md", loadedAt: now})

	evicted := c.Sweep(time.Minute, now)
	assert.Equal(t, 1, evicted)

	_, ok := c.Get("old.md")
	assert.False(t, ok)
	_, ok = c.Get("fresh.md")
	assert.True(t, ok)
}

func TestLRUCache_SweepWithNonPositiveMaxAgeIsNoOp(t *testing.T) {
	c := newLRUCache(10)
	c.Put(&cacheEntry{path: "a.md", loadedAt: time.Now().Add(-time.Hour)})

	evicted := c.Sweep(0, time.Now())
	assert.Equal(t, 0, evicted)
	_, ok := c.Get("a.md")
	assert.True(t, ok)
}
