package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultSnapshotCacheTTL      = 60 * time.Second
	DefaultSnapshotCacheCapacity = 40
)

type snapshotCacheEntry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// SnapshotCache holds computed artifacts for a short time, keyed by player.
//
// Expiry is lazy: an entry older than the TTL is removed by the Get that finds it.
// On overflow the oldest inserted entry is evicted, regardless of how recently it was read.
type SnapshotCache[V any] struct {
	ttl      time.Duration
	capacity int
	nowFunc  func() time.Time

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

func NewSnapshotCache[V any](ttl time.Duration, capacity int, nowFunc func() time.Time) *SnapshotCache[V] {
	if capacity < 1 {
		panic("snapshot cache capacity must be at least 1")
	}

	return &SnapshotCache[V]{
		ttl:      ttl,
		capacity: capacity,
		nowFunc:  nowFunc,

		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *SnapshotCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	entry := element.Value.(*snapshotCacheEntry[V])
	if c.nowFunc().Sub(entry.insertedAt) > c.ttl {
		c.order.Remove(element)
		delete(c.entries, key)

		var zero V
		return zero, false
	}

	return entry.value, true
}

// Put inserts or overwrites the value for key.
// Overwriting keeps the entry's place in the eviction order and never evicts.
func (c *SnapshotCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()

	if element, ok := c.entries[key]; ok {
		entry := element.Value.(*snapshotCacheEntry[V])
		entry.value = value
		entry.insertedAt = now
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*snapshotCacheEntry[V]).key)
	}

	c.entries[key] = c.order.PushBack(&snapshotCacheEntry[V]{
		key:        key,
		value:      value,
		insertedAt: now,
	})
}

func (c *SnapshotCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return
	}
	c.order.Remove(element)
	delete(c.entries, key)
}

func (c *SnapshotCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}
