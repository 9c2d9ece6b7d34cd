package cache

import (
	"runtime"
	"sync"
)

// basicCache never expires entries
type basicCache[T any] struct {
	mu      sync.Mutex
	entries map[string]claimEntry[T]
}

func NewBasicCache[T any]() Cache[T] {
	return &basicCache[T]{entries: make(map[string]claimEntry[T])}
}

func (c *basicCache[T]) getOrClaim(key string) hitResult[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return hitResult[T]{data: entry.data, valid: entry.valid}
	}

	c.entries[key] = claimEntry[T]{}
	return hitResult[T]{claimed: true}
}

func (c *basicCache[T]) set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = claimEntry[T]{data: data, valid: true}
}

func (c *basicCache[T]) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *basicCache[T]) wait() {
	runtime.Gosched()
}
