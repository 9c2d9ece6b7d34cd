package cache

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// mockCacheServer drives a set of clients in lockstep ticks.
// A tick advances once every client has called wait().
type mockCacheServer[T any] struct {
	mu      sync.Mutex
	entries map[string]claimEntry[T]

	tick           atomic.Int64
	waitingClients atomic.Int64
	maxTicks       int64
	numClients     int64
}

type mockCacheClient[T any] struct {
	server      *mockCacheServer[T]
	desiredTick int64
}

func (cacheClient *mockCacheClient[T]) getOrClaim(key string) hitResult[T] {
	server := cacheClient.server
	server.mu.Lock()
	defer server.mu.Unlock()

	if entry, ok := server.entries[key]; ok {
		return hitResult[T]{data: entry.data, valid: entry.valid}
	}

	server.entries[key] = claimEntry[T]{}
	return hitResult[T]{claimed: true}
}

func (cacheClient *mockCacheClient[T]) set(key string, data T) {
	server := cacheClient.server
	server.mu.Lock()
	defer server.mu.Unlock()

	server.entries[key] = claimEntry[T]{data: data, valid: true}
}

func (cacheClient *mockCacheClient[T]) delete(key string) {
	server := cacheClient.server
	server.mu.Lock()
	defer server.mu.Unlock()

	delete(server.entries, key)
}

// wait blocks the client until the server has advanced to the next tick
func (cacheClient *mockCacheClient[T]) wait() {
	server := cacheClient.server
	if server.isDone() {
		panic("wait() called on a client that is already done")
	}

	cacheClient.desiredTick++
	server.waitingClients.Add(1)

	for server.currentTick() < cacheClient.desiredTick {
		runtime.Gosched()
	}
}

func (cacheClient *mockCacheClient[T]) waitUntilDone() {
	for !cacheClient.server.isDone() {
		cacheClient.wait()
	}
}

func (cacheServer *mockCacheServer[T]) currentTick() int64 {
	return cacheServer.tick.Load()
}

func (cacheServer *mockCacheServer[T]) isDone() bool {
	return cacheServer.currentTick() >= cacheServer.maxTicks
}

// processTicks advances the tick each time all clients are waiting, until maxTicks is reached
func (cacheServer *mockCacheServer[T]) processTicks() {
	for !cacheServer.isDone() {
		// Every client is spinning in wait(), so nobody increments between the swap and the tick
		if !cacheServer.waitingClients.CompareAndSwap(cacheServer.numClients, 0) {
			runtime.Gosched()
			continue
		}
		cacheServer.tick.Add(1)
	}
}

func NewMockCacheServer[T any](numClients int, maxTicks int) (*mockCacheServer[T], []*mockCacheClient[T]) {
	server := &mockCacheServer[T]{
		entries:    make(map[string]claimEntry[T]),
		maxTicks:   int64(maxTicks),
		numClients: int64(numClients),
	}

	clients := make([]*mockCacheClient[T], numClients)
	for i := range numClients {
		clients[i] = &mockCacheClient[T]{server: server}
	}

	return server, clients
}
