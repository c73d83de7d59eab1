// Package cache provides get-or-fetch caching over the entity store with an
// in-flight registry, so concurrent requests for the same key share one
// outbound call. Presence is always answered by the backing store; a request
// in flight is not "present" until its result is committed.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Stats counts how GetOrFetch calls were served
type Stats struct {
	Hits    int64 // answered from the store
	Fetches int64 // outbound calls issued
	Shared  int64 // callers served by a fetch more than one caller waited on
}

// Source wires a Keyed cache to its backing store and remote
type Source[K comparable, V any] struct {
	Lookup func(key K) (V, bool)
	Fetch  func(ctx context.Context, key K) (V, error)
	Commit func(key K, value V)
	Evict  func(key K)
}

// Keyed is a get-or-fetch cache for one kind of entity
type Keyed[K comparable, V any] struct {
	src   Source[K, V]
	group singleflight.Group

	// gens counts invalidations per key; a fetch commits only if no
	// Invalidate ran since it started
	mu   sync.Mutex
	gens map[K]uint64

	hits    atomic.Int64
	fetches atomic.Int64
	shared  atomic.Int64
}

// NewKeyed creates a keyed cache. Lookup, Fetch and Commit are required.
func NewKeyed[K comparable, V any](src Source[K, V]) *Keyed[K, V] {
	if src.Evict == nil {
		src.Evict = func(K) {}
	}
	return &Keyed[K, V]{src: src, gens: make(map[K]uint64)}
}

// IsPresent reports whether key is held by the backing store
func (c *Keyed[K, V]) IsPresent(key K) bool {
	_, ok := c.src.Lookup(key)
	return ok
}

// GetOrFetch returns the stored value for key, fetching and committing it on a
// miss. Concurrent misses for the same key issue one fetch and all callers get
// its result. The shared fetch outlives a cancelled caller: its result is still
// committed (unless the key is invalidated meanwhile), and only the caller's
// wait is abandoned.
func (c *Keyed[K, V]) GetOrFetch(ctx context.Context, key K) (V, error) {
	if v, ok := c.src.Lookup(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(keyString(key), func() (any, error) {
		// A fetch that finished between our lookup and DoChan already committed
		if v, ok := c.src.Lookup(key); ok {
			return v, nil
		}
		gen := c.generation(key)
		c.fetches.Add(1)
		v, err := c.src.Fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		if !c.commit(key, v, gen) {
			return v, nil
		}
		if stored, ok := c.src.Lookup(key); ok {
			return stored, nil
		}
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (c *Keyed[K, V]) generation(key K) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// commit stores v unless key was invalidated after the fetch started.
// Callers of a superseded fetch still receive its value.
func (c *Keyed[K, V]) commit(key K, v V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.src.Commit(key, v)
	return true
}

// Invalidate evicts key from the backing store and detaches any in-flight
// fetch, so the next GetOrFetch goes to the network again. A detached fetch
// never commits.
func (c *Keyed[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.group.Forget(keyString(key))
	c.src.Evict(key)
}

func (c *Keyed[K, V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Fetches: c.fetches.Load(), Shared: c.shared.Load()}
}

func keyString[K comparable](key K) string {
	return fmt.Sprint(key)
}
