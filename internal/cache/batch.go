package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// BatchSource wires a Batch cache to its backing store and remote
type BatchSource[K comparable, V any] struct {
	Lookup func(key K) (V, bool)
	// Fetch loads exactly keys in one call. Keys the remote doesn't know may be
	// absent from the result.
	Fetch  func(ctx context.Context, keys []K) (map[K]V, error)
	Commit func(values map[K]V)
	Evict  func(key K)
}

// inflightCall is one batched fetch that several keys (and callers) wait on
type inflightCall[K comparable, V any] struct {
	done   chan struct{}
	result map[K]V
	err    error
}

// Batch is a get-or-fetch cache whose misses are loaded in one batched call.
// Keys already being fetched by another caller are awaited instead of fetched again.
type Batch[K comparable, V any] struct {
	src BatchSource[K, V]

	mu       sync.Mutex
	inflight map[K]*inflightCall[K, V]

	hits    atomic.Int64
	fetches atomic.Int64
	shared  atomic.Int64
}

// NewBatch creates a batch cache. Lookup, Fetch and Commit are required.
func NewBatch[K comparable, V any](src BatchSource[K, V]) *Batch[K, V] {
	if src.Evict == nil {
		src.Evict = func(K) {}
	}
	return &Batch[K, V]{src: src, inflight: make(map[K]*inflightCall[K, V])}
}

// IsPresent reports whether key is held by the backing store
func (b *Batch[K, V]) IsPresent(key K) bool {
	_, ok := b.src.Lookup(key)
	return ok
}

// GetOrFetchAll makes every key in keys present, issuing at most one outbound
// call for the keys that are neither stored nor already in flight. With every
// key stored it returns without any network call. It returns the keys it
// fetched itself (nil on a full cache hit).
func (b *Batch[K, V]) GetOrFetchAll(ctx context.Context, keys []K) ([]K, error) {
	var (
		mine  []K
		waits []*inflightCall[K, V]
		seen  = make(map[K]bool, len(keys))
	)

	call := &inflightCall[K, V]{done: make(chan struct{})}

	b.mu.Lock()
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := b.src.Lookup(k); ok {
			b.hits.Add(1)
			continue
		}
		if other, ok := b.inflight[k]; ok {
			b.shared.Add(1)
			if !containsCall(waits, other) {
				waits = append(waits, other)
			}
			continue
		}
		b.inflight[k] = call
		mine = append(mine, k)
	}
	b.mu.Unlock()

	if len(mine) > 0 {
		b.run(context.WithoutCancel(ctx), call, mine)
		if call.err != nil {
			return mine, call.err
		}
	}

	for _, w := range waits {
		select {
		case <-ctx.Done():
			return mine, ctx.Err()
		case <-w.done:
			if w.err != nil {
				return mine, w.err
			}
		}
	}
	return mine, nil
}

func (b *Batch[K, V]) run(ctx context.Context, call *inflightCall[K, V], keys []K) {
	b.fetches.Add(1)
	call.result, call.err = b.src.Fetch(ctx, keys)
	if call.err == nil && len(call.result) > 0 {
		// Commit before releasing waiters so they observe the values as present
		b.src.Commit(call.result)
	}

	b.mu.Lock()
	for _, k := range keys {
		if b.inflight[k] == call {
			delete(b.inflight, k)
		}
	}
	b.mu.Unlock()
	close(call.done)
}

// Invalidate evicts key; a later GetOrFetchAll fetches it again
func (b *Batch[K, V]) Invalidate(key K) {
	b.mu.Lock()
	delete(b.inflight, key)
	b.mu.Unlock()
	b.src.Evict(key)
}

func (b *Batch[K, V]) Stats() Stats {
	return Stats{Hits: b.hits.Load(), Fetches: b.fetches.Load(), Shared: b.shared.Load()}
}

func containsCall[K comparable, V any](calls []*inflightCall[K, V], c *inflightCall[K, V]) bool {
	for _, x := range calls {
		if x == c {
			return true
		}
	}
	return false
}
