package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spiecc/animetrack/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal backing store for the caches under test
type memStore struct {
	mu     sync.Mutex
	values map[int]string
}

func newMemStore() *memStore { return &memStore{values: map[int]string{}} }

func (m *memStore) lookup(k int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[k]
	return v, ok
}

func (m *memStore) commit(k int, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[k] = v
}

func (m *memStore) commitAll(values map[int]string) {
	for k, v := range values {
		m.commit(k, v)
	}
}

func (m *memStore) evict(k int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, k)
}

func TestKeyedShortCircuitsOnPresentKey(t *testing.T) {
	mem := newMemStore()
	mem.commit(1, "cached")

	var calls atomic.Int32
	c := cache.NewKeyed(cache.Source[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, k int) (string, error) {
			calls.Add(1)
			return "fetched", nil
		},
		Commit: mem.commit,
	})

	v, err := c.GetOrFetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "cached", v)
	assert.Zero(t, calls.Load())
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestKeyedSharesConcurrentFetches(t *testing.T) {
	mem := newMemStore()
	release := make(chan struct{})
	var calls atomic.Int32

	c := cache.NewKeyed(cache.Source[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, k int) (string, error) {
			calls.Add(1)
			<-release
			return "episodes", nil
		},
		Commit: mem.commit,
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), 7)
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	// Let every caller reach the in-flight fetch before it completes
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "episodes", r)
	}
	assert.True(t, c.IsPresent(7))
}

func TestKeyedFailureCommitsNothing(t *testing.T) {
	mem := newMemStore()
	boom := errors.New("boom")
	c := cache.NewKeyed(cache.Source[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, k int) (string, error) {
			return "", boom
		},
		Commit: mem.commit,
	})

	_, err := c.GetOrFetch(context.Background(), 3)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.IsPresent(3))
}

func TestKeyedCancelledCallerStillCommits(t *testing.T) {
	mem := newMemStore()
	release := make(chan struct{})
	done := make(chan struct{})

	c := cache.NewKeyed(cache.Source[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, k int) (string, error) {
			<-release
			return "late", ctx.Err()
		},
		Commit: func(k int, v string) {
			mem.commit(k, v)
			close(done)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, 4)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fetch result was not committed")
	}
	v, ok := mem.lookup(4)
	assert.True(t, ok)
	assert.Equal(t, "late", v)
}

func TestKeyedInvalidateRefetches(t *testing.T) {
	mem := newMemStore()
	var calls atomic.Int32
	c := cache.NewKeyed(cache.Source[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, k int) (string, error) {
			n := calls.Add(1)
			if n == 1 {
				return "v1", nil
			}
			return "v2", nil
		},
		Commit: mem.commit,
		Evict:  mem.evict,
	})

	v, err := c.GetOrFetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	c.Invalidate(1)
	assert.False(t, c.IsPresent(1))

	v, err = c.GetOrFetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBatchFullHitMakesNoCall(t *testing.T) {
	mem := newMemStore()
	mem.commit(1, "a")
	mem.commit(2, "b")

	var calls atomic.Int32
	b := cache.NewBatch(cache.BatchSource[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, keys []int) (map[int]string, error) {
			calls.Add(1)
			return nil, nil
		},
		Commit: mem.commitAll,
	})

	fetched, err := b.GetOrFetchAll(context.Background(), []int{1, 2, 1})
	require.NoError(t, err)
	assert.Nil(t, fetched)
	assert.Zero(t, calls.Load())
}

func TestBatchFetchesOnlyMissingKeys(t *testing.T) {
	mem := newMemStore()
	mem.commit(1, "a")

	var got [][]int
	b := cache.NewBatch(cache.BatchSource[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, keys []int) (map[int]string, error) {
			got = append(got, keys)
			out := map[int]string{}
			for _, k := range keys {
				out[k] = "x"
			}
			return out, nil
		},
		Commit: mem.commitAll,
	})

	fetched, err := b.GetOrFetchAll(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, fetched)
	assert.Equal(t, [][]int{{2, 3}}, got)
	assert.True(t, b.IsPresent(3))
}

func TestBatchOverlappingCallsShareKeys(t *testing.T) {
	mem := newMemStore()
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		fetched = map[int]int{}
	)

	b := cache.NewBatch(cache.BatchSource[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, keys []int) (map[int]string, error) {
			mu.Lock()
			for _, k := range keys {
				fetched[k]++
			}
			mu.Unlock()
			<-release
			out := map[int]string{}
			for _, k := range keys {
				out[k] = "state"
			}
			return out, nil
		},
		Commit: mem.commitAll,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := b.GetOrFetchAll(context.Background(), []int{1, 2})
		assert.NoError(t, err)
	}()
	time.Sleep(30 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := b.GetOrFetchAll(context.Background(), []int{2, 3})
		assert.NoError(t, err)
		// Waiting on the shared key means its value is already committed
		assert.True(t, b.IsPresent(2))
	}()
	time.Sleep(30 * time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, fetched, "each key is fetched once")
	assert.Equal(t, int64(2), b.Stats().Fetches)
	assert.Equal(t, int64(1), b.Stats().Shared)
}

func TestBatchFailureLeavesKeysFetchable(t *testing.T) {
	mem := newMemStore()
	var calls atomic.Int32
	b := cache.NewBatch(cache.BatchSource[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, keys []int) (map[int]string, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("offline")
			}
			return map[int]string{1: "ok"}, nil
		},
		Commit: mem.commitAll,
	})

	_, err := b.GetOrFetchAll(context.Background(), []int{1})
	require.Error(t, err)
	assert.False(t, b.IsPresent(1))

	_, err = b.GetOrFetchAll(context.Background(), []int{1})
	require.NoError(t, err)
	assert.True(t, b.IsPresent(1))
}

func TestKeyedInvalidateDiscardsSupersededFetch(t *testing.T) {
	mem := newMemStore()
	started := make(chan int32, 2)
	releases := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var calls atomic.Int32

	c := cache.NewKeyed(cache.Source[int, string]{
		Lookup: mem.lookup,
		Fetch: func(ctx context.Context, k int) (string, error) {
			n := calls.Add(1)
			started <- n
			<-releases[n-1]
			if n == 1 {
				return "old", nil
			}
			return "new", nil
		},
		Commit: mem.commit,
		Evict:  mem.evict,
	})

	first := make(chan string, 1)
	go func() {
		v, err := c.GetOrFetch(context.Background(), 1)
		assert.NoError(t, err)
		first <- v
	}()
	require.Equal(t, int32(1), <-started)

	c.Invalidate(1)

	second := make(chan string, 1)
	go func() {
		v, err := c.GetOrFetch(context.Background(), 1)
		assert.NoError(t, err)
		second <- v
	}()
	require.Equal(t, int32(2), <-started)

	// The superseded fetch finishes first
	close(releases[0])
	assert.Equal(t, "old", <-first)
	assert.False(t, c.IsPresent(1), "a fetch started before Invalidate does not commit")

	close(releases[1])
	assert.Equal(t, "new", <-second)
	v, ok := mem.lookup(1)
	require.True(t, ok)
	assert.Equal(t, "new", v)
}
