package views

import (
	"slices"
	"sync"
	"time"

	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/store"
)

// Engine memoizes projections against the store version. A projection is
// recomputed only when the store has committed a change since it was cached,
// so views never diverge from the latest committed state.
type Engine struct {
	store *store.Store

	mu   sync.Mutex
	snap store.Snapshot
	have bool
	memo map[string]any
}

// NewEngine creates a view engine reading from st
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st, memo: make(map[string]any)}
}

// Snapshot returns the snapshot the current projections are computed from.
// It is shared with the engine and must be treated as read-only.
func (e *Engine) Snapshot() store.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked()
	return e.snap
}

func (e *Engine) refreshLocked() {
	if e.have && e.store.Version() == e.snap.Version {
		return
	}
	e.snap = e.store.Snapshot()
	e.have = true
	clear(e.memo)
}

// memoize returns a copy of the projection cached under key, computing it on
// the first call for the current snapshot. Callers may modify the result.
func memoize[S ~[]E, E any](e *Engine, key string, compute func(store.Snapshot) S, clone func(E) E) S {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked()
	v, ok := e.memo[key].(S)
	if !ok {
		v = compute(e.snap)
		e.memo[key] = v
	}
	return cloneEach(v, clone)
}

func cloneEach[S ~[]E, E any](s S, clone func(E) E) S {
	if s == nil {
		return nil
	}
	out := make(S, len(s))
	for i, v := range s {
		out[i] = clone(v)
	}
	return out
}

func cloneListAnime(l ListAnime) ListAnime {
	l.AnimeIDs = slices.Clone(l.AnimeIDs)
	return l
}

func cloneOnAir(e domain.OnAirEntry) domain.OnAirEntry {
	e.Item = e.Item.Clone()
	return e
}

func cloneUnwatched(e domain.UnwatchedEntry) domain.UnwatchedEntry {
	e.Item = e.Item.Clone()
	e.Episodes = slices.Clone(e.Episodes)
	return e
}

func cloneSearchResult(r SearchResult) SearchResult {
	r.State = r.State.Clone()
	r.MatchedIndexes = slices.Clone(r.MatchedIndexes)
	return r
}

func (e *Engine) ActiveWatchLists() []domain.WatchList {
	return memoize(e, "active", ActiveWatchLists, domain.WatchList.Clone)
}

func (e *Engine) ArchivedWatchLists() []domain.WatchList {
	return memoize(e, "archived", ArchivedWatchLists, domain.WatchList.Clone)
}

func (e *Engine) VisibleAnimeStates() []domain.AnimeState {
	return memoize(e, "visible", VisibleAnimeStates, domain.AnimeState.Clone)
}

func (e *Engine) HiddenAnimeStates() []domain.AnimeState {
	return memoize(e, "hidden", HiddenAnimeStates, domain.AnimeState.Clone)
}

func (e *Engine) VisibleAnimeByWatchList() []ListAnime {
	return memoize(e, "visible-by-list", VisibleAnimeByWatchList, cloneListAnime)
}

// OnAirToday is memoized per store version and calendar day
func (e *Engine) OnAirToday(now time.Time) []domain.OnAirEntry {
	return memoize(e, "onair:"+now.Format(domain.AirdateLayout), func(s store.Snapshot) []domain.OnAirEntry {
		return OnAirToday(s, now)
	}, cloneOnAir)
}

// Unwatched is memoized per store version and calendar day
func (e *Engine) Unwatched(now time.Time) []domain.UnwatchedEntry {
	return memoize(e, "unwatched:"+now.Format(domain.AirdateLayout), func(s store.Snapshot) []domain.UnwatchedEntry {
		return Unwatched(s, now)
	}, cloneUnwatched)
}

func (e *Engine) Search(query string) []SearchResult {
	return memoize(e, "search:"+query, func(s store.Snapshot) []SearchResult {
		return Search(s, query)
	}, cloneSearchResult)
}
