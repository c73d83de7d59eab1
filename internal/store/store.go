// Package store holds the canonical in-memory copies of watch lists, anime
// states and episodes. The mutation methods here are the only way to change
// that state; each one is applied under a single lock and bumps the version,
// so readers never observe a half-applied change.
package store

import (
	"slices"
	"sort"
	"sync"

	"github.com/spiecc/animetrack/internal/domain"
)

// Store is the entity store. The zero value is not usable; call New.
type Store struct {
	mu      sync.RWMutex
	version uint64

	watchLists []domain.WatchList
	states     map[int]domain.AnimeState
	stateOrder []int // insertion order of states, for stable projections
	episodes   map[int][]domain.Episode
	pending    map[int]bool // anime ids with an add in flight

	subMu   sync.Mutex
	subs    map[int]func(version uint64)
	nextSub int
}

// New creates an empty store
func New() *Store {
	return &Store{
		states:   make(map[int]domain.AnimeState),
		episodes: make(map[int][]domain.Episode),
		pending:  make(map[int]bool),
		subs:     make(map[int]func(uint64)),
	}
}

// mutate runs fn under the write lock. fn reports whether it changed anything;
// only changes bump the version and notify subscribers.
func (s *Store) mutate(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	if changed {
		s.version++
	}
	version := s.version
	s.mu.Unlock()

	if changed {
		s.notify(version)
	}
	return changed
}

// Subscribe registers fn to be called after every committed change.
// fn runs outside the store lock and may read from the store.
func (s *Store) Subscribe(fn func(version uint64)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(version uint64) {
	s.subMu.Lock()
	fns := make([]func(uint64), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(version)
	}
}

// === Watch lists ===

// ReplaceWatchLists swaps in a freshly fetched sequence of watch lists
func (s *Store) ReplaceWatchLists(lists []domain.WatchList) {
	s.mutate(func() bool {
		s.watchLists = cloneLists(lists)
		return true
	})
}

// UpsertWatchList replaces the list with the same title or appends it
func (s *Store) UpsertWatchList(list domain.WatchList) {
	s.mutate(func() bool {
		list = list.Clone()
		if list.AnimeIDs == nil {
			list.AnimeIDs = []int{}
		}
		if i := s.indexOfList(list.Title); i >= 0 {
			s.watchLists[i] = list
		} else {
			s.watchLists = append(s.watchLists, list)
		}
		return true
	})
}

// RemoveWatchList deletes the list with title; false if absent
func (s *Store) RemoveWatchList(title string) bool {
	return s.mutate(func() bool {
		i := s.indexOfList(title)
		if i < 0 {
			return false
		}
		s.watchLists = slices.Delete(s.watchLists, i, i+1)
		return true
	})
}

// SetWatchListArchived sets the archived flag; false if absent or unchanged
func (s *Store) SetWatchListArchived(title string, archived bool) bool {
	return s.mutate(func() bool {
		i := s.indexOfList(title)
		if i < 0 || s.watchLists[i].Archived == archived {
			return false
		}
		s.watchLists[i].Archived = archived
		return true
	})
}

// MoveWatchList moves the list at index from to index to
func (s *Store) MoveWatchList(from, to int) bool {
	return s.mutate(func() bool {
		n := len(s.watchLists)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return false
		}
		list := s.watchLists[from]
		s.watchLists = slices.Delete(s.watchLists, from, from+1)
		s.watchLists = slices.Insert(s.watchLists, to, list)
		return true
	})
}

// AttachAnimeState merges state and appends its id to the list titled title,
// in one step. Used to commit a completed add-to-watch-list chain.
func (s *Store) AttachAnimeState(title string, state domain.AnimeState) bool {
	return s.mutate(func() bool {
		i := s.indexOfList(title)
		if i < 0 {
			return false
		}
		s.putState(state)
		if !s.watchLists[i].Contains(state.AnimeID) {
			s.watchLists[i].AnimeIDs = append(s.watchLists[i].AnimeIDs, state.AnimeID)
		}
		return true
	})
}

func (s *Store) indexOfList(title string) int {
	return slices.IndexFunc(s.watchLists, func(w domain.WatchList) bool { return w.Title == title })
}

// === Anime states ===

// UpsertAnimeStates merges states by id, replacing whole records
func (s *Store) UpsertAnimeStates(states []domain.AnimeState) {
	if len(states) == 0 {
		return
	}
	s.mutate(func() bool {
		for _, st := range states {
			s.putState(st)
		}
		return true
	})
}

func (s *Store) putState(st domain.AnimeState) {
	st = st.Clone()
	if st.WatchedEpisodes == nil {
		st.WatchedEpisodes = []int{}
	}
	sort.Ints(st.WatchedEpisodes)
	st.WatchedEpisodes = slices.Compact(st.WatchedEpisodes)
	if _, ok := s.states[st.AnimeID]; !ok {
		s.stateOrder = append(s.stateOrder, st.AnimeID)
	}
	s.states[st.AnimeID] = st
}

// AddWatchedEpisode marks ep watched. Adding a present episode is a no-op.
func (s *Store) AddWatchedEpisode(animeID, ep int) bool {
	return s.mutate(func() bool {
		st, ok := s.states[animeID]
		if !ok {
			return false
		}
		i, found := slices.BinarySearch(st.WatchedEpisodes, ep)
		if found {
			return false
		}
		st.WatchedEpisodes = slices.Insert(slices.Clone(st.WatchedEpisodes), i, ep)
		s.states[animeID] = st
		return true
	})
}

// RemoveWatchedEpisode unmarks ep. Removing an absent episode is a no-op.
func (s *Store) RemoveWatchedEpisode(animeID, ep int) bool {
	return s.mutate(func() bool {
		st, ok := s.states[animeID]
		if !ok {
			return false
		}
		i, found := slices.BinarySearch(st.WatchedEpisodes, ep)
		if !found {
			return false
		}
		st.WatchedEpisodes = slices.Delete(slices.Clone(st.WatchedEpisodes), i, i+1)
		s.states[animeID] = st
		return true
	})
}

// SetVisibility sets the visibility flag; false if absent or unchanged
func (s *Store) SetVisibility(animeID int, visible bool) bool {
	return s.mutate(func() bool {
		st, ok := s.states[animeID]
		if !ok || st.Visibility == visible {
			return false
		}
		st.Visibility = visible
		s.states[animeID] = st
		return true
	})
}

// SetRating records the user's rating; false if the state is absent
func (s *Store) SetRating(animeID int, rating float64) bool {
	return s.mutate(func() bool {
		st, ok := s.states[animeID]
		if !ok {
			return false
		}
		st.Rating = &rating
		s.states[animeID] = st
		return true
	})
}

// SetPendingAdd flags or clears an in-flight add of animeID
func (s *Store) SetPendingAdd(animeID int, pending bool) bool {
	return s.mutate(func() bool {
		if s.pending[animeID] == pending {
			return false
		}
		if pending {
			s.pending[animeID] = true
		} else {
			delete(s.pending, animeID)
		}
		return true
	})
}

// === Episodes ===

// SetEpisodes caches the episode sequence of animeID. Episodes are written once
// per id: the call is ignored (false) if a sequence is already held.
// Use DropEpisodes first for an explicit refresh.
func (s *Store) SetEpisodes(animeID int, eps []domain.Episode) bool {
	return s.mutate(func() bool {
		if _, ok := s.episodes[animeID]; ok {
			return false
		}
		cp := slices.Clone(eps)
		if cp == nil {
			cp = []domain.Episode{}
		}
		s.episodes[animeID] = cp
		return true
	})
}

// DropEpisodes forgets the cached episodes of animeID
func (s *Store) DropEpisodes(animeID int) bool {
	return s.mutate(func() bool {
		if _, ok := s.episodes[animeID]; !ok {
			return false
		}
		delete(s.episodes, animeID)
		return true
	})
}

// === Reads ===

// Version returns the number of committed changes so far
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) WatchLists() []domain.WatchList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLists(s.watchLists)
}

func (s *Store) WatchList(title string) (domain.WatchList, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfList(title)
	if i < 0 {
		return domain.WatchList{}, false
	}
	return s.watchLists[i].Clone(), true
}

// AnimeState returns a copy of the state of animeID.
// A miss means "not yet loaded", not "does not exist".
func (s *Store) AnimeState(animeID int) (domain.AnimeState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[animeID]
	if !ok {
		return domain.AnimeState{}, false
	}
	return st.Clone(), true
}

func (s *Store) HasAnimeState(animeID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.states[animeID]
	return ok
}

// MissingAnimeStates returns the ids (deduplicated, in order) with no state held
func (s *Store) MissingAnimeStates(ids []int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []int
	for _, id := range ids {
		if _, ok := s.states[id]; !ok && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *Store) Episodes(animeID int) ([]domain.Episode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eps, ok := s.episodes[animeID]
	if !ok {
		return nil, false
	}
	return slices.Clone(eps), true
}

func (s *Store) HasEpisodes(animeID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.episodes[animeID]
	return ok
}

func (s *Store) IsPendingAdd(animeID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[animeID]
}

func cloneLists(lists []domain.WatchList) []domain.WatchList {
	out := make([]domain.WatchList, len(lists))
	for i, l := range lists {
		out[i] = l.Clone()
		if out[i].AnimeIDs == nil {
			out[i].AnimeIDs = []int{}
		}
	}
	return out
}
