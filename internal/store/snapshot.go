package store

import (
	"maps"
	"slices"

	"github.com/spiecc/animetrack/internal/domain"
)

// Snapshot is an immutable, consistent copy of the store at one version.
// Derived views are computed from snapshots only.
type Snapshot struct {
	Version    uint64
	WatchLists []domain.WatchList
	States     []domain.AnimeState // in insertion order
	Episodes   map[int][]domain.Episode
	Pending    map[int]bool

	index map[int]int
}

// Snapshot copies the current state under the read lock
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version:    s.version,
		WatchLists: cloneLists(s.watchLists),
		States:     make([]domain.AnimeState, 0, len(s.stateOrder)),
		Episodes:   make(map[int][]domain.Episode, len(s.episodes)),
		Pending:    maps.Clone(s.pending),
		index:      make(map[int]int, len(s.stateOrder)),
	}
	for _, id := range s.stateOrder {
		snap.index[id] = len(snap.States)
		snap.States = append(snap.States, s.states[id].Clone())
	}
	for id, eps := range s.episodes {
		snap.Episodes[id] = slices.Clone(eps)
	}
	return snap
}

// State looks up the state of animeID in the snapshot
func (s Snapshot) State(animeID int) (domain.AnimeState, bool) {
	i, ok := s.index[animeID]
	if !ok {
		return domain.AnimeState{}, false
	}
	return s.States[i], true
}

// NewSnapshot builds a snapshot from plain values; used by tests and tools
// that compute views without a live store.
func NewSnapshot(lists []domain.WatchList, states []domain.AnimeState, episodes map[int][]domain.Episode) Snapshot {
	st := New()
	st.ReplaceWatchLists(lists)
	st.UpsertAnimeStates(states)
	for id, eps := range episodes {
		st.SetEpisodes(id, eps)
	}
	return st.Snapshot()
}
