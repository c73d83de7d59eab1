package views

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/store"
)

// SearchResult is an anime state matching a query, with match metadata
type SearchResult struct {
	State          domain.AnimeState
	Title          string
	MatchedIndexes []int // Character positions that matched in Title
	Score          int
}

// titleIndex implements fuzzy.Source over pre-lowered titles
type titleIndex struct {
	states []domain.AnimeState
	titles []string
	lower  []string
}

func (idx *titleIndex) String(i int) string { return idx.lower[i] }

func (idx *titleIndex) Len() int { return len(idx.states) }

func newTitleIndex(states []domain.AnimeState) *titleIndex {
	idx := &titleIndex{
		states: states,
		titles: make([]string, len(states)),
		lower:  make([]string, len(states)),
	}
	for i, st := range states {
		title := st.AnimeItem.DisplayTitle()
		if st.AnimeItem.NameCN != "" && st.AnimeItem.Name != "" {
			title = st.AnimeItem.NameCN + " / " + st.AnimeItem.Name
		}
		idx.titles[i] = title
		idx.lower[i] = strings.ToLower(title)
	}
	return idx
}

// Search fuzzy-matches query against the titles of all cached anime states,
// best match first. An empty query matches nothing.
func Search(snap store.Snapshot, query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(snap.States) == 0 {
		return nil
	}

	idx := newTitleIndex(snap.States)
	matches := fuzzy.FindFrom(query, idx)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			State:          idx.states[m.Index],
			Title:          idx.titles[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
