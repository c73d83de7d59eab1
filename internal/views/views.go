// Package views computes the derived projections the front end renders.
// Every function here is pure over a store.Snapshot.
package views

import (
	"time"

	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/store"
)

// ListAnime is an active watch list with the ids of its visible anime
type ListAnime struct {
	Title    string
	AnimeIDs []int
}

// ActiveWatchLists returns the lists that aren't archived, in store order
func ActiveWatchLists(snap store.Snapshot) []domain.WatchList {
	return filterLists(snap.WatchLists, false)
}

// ArchivedWatchLists returns the archived lists, in store order
func ArchivedWatchLists(snap store.Snapshot) []domain.WatchList {
	return filterLists(snap.WatchLists, true)
}

func filterLists(lists []domain.WatchList, archived bool) []domain.WatchList {
	out := []domain.WatchList{}
	for _, l := range lists {
		if l.Archived == archived {
			out = append(out, l)
		}
	}
	return out
}

// VisibleAnimeStates returns states with visibility set
func VisibleAnimeStates(snap store.Snapshot) []domain.AnimeState {
	return filterStates(snap.States, true)
}

// HiddenAnimeStates returns states the user hid
func HiddenAnimeStates(snap store.Snapshot) []domain.AnimeState {
	return filterStates(snap.States, false)
}

func filterStates(states []domain.AnimeState, visible bool) []domain.AnimeState {
	out := []domain.AnimeState{}
	for _, s := range states {
		if s.Visibility == visible {
			out = append(out, s)
		}
	}
	return out
}

// VisibleAnimeByWatchList returns, for each active list, the ids whose state is
// loaded and visible. Ids not yet loaded are left out.
func VisibleAnimeByWatchList(snap store.Snapshot) []ListAnime {
	active := ActiveWatchLists(snap)
	out := make([]ListAnime, 0, len(active))
	for _, l := range active {
		ids := []int{}
		for _, id := range l.AnimeIDs {
			if st, ok := snap.State(id); ok && st.Visibility {
				ids = append(ids, id)
			}
		}
		out = append(out, ListAnime{Title: l.Title, AnimeIDs: ids})
	}
	return out
}

// OrderWatchLists sorts lists by the saved title order. Lists missing from
// order keep their fetch order after the ordered ones; titles in order with
// no matching list are dropped. newOrder is the title sequence of the result,
// which callers persist as the new preference.
func OrderWatchLists(lists []domain.WatchList, order []string) (ordered []domain.WatchList, newOrder []string) {
	byTitle := make(map[string]int, len(lists))
	for i, l := range lists {
		byTitle[l.Title] = i
	}

	used := make([]bool, len(lists))
	ordered = make([]domain.WatchList, 0, len(lists))
	for _, title := range order {
		i, ok := byTitle[title]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		ordered = append(ordered, lists[i])
	}
	for i, l := range lists {
		if !used[i] {
			ordered = append(ordered, l)
		}
	}

	newOrder = make([]string, len(ordered))
	for i, l := range ordered {
		newOrder[i] = l.Title
	}
	return ordered, newOrder
}

// OnAirToday returns every cached episode airing on now's calendar day,
// paired with its anime.
func OnAirToday(snap store.Snapshot, now time.Time) []domain.OnAirEntry {
	today := calendarDay(now)
	out := []domain.OnAirEntry{}
	for _, st := range snap.States {
		for _, ep := range snap.Episodes[st.AnimeID] {
			day, ok := ep.AiredOn(now.Location())
			if ok && day.Equal(today) {
				out = append(out, domain.OnAirEntry{Item: st.AnimeItem, Episode: ep})
			}
		}
	}
	return out
}

// Unwatched returns, for each visible anime, the episodes that aired before
// now's calendar day and aren't marked watched. Anime with none are omitted.
// Episodes keep their fetched (ascending) order.
func Unwatched(snap store.Snapshot, now time.Time) []domain.UnwatchedEntry {
	today := calendarDay(now)
	out := []domain.UnwatchedEntry{}
	for _, st := range snap.States {
		if !st.Visibility {
			continue
		}
		var eps []domain.Episode
		for _, ep := range snap.Episodes[st.AnimeID] {
			day, ok := ep.AiredOn(now.Location())
			if ok && day.Before(today) && !st.HasWatched(ep.Ep) {
				eps = append(eps, ep)
			}
		}
		if len(eps) > 0 {
			out = append(out, domain.UnwatchedEntry{Item: st.AnimeItem, Episodes: eps})
		}
	}
	return out
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
