package tui

import (
	"fmt"
	"time"

	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/store"
	"github.com/spiecc/animetrack/internal/views"
)

type tab int

const (
	tabLists tab = iota
	tabToday
	tabUnwatched
	tabLibrary
	tabHidden
	tabCount
)

func (t tab) String() string {
	switch t {
	case tabLists:
		return "Watch lists"
	case tabToday:
		return "On air today"
	case tabUnwatched:
		return "Unwatched"
	case tabLibrary:
		return "Library"
	case tabHidden:
		return "Hidden"
	default:
		return ""
	}
}

type rowKind int

const (
	rowList rowKind = iota
	rowAnime
	rowEpisode
)

// row is one selectable line of the current view
type row struct {
	kind      rowKind
	title     string
	detail    string
	listTitle string
	animeID   int
	ep        int
	watched   bool
	archived  bool
	visible   bool
	pending   bool
	rating    *float64
	progress  [2]int // watched, total
	matched   []int  // highlighted rune positions in title
}

func listRow(l domain.WatchList) row {
	return row{
		kind:      rowList,
		title:     l.Title,
		listTitle: l.Title,
		archived:  l.Archived,
		detail:    fmt.Sprintf("%d anime", len(l.AnimeIDs)),
	}
}

func animeRow(snap store.Snapshot, st domain.AnimeState, listTitle string) row {
	total := st.AnimeItem.TotalEpisodes
	if eps, ok := snap.Episodes[st.AnimeID]; ok && len(eps) > total {
		total = len(eps)
	}
	return row{
		kind:      rowAnime,
		title:     st.AnimeItem.DisplayTitle(),
		detail:    st.AnimeItem.Date,
		listTitle: listTitle,
		animeID:   st.AnimeID,
		visible:   st.Visibility,
		pending:   snap.Pending[st.AnimeID],
		rating:    st.Rating,
		progress:  [2]int{len(st.WatchedEpisodes), total},
	}
}

func episodeRow(item domain.AnimeItem, st domain.AnimeState, ep domain.Episode, withAnime bool) row {
	name := ep.NameCN
	if name == "" {
		name = ep.Name
	}
	title := fmt.Sprintf("Ep %d  %s", ep.Ep, name)
	if withAnime {
		title = fmt.Sprintf("%s  Ep %d", item.DisplayTitle(), ep.Ep)
	}
	return row{
		kind:    rowEpisode,
		title:   title,
		detail:  ep.Airdate,
		animeID: item.ID,
		ep:      ep.Ep,
		watched: st.HasWatched(ep.Ep),
		visible: st.Visibility,
	}
}

// buildRows projects the current tab (or the episode detail of detailID)
// from the view engine.
func buildRows(eng *views.Engine, t tab, detailID int, query string, now time.Time) []row {
	snap := eng.Snapshot()

	if detailID != 0 {
		st, ok := snap.State(detailID)
		if !ok {
			return nil
		}
		var rows []row
		for _, ep := range snap.Episodes[detailID] {
			rows = append(rows, episodeRow(st.AnimeItem, st, ep, false))
		}
		return filterRows(rows, query)
	}

	var rows []row
	switch t {
	case tabLists:
		byList := eng.VisibleAnimeByWatchList()
		for _, l := range eng.ActiveWatchLists() {
			rows = append(rows, listRow(l))
			for _, la := range byList {
				if la.Title != l.Title {
					continue
				}
				for _, id := range la.AnimeIDs {
					if st, ok := snap.State(id); ok {
						rows = append(rows, animeRow(snap, st, l.Title))
					}
				}
			}
		}
		for _, l := range eng.ArchivedWatchLists() {
			rows = append(rows, listRow(l))
		}
		return filterRows(rows, query)

	case tabToday:
		for _, e := range eng.OnAirToday(now) {
			st, _ := snap.State(e.Item.ID)
			rows = append(rows, episodeRow(e.Item, st, e.Episode, true))
		}
		return filterRows(rows, query)

	case tabUnwatched:
		for _, e := range eng.Unwatched(now) {
			st, _ := snap.State(e.Item.ID)
			for _, ep := range e.Episodes {
				rows = append(rows, episodeRow(e.Item, st, ep, true))
			}
		}
		return filterRows(rows, query)

	case tabLibrary:
		if query != "" {
			for _, res := range eng.Search(query) {
				r := animeRow(snap, res.State, "")
				r.title = res.Title
				r.matched = res.MatchedIndexes
				rows = append(rows, r)
			}
			return rows
		}
		for _, st := range eng.VisibleAnimeStates() {
			rows = append(rows, animeRow(snap, st, ""))
		}
		return rows

	case tabHidden:
		for _, st := range eng.HiddenAnimeStates() {
			rows = append(rows, animeRow(snap, st, ""))
		}
		return filterRows(rows, query)
	}
	return rows
}
