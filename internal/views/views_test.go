package views_test

import (
	"testing"
	"time"

	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/store"
	"github.com/spiecc/animetrack/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 4, 10, 21, 30, 0, 0, time.Local)

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format(domain.AirdateLayout)
}

func anime(id int, name string, visible bool, watched ...int) domain.AnimeState {
	return domain.AnimeState{
		AnimeID:         id,
		AnimeItem:       domain.AnimeItem{ID: id, Name: name},
		WatchedEpisodes: watched,
		Visibility:      visible,
	}
}

func TestUnwatchedRespectsVisibility(t *testing.T) {
	yesterday := []domain.Episode{{Ep: 1, Airdate: day(-1)}}
	hidden := anime(1, "Hidden", false)
	shown := anime(2, "Shown", true)

	snap := store.NewSnapshot(nil,
		[]domain.AnimeState{hidden, shown},
		map[int][]domain.Episode{1: yesterday, 2: yesterday},
	)

	got := views.Unwatched(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, shown.AnimeItem, got[0].Item)
	assert.Equal(t, yesterday, got[0].Episodes)
}

func TestUnwatchedExcludesWatchedTodayAndUndated(t *testing.T) {
	eps := []domain.Episode{
		{Ep: 1, Airdate: day(-3)},
		{Ep: 2, Airdate: day(-2)},
		{Ep: 3, Airdate: day(0)},
		{Ep: 4, Airdate: ""},
		{Ep: 5, Airdate: "not-a-date"},
	}
	snap := store.NewSnapshot(nil,
		[]domain.AnimeState{anime(1, "A", true, 1), anime(2, "Caught up", true, 1, 2)},
		map[int][]domain.Episode{1: eps, 2: eps},
	)

	got := views.Unwatched(snap, now)
	require.Len(t, got, 1, "anime with nothing left are omitted")
	require.Len(t, got[0].Episodes, 1)
	assert.Equal(t, 2, got[0].Episodes[0].Ep)
}

func TestOnAirToday(t *testing.T) {
	snap := store.NewSnapshot(nil,
		[]domain.AnimeState{anime(1, "Today", true), anime(2, "Tomorrow", true)},
		map[int][]domain.Episode{
			1: {{Ep: 1, Airdate: day(-7)}, {Ep: 2, Airdate: day(0)}},
			2: {{Ep: 1, Airdate: day(1)}},
		},
	)

	got := views.OnAirToday(snap, now)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Item.ID)
	assert.Equal(t, 2, got[0].Episode.Ep)
}

func TestVisibleAndHiddenPartitionStates(t *testing.T) {
	snap := store.NewSnapshot(nil,
		[]domain.AnimeState{anime(1, "a", true), anime(2, "b", false), anime(3, "c", true)},
		nil,
	)

	visible := views.VisibleAnimeStates(snap)
	hidden := views.HiddenAnimeStates(snap)
	assert.Len(t, visible, 2)
	require.Len(t, hidden, 1)
	assert.Equal(t, 2, hidden[0].AnimeID)
}

func TestActiveAndArchivedWatchLists(t *testing.T) {
	snap := store.NewSnapshot([]domain.WatchList{
		{Title: "Airing"},
		{Title: "Done", Archived: true},
		{Title: "Backlog"},
	}, nil, nil)

	active := views.ActiveWatchLists(snap)
	archived := views.ArchivedWatchLists(snap)
	require.Len(t, active, 2)
	assert.Equal(t, "Airing", active[0].Title)
	assert.Equal(t, "Backlog", active[1].Title)
	require.Len(t, archived, 1)
	assert.Equal(t, "Done", archived[0].Title)
}

func TestVisibleAnimeByWatchListSkipsUnloadedAndHidden(t *testing.T) {
	snap := store.NewSnapshot(
		[]domain.WatchList{{Title: "A", AnimeIDs: []int{1, 2, 3}}, {Title: "Old", Archived: true, AnimeIDs: []int{1}}},
		[]domain.AnimeState{anime(1, "a", true), anime(2, "b", false)},
		nil,
	)

	got := views.VisibleAnimeByWatchList(snap)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, []int{1}, got[0].AnimeIDs)
}

func TestOrderWatchLists(t *testing.T) {
	server := []domain.WatchList{{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"}}

	tests := []struct {
		name  string
		order []string
		want  []string
	}{
		{"no saved order keeps fetch order", nil, []string{"A", "B", "C", "D"}},
		{"saved order wins and new lists append", []string{"B", "A", "C"}, []string{"B", "A", "C", "D"}},
		{"unknown titles are dropped", []string{"Gone", "C", "A"}, []string{"C", "A", "B", "D"}},
		{"duplicate titles count once", []string{"D", "D", "A"}, []string{"D", "A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered, order := views.OrderWatchLists(server, tt.order)
			assert.Equal(t, tt.want, order)
			for i, l := range ordered {
				assert.Equal(t, tt.want[i], l.Title)
			}
		})
	}
}

func TestEngineTracksStoreVersion(t *testing.T) {
	st := store.New()
	eng := views.NewEngine(st)

	st.UpsertAnimeStates([]domain.AnimeState{anime(1, "a", true)})
	assert.Len(t, eng.VisibleAnimeStates(), 1)
	assert.Empty(t, eng.HiddenAnimeStates())

	st.SetVisibility(1, false)
	assert.Empty(t, eng.VisibleAnimeStates(), "views follow the latest committed change")
	assert.Len(t, eng.HiddenAnimeStates(), 1)
}

func TestEngineCalendarViewsFollowTheDay(t *testing.T) {
	st := store.New()
	eng := views.NewEngine(st)
	st.UpsertAnimeStates([]domain.AnimeState{anime(1, "a", true)})
	st.SetEpisodes(1, []domain.Episode{{Ep: 1, Airdate: day(0)}})

	assert.Len(t, eng.OnAirToday(now), 1)
	assert.Empty(t, eng.Unwatched(now))

	tomorrow := now.AddDate(0, 0, 1)
	assert.Empty(t, eng.OnAirToday(tomorrow))
	assert.Len(t, eng.Unwatched(tomorrow), 1)
}

func TestSearchRanksTitles(t *testing.T) {
	snap := store.NewSnapshot(nil, []domain.AnimeState{
		anime(1, "Frieren: Beyond Journey's End", true),
		anime(2, "Dungeon Meshi", true),
		anime(3, "Oshi no Ko", true),
	}, nil)

	got := views.Search(snap, "dungeon")
	require.NotEmpty(t, got)
	assert.Equal(t, 2, got[0].State.AnimeID)
	assert.NotEmpty(t, got[0].MatchedIndexes)

	assert.Nil(t, views.Search(snap, "   "))
}

func TestEngineResultsAreCopies(t *testing.T) {
	st := store.New()
	eng := views.NewEngine(st)
	st.ReplaceWatchLists([]domain.WatchList{{Title: "A", AnimeIDs: []int{1}}})
	st.UpsertAnimeStates([]domain.AnimeState{anime(1, "a", true, 1)})

	lists := eng.ActiveWatchLists()
	lists[0].Title = "changed"
	lists[0].AnimeIDs[0] = 99
	states := eng.VisibleAnimeStates()
	states[0].WatchedEpisodes[0] = 99
	byList := eng.VisibleAnimeByWatchList()
	byList[0].AnimeIDs[0] = 99

	again := eng.ActiveWatchLists()
	assert.Equal(t, "A", again[0].Title)
	assert.Equal(t, []int{1}, again[0].AnimeIDs)
	assert.Equal(t, []int{1}, eng.VisibleAnimeStates()[0].WatchedEpisodes)
	assert.Equal(t, []int{1}, eng.VisibleAnimeByWatchList()[0].AnimeIDs)
}
