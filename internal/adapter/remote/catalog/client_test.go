package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spiecc/animetrack/internal/adapter"
	"github.com/spiecc/animetrack/internal/adapter/remote"
	"github.com/spiecc/animetrack/internal/adapter/remote/catalog"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *catalog.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return catalog.NewClient(remote.NewTransport(srv.URL, adapter.NullLogger()), adapter.NullLogger())
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestLogin(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		if body["otp"] == "000000" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("tok-123"))
	})

	token, err := c.Login(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	_, err = c.Login(context.Background(), "000000")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Login(context.Background(), "123456")
	assert.ErrorIs(t, err, domain.ErrServer)
}

func TestGetWatchLists(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/anime/list", r.URL.Path)
		assert.Equal(t, "token tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"title":"Airing","archived":false,"animes":[1,2]},{"title":"Empty","archived":true,"animes":null}]`))
	})

	lists, err := c.GetWatchLists(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, domain.WatchList{Title: "Airing", AnimeIDs: []int{1, 2}}, lists[0])
	assert.True(t, lists[1].Archived)
	assert.Equal(t, []int{}, lists[1].AnimeIDs)
}

func TestGetAnimeStates(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/get_anime_states", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, []any{float64(7), float64(9)}, body["anime_ids"])
		w.Write([]byte(`[{"anime_id":7,"anime_item":{"id":7,"name":"Seven"},"favorite":true,"watched_episodes":[1,2],"visibility":true}]`))
	})

	states, err := c.GetAnimeStates(context.Background(), "tok", []int{7, 9})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 7, states[0].AnimeItem.ID)
	assert.Equal(t, []int{1, 2}, states[0].WatchedEpisodes)
	assert.True(t, states[0].Favorite)
}

func TestWriteEndpoints(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	var calls []call
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token tok", r.Header.Get("Authorization"))
		calls = append(calls, call{path: r.URL.Path, body: decodeBody(t, r)})
	})
	ctx := context.Background()

	require.NoError(t, c.AddWatchList(ctx, "tok", "New"))
	require.NoError(t, c.DeleteWatchList(ctx, "tok", "Old"))
	require.NoError(t, c.SetWatchListArchived(ctx, "tok", "Done", true))
	require.NoError(t, c.AddItemToWatchList(ctx, "tok", 5, "New"))
	require.NoError(t, c.SetAnimeVisibility(ctx, "tok", 5, false))
	require.NoError(t, c.SetAnimeRating(ctx, "tok", 5, 8.5))
	require.NoError(t, c.SetEpisodeWatched(ctx, "tok", 5, 3, true))
	require.NoError(t, c.InsertAnimeItem(ctx, "tok", domain.AnimeItem{ID: 5, Name: "Five"}))

	want := []call{
		{"/anime/add_new_watch_list", map[string]any{"watch_list_name": "New"}},
		{"/anime/delete_watch_list", map[string]any{"watch_list_name": "Old"}},
		{"/anime/update_watch_list_archived", map[string]any{"watch_list_name": "Done", "archived": true}},
		{"/anime/add_item_to_watch_list", map[string]any{"anime_id": float64(5), "watch_list_name": "New"}},
		{"/anime/update_anime_visibility", map[string]any{"anime_id": float64(5), "visible": false}},
		{"/anime/update_anime_rating", map[string]any{"anime_id": float64(5), "rating": 8.5}},
		{"/anime/update_episode_watched_state", map[string]any{"anime_id": float64(5), "ep": float64(3), "watched": true}},
	}
	require.Len(t, calls, len(want)+1)
	for i, w := range want {
		assert.Equal(t, w.path, calls[i].path)
		assert.Equal(t, w.body, calls[i].body)
	}
	assert.Equal(t, "/anime/insert_anime_item", calls[7].path)
	assert.Equal(t, float64(5), calls[7].body["id"])
}

func TestValidateRejectedToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validate", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	})

	assert.ErrorIs(t, c.Validate(context.Background(), "stale"), domain.ErrUnauthorized)
}
