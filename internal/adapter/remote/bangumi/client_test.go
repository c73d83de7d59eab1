package bangumi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spiecc/animetrack/internal/adapter"
	"github.com/spiecc/animetrack/internal/adapter/remote"
	"github.com/spiecc/animetrack/internal/adapter/remote/bangumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *bangumi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tr := remote.NewTransport(srv.URL, adapter.NullLogger(), remote.WithUserAgent("animetrack-test"))
	return bangumi.NewClient(tr, adapter.NullLogger())
}

func TestGetAnimeItem(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/subjects/400602", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "animetrack-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{
			"id": 400602,
			"name": "葬送のフリーレン",
			"name_cn": "葬送的芙莉莲",
			"date": "2023-09-29",
			"eps": 28,
			"total_episodes": 28,
			"images": {"large": "https://lain.bgm.tv/l.jpg"},
			"tags": [{"name": "奇幻", "count": 10}],
			"rating": {"rank": 1, "total": 100, "score": 9.1}
		}`))
	})

	item, err := c.GetAnimeItem(context.Background(), 400602)
	require.NoError(t, err)
	assert.Equal(t, 400602, item.ID)
	assert.Equal(t, "葬送的芙莉莲", item.DisplayTitle())
	assert.Equal(t, 28, item.TotalEpisodes)
	require.NotNil(t, item.Rating)
	assert.InDelta(t, 9.1, item.Rating.Score, 0.001)
	assert.Len(t, item.Tags, 1)
}

func TestGetAnimeItemRejectsInvalidID(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.GetAnimeItem(context.Background(), 0)
	assert.Error(t, err)
}

func TestGetEpisodesSortsByOrdinal(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/episodes", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("subject_id"))
		assert.Equal(t, "0", r.URL.Query().Get("type"))
		w.Write([]byte(`{"data":[
			{"id":3,"ep":2,"name":"b","airdate":"2024-01-08"},
			{"id":2,"ep":1,"name":"a","airdate":"2024-01-01"}
		],"total":2}`))
	})

	eps, err := c.GetEpisodes(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, 1, eps[0].Ep)
	assert.Equal(t, 2, eps[1].Ep)
}

func TestGetEpisodesEmpty(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"total":0}`))
	})

	eps, err := c.GetEpisodes(context.Background(), 12)
	require.NoError(t, err)
	assert.NotNil(t, eps)
	assert.Empty(t, eps)
}
