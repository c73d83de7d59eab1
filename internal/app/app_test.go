package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spiecc/animetrack/internal/adapter"
	"github.com/spiecc/animetrack/internal/app"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(catalogURL, metadataURL string) *adapter.Config {
	cfg := adapter.DefaultConfig()
	cfg.Catalog.URL = catalogURL
	cfg.Metadata.URL = metadataURL
	cfg.State.Path = ""
	return cfg
}

func TestLoginThenAuthenticatedFetch(t *testing.T) {
	var (
		mu         sync.Mutex
		listAuth   string
		loginCalls int
	)
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/login":
			loginCalls++
			w.Write([]byte("issued-token"))
		case "/anime/list":
			listAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode([]domain.WatchList{{Title: "Airing", AnimeIDs: []int{}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer catalogSrv.Close()
	metadataSrv := httptest.NewServer(http.NotFoundHandler())
	defer metadataSrv.Close()

	a, err := app.New(testConfig(catalogSrv.URL, metadataSrv.URL), adapter.NullLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Initialize(context.Background()))
	assert.False(t, a.Session.IsLoggedIn())
	assert.ErrorIs(t, a.Tracker.FetchWatchLists(context.Background()), domain.ErrNotLoggedIn)

	result, err := a.Session.Login(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, session.LoginSuccess, result)

	require.NoError(t, a.Tracker.FetchWatchLists(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, loginCalls)
	assert.Equal(t, "token issued-token", listAuth)
	assert.Len(t, a.Views.ActiveWatchLists(), 1)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("", "http://metadata")
	_, err := app.New(cfg, nil)
	assert.Error(t, err)
}
