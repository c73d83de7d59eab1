// Package catalog is the client for the first-party watch-list service.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spiecc/animetrack/internal/adapter/remote"
	"github.com/spiecc/animetrack/internal/domain"
)

// Endpoint paths
const (
	pathLogin             = "/login"
	pathValidate          = "/validate"
	pathList              = "/anime/list"
	pathAnimeStates       = "/anime/get_anime_states"
	pathInsertItem        = "/anime/insert_anime_item"
	pathAddItem           = "/anime/add_item_to_watch_list"
	pathAddWatchList      = "/anime/add_new_watch_list"
	pathDeleteWatchList   = "/anime/delete_watch_list"
	pathWatchListArchived = "/anime/update_watch_list_archived"
	pathVisibility        = "/anime/update_anime_visibility"
	pathRating            = "/anime/update_anime_rating"
	pathEpisodeWatched    = "/anime/update_episode_watched_state"
)

// Client implements domain.CatalogRepository
type Client struct {
	transport *remote.Transport
	logger    *slog.Logger
}

var _ domain.CatalogRepository = (*Client)(nil)

// NewClient creates a catalog client on top of transport
func NewClient(transport *remote.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{transport: transport, logger: logger}
}

// Login exchanges a one-time code for a session token
func (c *Client) Login(ctx context.Context, otp string) (string, error) {
	var token string
	if err := c.transport.Do(ctx, http.MethodPost, pathLogin, nil, loginRequest{OTP: otp}, "", &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty token in login response", domain.ErrServer)
	}
	return token, nil
}

// Validate confirms token is still accepted
func (c *Client) Validate(ctx context.Context, token string) error {
	return c.transport.Do(ctx, http.MethodPost, pathValidate, nil, emptyRequest{}, token, nil)
}

func (c *Client) GetWatchLists(ctx context.Context, token string) ([]domain.WatchList, error) {
	var lists []domain.WatchList
	if err := c.transport.Do(ctx, http.MethodGet, pathList, nil, nil, token, &lists); err != nil {
		return nil, err
	}
	for i := range lists {
		if lists[i].AnimeIDs == nil {
			lists[i].AnimeIDs = []int{}
		}
	}
	return lists, nil
}

func (c *Client) AddWatchList(ctx context.Context, token, title string) error {
	return c.transport.Do(ctx, http.MethodPost, pathAddWatchList, nil, watchListRequest{WatchListName: title}, token, nil)
}

func (c *Client) DeleteWatchList(ctx context.Context, token, title string) error {
	return c.transport.Do(ctx, http.MethodPost, pathDeleteWatchList, nil, watchListRequest{WatchListName: title}, token, nil)
}

func (c *Client) SetWatchListArchived(ctx context.Context, token, title string, archived bool) error {
	body := watchListArchivedRequest{WatchListName: title, Archived: archived}
	return c.transport.Do(ctx, http.MethodPost, pathWatchListArchived, nil, body, token, nil)
}

func (c *Client) AddItemToWatchList(ctx context.Context, token string, animeID int, title string) error {
	body := addItemRequest{AnimeID: animeID, WatchListName: title}
	return c.transport.Do(ctx, http.MethodPost, pathAddItem, nil, body, token, nil)
}

// GetAnimeStates fetches the states of exactly animeIDs in one batch
func (c *Client) GetAnimeStates(ctx context.Context, token string, animeIDs []int) ([]domain.AnimeState, error) {
	var states []domain.AnimeState
	if err := c.transport.Do(ctx, http.MethodPost, pathAnimeStates, nil, animeIDsRequest{AnimeIDs: animeIDs}, token, &states); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched anime states", "requested", len(animeIDs), "received", len(states))
	return states, nil
}

// InsertAnimeItem upserts metadata into the catalog's anime table
func (c *Client) InsertAnimeItem(ctx context.Context, token string, item domain.AnimeItem) error {
	return c.transport.Do(ctx, http.MethodPost, pathInsertItem, nil, item, token, nil)
}

func (c *Client) SetAnimeVisibility(ctx context.Context, token string, animeID int, visible bool) error {
	body := visibilityRequest{AnimeID: animeID, Visible: visible}
	return c.transport.Do(ctx, http.MethodPost, pathVisibility, nil, body, token, nil)
}

func (c *Client) SetAnimeRating(ctx context.Context, token string, animeID int, rating float64) error {
	body := ratingRequest{AnimeID: animeID, Rating: rating}
	return c.transport.Do(ctx, http.MethodPost, pathRating, nil, body, token, nil)
}

func (c *Client) SetEpisodeWatched(ctx context.Context, token string, animeID, ep int, watched bool) error {
	body := episodeWatchedRequest{AnimeID: animeID, Ep: ep, Watched: watched}
	return c.transport.Do(ctx, http.MethodPost, pathEpisodeWatched, nil, body, token, nil)
}
