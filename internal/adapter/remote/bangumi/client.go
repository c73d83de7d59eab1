// Package bangumi is the client for the Bangumi metadata service (api.bgm.tv).
package bangumi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/spiecc/animetrack/internal/adapter/remote"
	"github.com/spiecc/animetrack/internal/domain"
)

// Client implements domain.MetadataRepository. Requests are unauthenticated.
type Client struct {
	transport *remote.Transport
	logger    *slog.Logger
}

var _ domain.MetadataRepository = (*Client)(nil)

// NewClient creates a metadata client on top of transport
func NewClient(transport *remote.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{transport: transport, logger: logger}
}

// GetAnimeItem fetches the full subject for animeID
func (c *Client) GetAnimeItem(ctx context.Context, animeID int) (domain.AnimeItem, error) {
	if animeID <= 0 {
		return domain.AnimeItem{}, fmt.Errorf("invalid anime id %d", animeID)
	}
	var subject subjectResponse
	path := "/v0/subjects/" + strconv.Itoa(animeID)
	if err := c.transport.Do(ctx, http.MethodGet, path, nil, nil, "", &subject); err != nil {
		return domain.AnimeItem{}, err
	}
	return mapSubject(subject), nil
}

// GetEpisodes fetches the main episodes of animeID in ascending ordinal order
func (c *Client) GetEpisodes(ctx context.Context, animeID int) ([]domain.Episode, error) {
	query := url.Values{}
	query.Set("subject_id", strconv.Itoa(animeID))
	query.Set("type", episodeTypeMain)

	var resp episodesResponse
	if err := c.transport.Do(ctx, http.MethodGet, "/v0/episodes", query, nil, "", &resp); err != nil {
		return nil, err
	}

	eps := resp.Data
	if eps == nil {
		eps = []domain.Episode{}
	}
	sort.SliceStable(eps, func(i, j int) bool { return eps[i].Ep < eps[j].Ep })

	c.logger.Debug("fetched episodes", "animeID", animeID, "count", len(eps))
	return eps, nil
}
