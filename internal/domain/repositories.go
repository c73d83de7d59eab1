package domain

import "context"

// CatalogRepository: network operations against the first-party catalog service.
// Every method except Login takes the session token to send with the request.
type CatalogRepository interface {
	// Session
	Login(ctx context.Context, otp string) (string, error)
	Validate(ctx context.Context, token string) error

	// Watch lists
	GetWatchLists(ctx context.Context, token string) ([]WatchList, error)
	AddWatchList(ctx context.Context, token, title string) error
	DeleteWatchList(ctx context.Context, token, title string) error
	SetWatchListArchived(ctx context.Context, token, title string, archived bool) error
	AddItemToWatchList(ctx context.Context, token string, animeID int, title string) error

	// Anime states
	GetAnimeStates(ctx context.Context, token string, animeIDs []int) ([]AnimeState, error)
	InsertAnimeItem(ctx context.Context, token string, item AnimeItem) error
	SetAnimeVisibility(ctx context.Context, token string, animeID int, visible bool) error
	SetAnimeRating(ctx context.Context, token string, animeID int, rating float64) error
	SetEpisodeWatched(ctx context.Context, token string, animeID, ep int, watched bool) error
}

// MetadataRepository: unauthenticated reads from the third-party metadata service
type MetadataRepository interface {
	GetAnimeItem(ctx context.Context, animeID int) (AnimeItem, error)
	GetEpisodes(ctx context.Context, animeID int) ([]Episode, error)
}

// Credentials exposes the session token current at call time
type Credentials interface {
	Token() (string, bool)
}
