package domain

import (
	"slices"
	"time"
)

// AirdateLayout is the calendar date format the metadata service uses for airdates.
const AirdateLayout = "2006-01-02"

// ImageSet holds the cover art variants served by the metadata service
type ImageSet struct {
	Large  string `json:"large"`
	Common string `json:"common"`
	Medium string `json:"medium"`
	Small  string `json:"small"`
	Grid   string `json:"grid,omitempty"`
}

// Tag is a user-contributed tag with its vote count
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Rating is the community score block of an anime
type Rating struct {
	Rank  int     `json:"rank"`
	Total int     `json:"total"`
	Score float64 `json:"score"`
}

// AnimeItem is descriptive metadata for one anime.
// Once fetched for an ID it is treated as stable for the session.
type AnimeItem struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	NameCN        string   `json:"name_cn"`
	Summary       string   `json:"summary"`
	Date          string   `json:"date,omitempty"`
	Eps           int      `json:"eps"`
	TotalEpisodes int      `json:"total_episodes"`
	Images        ImageSet `json:"images"`
	Tags          []Tag    `json:"tags,omitempty"`
	Rating        *Rating  `json:"rating,omitempty"`
}

// DisplayTitle prefers the localized name and falls back to the original one
func (a AnimeItem) DisplayTitle() string {
	if a.NameCN != "" {
		return a.NameCN
	}
	return a.Name
}

// Clone returns a deep copy of the item
func (a AnimeItem) Clone() AnimeItem {
	out := a
	out.Tags = slices.Clone(a.Tags)
	if a.Rating != nil {
		r := *a.Rating
		out.Rating = &r
	}
	return out
}

// AnimeState is the user's tracking record for one anime, merged with its metadata.
// There is exactly one AnimeState per anime no matter how many watch lists reference it.
type AnimeState struct {
	AnimeID         int       `json:"anime_id"`
	AnimeItem       AnimeItem `json:"anime_item"`
	Favorite        bool      `json:"favorite"`
	WatchedEpisodes []int     `json:"watched_episodes"`
	Visibility      bool      `json:"visibility"`
	Rating          *float64  `json:"rating,omitempty"`
}

// HasWatched reports whether episode ordinal ep is marked watched
func (s AnimeState) HasWatched(ep int) bool {
	return slices.Contains(s.WatchedEpisodes, ep)
}

// Clone returns a deep copy so callers can't alias store-owned slices
func (s AnimeState) Clone() AnimeState {
	out := s
	out.WatchedEpisodes = slices.Clone(s.WatchedEpisodes)
	out.AnimeItem = s.AnimeItem.Clone()
	if s.Rating != nil {
		r := *s.Rating
		out.Rating = &r
	}
	return out
}

// Episode is a single main-story episode of an anime.
// Ep is the ordinal and the key within its anime.
type Episode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	NameCN  string `json:"name_cn"`
	Ep      int    `json:"ep"`
	Airdate string `json:"airdate"`
}

// AiredOn parses the airdate as a calendar day in loc.
// Returns false when the airdate is empty or malformed.
func (e Episode) AiredOn(loc *time.Location) (time.Time, bool) {
	if e.Airdate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(AirdateLayout, e.Airdate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WatchList is a named, user-ordered, archivable collection of anime references
type WatchList struct {
	Title    string `json:"title"`
	Archived bool   `json:"archived"`
	AnimeIDs []int  `json:"animes"`
}

// Clone returns a deep copy of the watch list
func (w WatchList) Clone() WatchList {
	out := w
	out.AnimeIDs = slices.Clone(w.AnimeIDs)
	return out
}

// Contains reports whether the list references animeID
func (w WatchList) Contains(animeID int) bool {
	return slices.Contains(w.AnimeIDs, animeID)
}

// OnAirEntry is an episode airing today together with its anime
type OnAirEntry struct {
	Item    AnimeItem
	Episode Episode
}

// UnwatchedEntry lists the aired but unwatched episodes of one anime
type UnwatchedEntry struct {
	Item     AnimeItem
	Episodes []Episode
}
