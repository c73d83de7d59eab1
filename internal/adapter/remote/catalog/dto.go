package catalog

// Request payloads of the catalog service

type loginRequest struct {
	OTP string `json:"otp"`
}

type animeIDsRequest struct {
	AnimeIDs []int `json:"anime_ids"`
}

type watchListRequest struct {
	WatchListName string `json:"watch_list_name"`
}

type watchListArchivedRequest struct {
	WatchListName string `json:"watch_list_name"`
	Archived      bool   `json:"archived"`
}

type addItemRequest struct {
	AnimeID       int    `json:"anime_id"`
	WatchListName string `json:"watch_list_name"`
}

type visibilityRequest struct {
	AnimeID int  `json:"anime_id"`
	Visible bool `json:"visible"`
}

type ratingRequest struct {
	AnimeID int     `json:"anime_id"`
	Rating  float64 `json:"rating"`
}

type episodeWatchedRequest struct {
	AnimeID int  `json:"anime_id"`
	Ep      int  `json:"ep"`
	Watched bool `json:"watched"`
}

type emptyRequest struct{}
