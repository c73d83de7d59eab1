package bangumi

import "github.com/spiecc/animetrack/internal/domain"

// episodeTypeMain selects main-story episodes (no specials, OP/ED)
const episodeTypeMain = "0"

// subjectResponse is the /v0/subjects/{id} payload
type subjectResponse struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	NameCN        string          `json:"name_cn"`
	Summary       string          `json:"summary"`
	Date          string          `json:"date"`
	Eps           int             `json:"eps"`
	TotalEpisodes int             `json:"total_episodes"`
	Images        domain.ImageSet `json:"images"`
	Tags          []domain.Tag    `json:"tags"`
	Rating        *domain.Rating  `json:"rating"`
}

// episodesResponse is the /v0/episodes payload
type episodesResponse struct {
	Data  []domain.Episode `json:"data"`
	Total int              `json:"total"`
}

func mapSubject(s subjectResponse) domain.AnimeItem {
	return domain.AnimeItem{
		ID:            s.ID,
		Name:          s.Name,
		NameCN:        s.NameCN,
		Summary:       s.Summary,
		Date:          s.Date,
		Eps:           s.Eps,
		TotalEpisodes: s.TotalEpisodes,
		Images:        s.Images,
		Tags:          s.Tags,
		Rating:        s.Rating,
	}
}
