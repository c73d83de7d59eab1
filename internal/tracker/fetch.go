package tracker

import (
	"context"
	"slices"

	"github.com/sourcegraph/conc/pool"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/views"
)

const watchListsKey = "watch-lists"

// FetchWatchLists replaces the stored watch lists with the server's, sorted by
// the saved ordering, and saves the resulting order. Concurrent calls share
// one request.
func (s *Service) FetchWatchLists(ctx context.Context) error {
	token, err := s.token()
	if err != nil {
		return err
	}

	fetchCtx := context.WithoutCancel(ctx)
	_, err, _ = s.lists.Do(watchListsKey, func() (any, error) {
		lists, err := s.catalog.GetWatchLists(fetchCtx, token)
		if err != nil {
			s.logger.Error("failed to fetch watch lists", "error", err)
			return nil, err
		}

		ordered, order := views.OrderWatchLists(lists, s.prefs.WatchListOrder())
		s.store.ReplaceWatchLists(ordered)
		if err := s.prefs.SaveWatchListOrder(order); err != nil {
			s.logger.Error("failed to save watch list order", "error", err)
		}

		s.logger.Debug("fetched watch lists", "count", len(ordered))
		return nil, nil
	})
	return err
}

// FetchAnimeStatesFor loads the states of list's anime that the store doesn't
// hold yet, in one batched request. With every id held it returns without any
// network call.
func (s *Service) FetchAnimeStatesFor(ctx context.Context, list domain.WatchList) error {
	missing := s.store.MissingAnimeStates(list.AnimeIDs)
	if len(missing) == 0 {
		s.logger.Debug("anime states cached", "watchList", list.Title)
		return nil
	}
	if _, err := s.token(); err != nil {
		return err
	}

	fetched, err := s.states.GetOrFetchAll(ctx, missing)
	if err != nil {
		s.logger.Error("failed to fetch anime states", "error", err, "watchList", list.Title)
		return err
	}
	s.logger.Debug("fetched anime states", "watchList", list.Title, "requested", len(fetched))
	return nil
}

func (s *Service) loadAnimeStates(ctx context.Context, ids []int) (map[int]domain.AnimeState, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	states, err := s.catalog.GetAnimeStates(ctx, token, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[int]domain.AnimeState, len(states))
	for _, st := range states {
		if !slices.Contains(ids, st.AnimeID) {
			continue
		}
		if err := validState(st); err != nil {
			s.logger.Warn("dropping malformed anime state", "error", err)
			continue
		}
		out[st.AnimeID] = st
	}
	return out, nil
}

func (s *Service) commitAnimeStates(values map[int]domain.AnimeState) {
	states := make([]domain.AnimeState, 0, len(values))
	for _, st := range values {
		states = append(states, st)
	}
	// Map order is random; keep insertion order stable for the views
	slices.SortFunc(states, func(a, b domain.AnimeState) int { return a.AnimeID - b.AnimeID })
	s.store.UpsertAnimeStates(states)
}

// FetchEpisodes returns the episodes of animeID, fetching them from the
// metadata service only if they aren't cached. Concurrent calls for the same
// id share one request. The anime's state must already be loaded.
func (s *Service) FetchEpisodes(ctx context.Context, animeID int) ([]domain.Episode, error) {
	if !s.store.HasAnimeState(animeID) {
		return nil, domain.ErrAnimeStateMissing
	}
	eps, err := s.episodes.GetOrFetch(ctx, animeID)
	if err != nil {
		s.logger.Error("failed to fetch episodes", "error", err, "animeID", animeID)
		return nil, err
	}
	return eps, nil
}

// RefreshEpisodes drops the cached episodes of animeID and fetches them again
func (s *Service) RefreshEpisodes(ctx context.Context, animeID int) ([]domain.Episode, error) {
	s.episodes.Invalidate(animeID)
	s.logger.Info("invalidated episode cache", "animeID", animeID)
	return s.FetchEpisodes(ctx, animeID)
}

// FetchAll runs the full fetch graph: watch lists, then each list's anime
// states (lists in parallel), then episodes of every loaded anime. Only a
// watch-list failure fails the cycle; per-list and per-anime failures are
// logged and leave the prior store content in place.
func (s *Service) FetchAll(ctx context.Context) error {
	s.setPhase(domain.PhaseLoading, nil)

	if err := s.FetchWatchLists(ctx); err != nil {
		s.setPhase(domain.PhaseFailed, err)
		return err
	}

	p := pool.New().WithMaxGoroutines(s.workers)
	for _, list := range s.store.WatchLists() {
		p.Go(func() {
			if err := s.FetchAnimeStatesFor(ctx, list); err != nil {
				return
			}
			for _, id := range list.AnimeIDs {
				if !s.store.HasAnimeState(id) {
					s.logger.Warn("anime state not returned", "animeID", id, "watchList", list.Title)
					continue
				}
				s.FetchEpisodes(ctx, id)
			}
		})
	}
	p.Wait()

	eps, states := s.EpisodeCacheStats(), s.AnimeStateCacheStats()
	s.logger.Debug("fetch cycle complete",
		"stateHits", states.Hits, "stateFetches", states.Fetches, "stateShared", states.Shared,
		"episodeHits", eps.Hits, "episodeFetches", eps.Fetches, "episodeShared", eps.Shared)

	s.setPhase(domain.PhaseReady, nil)
	return nil
}
