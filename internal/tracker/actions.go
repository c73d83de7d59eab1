package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spiecc/animetrack/internal/domain"
)

// AddAnimeToWatchList runs the add chain for animeID: fetch its metadata,
// insert the item into the catalog, attach it to the list, then load its
// state. The store is written only after the chain completes. A failed step is
// reported as *domain.AddAnimeError. While the chain runs the anime is marked
// pending.
func (s *Service) AddAnimeToWatchList(ctx context.Context, title string, animeID int) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	if _, ok := s.store.WatchList(title); !ok {
		return fmt.Errorf("%w: %q", domain.ErrWatchListNotFound, title)
	}

	s.store.SetPendingAdd(animeID, true)
	defer s.store.SetPendingAdd(animeID, false)

	fail := func(step domain.AddStep, err error) error {
		addErr := &domain.AddAnimeError{Step: step, AnimeID: animeID, List: title, Err: err}
		s.logger.Error("failed to add anime", "error", err, "step", step.String(), "animeID", animeID, "watchList", title)
		s.notifier.Notify(addErr.Message(), true)
		return addErr
	}

	item, err := s.metadata.GetAnimeItem(ctx, animeID)
	if err != nil {
		return fail(domain.StepFetchMetadata, err)
	}
	if err := s.catalog.InsertAnimeItem(ctx, token, item); err != nil {
		return fail(domain.StepInsertItem, err)
	}
	if err := s.catalog.AddItemToWatchList(ctx, token, animeID, title); err != nil {
		return fail(domain.StepAttachToList, err)
	}

	states, err := s.catalog.GetAnimeStates(ctx, token, []int{animeID})
	if err != nil {
		return fail(domain.StepFetchState, err)
	}
	idx := slices.IndexFunc(states, func(st domain.AnimeState) bool { return st.AnimeID == animeID })
	if idx < 0 {
		return fail(domain.StepFetchState, domain.ErrAnimeStateMissing)
	}
	if err := validState(states[idx]); err != nil {
		return fail(domain.StepFetchState, err)
	}

	if !s.store.AttachAnimeState(title, states[idx]) {
		// List was deleted while the chain ran; keep the state for other lists
		s.store.UpsertAnimeStates(states[idx : idx+1])
	}
	s.logger.Info("added anime to watch list", "animeID", animeID, "watchList", title)
	s.notifier.Notify("Anime added to watch list", false)

	if _, err := s.FetchEpisodes(ctx, animeID); err != nil {
		s.logger.Warn("episodes of added anime not loaded", "error", err, "animeID", animeID)
	}
	return nil
}

// ToggleWatched flips the watched flag of episode ep. The store is updated
// before the catalog call and reverted if the call fails.
func (s *Service) ToggleWatched(ctx context.Context, animeID, ep int) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	st, ok := s.store.AnimeState(animeID)
	if !ok {
		return domain.ErrAnimeStateMissing
	}

	watched := !st.HasWatched(ep)
	s.applyWatched(animeID, ep, watched)

	if err := s.catalog.SetEpisodeWatched(ctx, token, animeID, ep, watched); err != nil {
		s.applyWatched(animeID, ep, !watched)
		s.logger.Error("failed to update watched episode", "error", err, "animeID", animeID, "ep", ep)
		s.notifier.Notify("Failed to update watched episode", true)
		return fmt.Errorf("set episode %d of %d watched=%t: %w", ep, animeID, watched, err)
	}
	return nil
}

func (s *Service) applyWatched(animeID, ep int, watched bool) {
	if watched {
		s.store.AddWatchedEpisode(animeID, ep)
	} else {
		s.store.RemoveWatchedEpisode(animeID, ep)
	}
}

// ToggleVisibility sets whether animeID shows in the visible views. The store
// changes only once the catalog confirms.
func (s *Service) ToggleVisibility(ctx context.Context, animeID int, visible bool) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	if !s.store.HasAnimeState(animeID) {
		return domain.ErrAnimeStateMissing
	}

	if err := s.catalog.SetAnimeVisibility(ctx, token, animeID, visible); err != nil {
		s.logger.Error("failed to update visibility", "error", err, "animeID", animeID)
		s.notifier.Notify("Failed to update visibility", true)
		return fmt.Errorf("set visibility of %d: %w", animeID, err)
	}
	s.store.SetVisibility(animeID, visible)
	return nil
}

// ToggleArchived flips the archived flag of the watch list titled title once
// the catalog confirms.
func (s *Service) ToggleArchived(ctx context.Context, title string) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	list, ok := s.store.WatchList(title)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrWatchListNotFound, title)
	}

	archived := !list.Archived
	if err := s.catalog.SetWatchListArchived(ctx, token, title, archived); err != nil {
		s.logger.Error("failed to update watch list", "error", err, "watchList", title)
		s.notifier.Notify("Failed to update watch list", true)
		return fmt.Errorf("set %q archived=%t: %w", title, archived, err)
	}
	s.store.SetWatchListArchived(title, archived)
	return nil
}

// UpdateRating stores the user's rating of animeID once the catalog confirms
func (s *Service) UpdateRating(ctx context.Context, animeID int, rating float64) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	if !s.store.HasAnimeState(animeID) {
		return domain.ErrAnimeStateMissing
	}

	if err := s.catalog.SetAnimeRating(ctx, token, animeID, rating); err != nil {
		s.logger.Error("failed to update rating", "error", err, "animeID", animeID)
		s.notifier.Notify("Failed to update rating", true)
		return fmt.Errorf("set rating of %d: %w", animeID, err)
	}
	s.store.SetRating(animeID, rating)
	return nil
}

// CreateWatchList creates an empty watch list and appends it to the saved order
func (s *Service) CreateWatchList(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("watch list title is empty")
	}
	token, err := s.token()
	if err != nil {
		return err
	}
	if _, ok := s.store.WatchList(title); ok {
		return fmt.Errorf("watch list %q already exists", title)
	}

	if err := s.catalog.AddWatchList(ctx, token, title); err != nil {
		s.logger.Error("failed to create watch list", "error", err, "watchList", title)
		s.notifier.Notify("Failed to create watch list", true)
		return fmt.Errorf("create watch list %q: %w", title, err)
	}
	s.store.UpsertWatchList(domain.WatchList{Title: title, AnimeIDs: []int{}})
	s.saveOrder()
	s.notifier.Notify("Watch list created", false)
	return nil
}

// DeleteWatchList deletes the watch list titled title and drops it from the
// saved order. Anime states stay cached.
func (s *Service) DeleteWatchList(ctx context.Context, title string) error {
	token, err := s.token()
	if err != nil {
		return err
	}
	if _, ok := s.store.WatchList(title); !ok {
		return fmt.Errorf("%w: %q", domain.ErrWatchListNotFound, title)
	}

	if err := s.catalog.DeleteWatchList(ctx, token, title); err != nil {
		s.logger.Error("failed to delete watch list", "error", err, "watchList", title)
		s.notifier.Notify("Failed to delete watch list", true)
		return fmt.Errorf("delete watch list %q: %w", title, err)
	}
	s.store.RemoveWatchList(title)

	order := slices.DeleteFunc(s.prefs.WatchListOrder(), func(t string) bool { return t == title })
	if err := s.prefs.SaveWatchListOrder(order); err != nil {
		s.logger.Error("failed to save watch list order", "error", err)
	}
	return nil
}

// MoveWatchList reorders the watch lists locally and saves the new order.
// It makes no network call.
func (s *Service) MoveWatchList(from, to int) bool {
	if !s.store.MoveWatchList(from, to) {
		return false
	}
	s.saveOrder()
	return true
}

func (s *Service) saveOrder() {
	lists := s.store.WatchLists()
	order := make([]string, len(lists))
	for i, l := range lists {
		order[i] = l.Title
	}
	if err := s.prefs.SaveWatchListOrder(order); err != nil {
		s.logger.Error("failed to save watch list order", "error", err)
	}
}
