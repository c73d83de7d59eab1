// Package tracker sequences fetches from the catalog and metadata services into
// the entity store and runs the write actions against the catalog.
package tracker

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/spiecc/animetrack/internal/cache"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/store"
	"golang.org/x/sync/singleflight"
)

const defaultWorkers = 4

// Service orchestrates remote clients + entity store + local preferences.
type Service struct {
	catalog  domain.CatalogRepository
	metadata domain.MetadataRepository
	creds    domain.Credentials
	store    *store.Store
	prefs    domain.Preferences
	logger   *slog.Logger

	observer domain.SyncObserver
	notifier domain.Notifier
	workers  int

	lists    singleflight.Group
	states   *cache.Batch[int, domain.AnimeState]
	episodes *cache.Keyed[int, []domain.Episode]

	phaseMu sync.RWMutex
	phase   domain.SyncPhase
}

// Option configures a Service
type Option func(*Service)

// WithObserver receives phase transitions of FetchAll
func WithObserver(o domain.SyncObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithNotifier receives user-facing messages from write actions
func WithNotifier(n domain.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithWorkers bounds how many watch lists are fetched concurrently
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a tracker service.
func New(
	catalog domain.CatalogRepository,
	metadata domain.MetadataRepository,
	creds domain.Credentials,
	st *store.Store,
	prefs domain.Preferences,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalog:  catalog,
		metadata: metadata,
		creds:    creds,
		store:    st,
		prefs:    prefs,
		logger:   logger,
		observer: domain.NoOpObserver{},
		notifier: domain.NoOpNotifier{},
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.states = cache.NewBatch(cache.BatchSource[int, domain.AnimeState]{
		Lookup: st.AnimeState,
		Fetch:  s.loadAnimeStates,
		Commit: s.commitAnimeStates,
	})
	s.episodes = cache.NewKeyed(cache.Source[int, []domain.Episode]{
		Lookup: st.Episodes,
		Fetch:  s.metadata.GetEpisodes,
		Commit: func(id int, eps []domain.Episode) { st.SetEpisodes(id, eps) },
		Evict:  func(id int) { st.DropEpisodes(id) },
	})
	return s
}

// token returns the credential current at call time, or ErrNotLoggedIn
func (s *Service) token() (string, error) {
	token, ok := s.creds.Token()
	if !ok || token == "" {
		return "", domain.ErrNotLoggedIn
	}
	return token, nil
}

// Phase reports the state of the last top-level fetch
func (s *Service) Phase() domain.SyncPhase {
	s.phaseMu.RLock()
	defer s.phaseMu.RUnlock()
	return s.phase
}

func (s *Service) setPhase(phase domain.SyncPhase, err error) {
	s.phaseMu.Lock()
	s.phase = phase
	s.phaseMu.Unlock()

	lists := len(s.store.WatchLists())
	s.observer.OnProgress(domain.SyncProgress{Phase: phase, Lists: lists, Error: err})
}

// EpisodeCacheStats exposes hit/fetch counters of the episode cache
func (s *Service) EpisodeCacheStats() cache.Stats {
	return s.episodes.Stats()
}

// AnimeStateCacheStats exposes hit/fetch counters of the anime-state cache
func (s *Service) AnimeStateCacheStats() cache.Stats {
	return s.states.Stats()
}

// validState rejects records that would leave the store with a missing or
// mismatched anime item.
func validState(st domain.AnimeState) error {
	if st.AnimeID <= 0 {
		return fmt.Errorf("anime state has no id")
	}
	if st.AnimeItem.ID != st.AnimeID {
		return fmt.Errorf("anime state %d carries item %d", st.AnimeID, st.AnimeItem.ID)
	}
	return nil
}
