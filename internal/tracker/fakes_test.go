package tracker_test

import (
	"context"
	"slices"
	"sync"

	"github.com/spiecc/animetrack/internal/domain"
)

// fakeCatalog is an in-memory catalog service recording every call
type fakeCatalog struct {
	mu sync.Mutex

	lists  []domain.WatchList
	states map[int]domain.AnimeState
	items  map[int]domain.AnimeItem

	// errs fails the named method
	errs map[string]error

	// listsGate holds GetWatchLists open until closed
	listsGate chan struct{}

	calls      map[string]int
	stateCalls [][]int
	tokens     []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		states: map[int]domain.AnimeState{},
		items:  map[int]domain.AnimeItem{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeCatalog) record(method, token string) error {
	f.calls[method]++
	f.tokens = append(f.tokens, token)
	return f.errs[method]
}

func (f *fakeCatalog) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeCatalog) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeCatalog) Login(ctx context.Context, otp string) (string, error) {
	return "tok", nil
}

func (f *fakeCatalog) Validate(ctx context.Context, token string) error {
	return nil
}

func (f *fakeCatalog) GetWatchLists(ctx context.Context, token string) ([]domain.WatchList, error) {
	f.mu.Lock()
	gate := f.listsGate
	err := f.record("GetWatchLists", token)
	out := make([]domain.WatchList, len(f.lists))
	for i, l := range f.lists {
		out[i] = l.Clone()
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeCatalog) AddWatchList(ctx context.Context, token, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddWatchList", token); err != nil {
		return err
	}
	f.lists = append(f.lists, domain.WatchList{Title: title, AnimeIDs: []int{}})
	return nil
}

func (f *fakeCatalog) DeleteWatchList(ctx context.Context, token, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteWatchList", token); err != nil {
		return err
	}
	f.lists = slices.DeleteFunc(f.lists, func(l domain.WatchList) bool { return l.Title == title })
	return nil
}

func (f *fakeCatalog) SetWatchListArchived(ctx context.Context, token, title string, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetWatchListArchived", token)
}

func (f *fakeCatalog) AddItemToWatchList(ctx context.Context, token string, animeID int, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddItemToWatchList", token); err != nil {
		return err
	}
	for i := range f.lists {
		if f.lists[i].Title == title {
			f.lists[i].AnimeIDs = append(f.lists[i].AnimeIDs, animeID)
		}
	}
	if item, ok := f.items[animeID]; ok {
		f.states[animeID] = domain.AnimeState{AnimeID: animeID, AnimeItem: item, Visibility: true}
	}
	return nil
}

func (f *fakeCatalog) GetAnimeStates(ctx context.Context, token string, animeIDs []int) ([]domain.AnimeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls = append(f.stateCalls, slices.Clone(animeIDs))
	if err := f.record("GetAnimeStates", token); err != nil {
		return nil, err
	}
	var out []domain.AnimeState
	for _, id := range animeIDs {
		if st, ok := f.states[id]; ok {
			out = append(out, st.Clone())
		}
	}
	return out, nil
}

func (f *fakeCatalog) InsertAnimeItem(ctx context.Context, token string, item domain.AnimeItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("InsertAnimeItem", token); err != nil {
		return err
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeCatalog) SetAnimeVisibility(ctx context.Context, token string, animeID int, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetAnimeVisibility", token)
}

func (f *fakeCatalog) SetAnimeRating(ctx context.Context, token string, animeID int, rating float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetAnimeRating", token)
}

func (f *fakeCatalog) SetEpisodeWatched(ctx context.Context, token string, animeID, ep int, watched bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SetEpisodeWatched", token)
}

// fakeMetadata serves anime items and episodes, optionally blocking episode
// fetches until release is closed
type fakeMetadata struct {
	mu       sync.Mutex
	items    map[int]domain.AnimeItem
	episodes map[int][]domain.Episode
	itemErr  error
	release  chan struct{}

	episodeCalls map[int]int
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		items:        map[int]domain.AnimeItem{},
		episodes:     map[int][]domain.Episode{},
		episodeCalls: map[int]int{},
	}
}

func (f *fakeMetadata) GetAnimeItem(ctx context.Context, animeID int) (domain.AnimeItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.itemErr != nil {
		return domain.AnimeItem{}, f.itemErr
	}
	item, ok := f.items[animeID]
	if !ok {
		return domain.AnimeItem{}, domain.ErrServer
	}
	return item, nil
}

func (f *fakeMetadata) GetEpisodes(ctx context.Context, animeID int) ([]domain.Episode, error) {
	f.mu.Lock()
	f.episodeCalls[animeID]++
	release := f.release
	eps := slices.Clone(f.episodes[animeID])
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return eps, nil
}

func (f *fakeMetadata) calls(animeID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.episodeCalls[animeID]
}

// staticCreds is a fixed credential
type staticCreds string

func (c staticCreds) Token() (string, bool) { return string(c), c != "" }

// recordingNotifier keeps every notice
type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
	errs    []bool
}

func (n *recordingNotifier) Notify(msg string, isErr bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, msg)
	n.errs = append(n.errs, isErr)
}

func (n *recordingNotifier) last() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return "", false
	}
	return n.notices[len(n.notices)-1], n.errs[len(n.errs)-1]
}

// recordingObserver keeps every phase transition
type recordingObserver struct {
	mu     sync.Mutex
	phases []domain.SyncPhase
}

func (o *recordingObserver) OnProgress(p domain.SyncProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, p.Phase)
}
