// Package app builds the object graph: preferences, remote clients, entity
// store, session, tracker and view engine.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spiecc/animetrack/internal/adapter"
	"github.com/spiecc/animetrack/internal/adapter/remote"
	"github.com/spiecc/animetrack/internal/adapter/remote/bangumi"
	"github.com/spiecc/animetrack/internal/adapter/remote/catalog"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/prefs"
	"github.com/spiecc/animetrack/internal/session"
	"github.com/spiecc/animetrack/internal/store"
	"github.com/spiecc/animetrack/internal/tracker"
	"github.com/spiecc/animetrack/internal/views"
)

// App holds the wired components
type App struct {
	Prefs   *prefs.Store
	Store   *store.Store
	Session *session.Manager
	Tracker *tracker.Service
	Views   *views.Engine
	Browser *adapter.Browser

	logger *slog.Logger
}

type options struct {
	observer  domain.SyncObserver
	notifier  domain.Notifier
	onExpired func()
	catalog   domain.CatalogRepository
	metadata  domain.MetadataRepository
}

// Option configures New
type Option func(*options)

func WithObserver(o domain.SyncObserver) Option {
	return func(opts *options) { opts.observer = o }
}

func WithNotifier(n domain.Notifier) Option {
	return func(opts *options) { opts.notifier = n }
}

// WithOnExpired runs fn when a stored session token is rejected
func WithOnExpired(fn func()) Option {
	return func(opts *options) { opts.onExpired = fn }
}

// WithRepositories replaces the HTTP clients, e.g. with fakes in tests
func WithRepositories(c domain.CatalogRepository, m domain.MetadataRepository) Option {
	return func(opts *options) {
		opts.catalog = c
		opts.metadata = m
	}
}

// New wires the application from cfg. It does no network I/O; call
// Initialize afterwards.
func New(cfg *adapter.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := options{
		observer:  domain.NoOpObserver{},
		notifier:  domain.NoOpNotifier{},
		onExpired: func() {},
	}
	for _, opt := range opts {
		opt(&o)
	}

	p, err := prefs.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	if o.catalog == nil {
		t := remote.NewTransport(cfg.Catalog.URL, logger.With("service", "catalog"),
			remote.WithTimeout(cfg.HTTP.Timeout))
		o.catalog = catalog.NewClient(t, logger)
	}
	if o.metadata == nil {
		t := remote.NewTransport(cfg.Metadata.URL, logger.With("service", "bangumi"),
			remote.WithTimeout(cfg.HTTP.Timeout),
			remote.WithUserAgent(cfg.Metadata.UserAgent))
		o.metadata = bangumi.NewClient(t, logger)
	}

	st := store.New()
	sess := session.New(o.catalog, p, logger, session.WithOnExpired(o.onExpired))
	trk := tracker.New(o.catalog, o.metadata, sess, st, p, logger,
		tracker.WithObserver(o.observer),
		tracker.WithNotifier(o.notifier),
		tracker.WithWorkers(cfg.Sync.Workers),
	)

	return &App{
		Prefs:   p,
		Store:   st,
		Session: sess,
		Tracker: trk,
		Views:   views.NewEngine(st),
		Browser: adapter.NewBrowser(cfg.Browser, cfg.Metadata.WebURL, logger),
		logger:  logger,
	}, nil
}

// Initialize validates the stored session. domain.ErrAuthExpired means the
// stored token was cleared and the user must log in again.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.Session.Initialize(ctx); err != nil {
		return err
	}
	a.logger.Info("session initialized", "loggedIn", a.Session.IsLoggedIn())
	return nil
}

// Close releases the preferences database
func (a *App) Close() error {
	return a.Prefs.Close()
}
