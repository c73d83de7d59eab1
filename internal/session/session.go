// Package session owns login state and the current catalog credential.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spiecc/animetrack/internal/domain"
)

// LoginResult is the outcome of a login attempt
type LoginResult int

const (
	LoginSuccess LoginResult = iota
	LoginInvalid
	LoginError
)

func (r LoginResult) String() string {
	switch r {
	case LoginSuccess:
		return "success"
	case LoginInvalid:
		return "invalid"
	default:
		return "error"
	}
}

// InitState distinguishes "not yet initialized" from "initialization failed"
type InitState int

const (
	NotInitialized InitState = iota
	Ready
	Failed
)

// Manager holds the session. Create it with New, then call Initialize once.
type Manager struct {
	catalog domain.CatalogRepository
	prefs   domain.Preferences
	logger  *slog.Logger

	// onExpired runs after a stored token is rejected; the caller restarts
	// from a clean, logged-out state.
	onExpired func()

	mu       sync.RWMutex
	token    string
	loggedIn bool
	state    InitState
	initErr  error
}

var _ domain.Credentials = (*Manager)(nil)

// Option configures a Manager
type Option func(*Manager)

// WithOnExpired sets the hook run when the stored token is rejected
func WithOnExpired(fn func()) Option {
	return func(m *Manager) { m.onExpired = fn }
}

// New creates a session manager. It does no I/O.
func New(catalog domain.CatalogRepository, prefs domain.Preferences, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{catalog: catalog, prefs: prefs, logger: logger, onExpired: func() {}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize validates the persisted token, if any. With no stored token the
// session is ready and logged out. A rejected token returns domain.ErrAuthExpired.
func (m *Manager) Initialize(ctx context.Context) error {
	token, ok := m.prefs.Token()
	if !ok {
		m.finishInit(nil)
		m.logger.Debug("no stored session token")
		return nil
	}

	err := m.Validate(ctx, token)
	m.finishInit(err)
	return err
}

func (m *Manager) finishInit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
	if err != nil {
		m.state = Failed
	} else {
		m.state = Ready
	}
}

// State reports initialization progress and, when Failed, its error
func (m *Manager) State() (InitState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.initErr
}

// Login exchanges a one-time code for a token. The token is persisted and
// becomes the current credential on success. A 401 is LoginInvalid, any other
// failure LoginError.
func (m *Manager) Login(ctx context.Context, code string) (LoginResult, error) {
	token, err := m.catalog.Login(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			m.logger.Info("login rejected")
			return LoginInvalid, domain.ErrAuthInvalid
		}
		m.logger.Error("login failed", "error", err)
		return LoginError, err
	}

	if err := m.prefs.SaveToken(token); err != nil {
		m.logger.Error("failed to persist session token", "error", err)
	}

	m.adopt(token)
	m.logger.Info("logged in")
	return LoginSuccess, nil
}

// Validate confirms candidate against the server and adopts it. On failure the
// persisted token is cleared, the session logged out and the expiry hook run;
// no partially authenticated state is kept.
func (m *Manager) Validate(ctx context.Context, candidate string) error {
	if err := m.catalog.Validate(ctx, candidate); err != nil {
		m.logger.Warn("stored session token rejected", "error", err)
		if lerr := m.Logout(); lerr != nil {
			m.logger.Error("failed to clear session", "error", lerr)
		}
		m.onExpired()
		return fmt.Errorf("%w: %v", domain.ErrAuthExpired, err)
	}

	m.adopt(candidate)
	m.logger.Debug("session token validated")
	return nil
}

// Logout clears the credential, the logged-in flag and the persisted token
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.token = ""
	m.loggedIn = false
	m.mu.Unlock()
	return m.prefs.ClearToken()
}

func (m *Manager) adopt(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.loggedIn = true
}

// Token returns the credential current at call time
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.loggedIn
}

func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loggedIn
}
