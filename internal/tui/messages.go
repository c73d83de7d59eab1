package tui

import "github.com/spiecc/animetrack/internal/domain"

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SyncProgressMsg carries a phase transition of a full fetch
type SyncProgressMsg domain.SyncProgress

// StoreChangedMsg signals that the entity store reached a new version
type StoreChangedMsg struct {
	Version uint64
}

// NoticeMsg carries a user-facing message from a write action
type NoticeMsg Notice

// ActionDoneMsg signals that a write action finished
type ActionDoneMsg struct {
	Action string
	Err    error
}

// EpisodesLoadedMsg signals that an anime's episodes are cached
type EpisodesLoadedMsg struct {
	AnimeID int
	Err     error
}

// LoggedOutMsg signals that the session was cleared
type LoggedOutMsg struct{}

// TickMsg is sent periodically so calendar-based views roll over at midnight
type TickMsg struct{}

// ClearStatusMsg clears the status line
type ClearStatusMsg struct{}
