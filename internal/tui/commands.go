package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/tracker"
)

// Command factories for async operations

const actionTimeout = 30 * time.Second

// FetchAllCmd runs a full fetch cycle; progress arrives via the observer channel
func FetchAllCmd(svc *tracker.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := svc.FetchAll(ctx); err != nil {
			return ErrMsg{Err: err, Context: "loading watch lists"}
		}
		return nil
	}
}

// LoadEpisodesCmd makes sure the episodes of animeID are cached
func LoadEpisodesCmd(svc *tracker.Service, animeID int, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		var err error
		if refresh {
			_, err = svc.RefreshEpisodes(ctx, animeID)
		} else {
			_, err = svc.FetchEpisodes(ctx, animeID)
		}
		return EpisodesLoadedMsg{AnimeID: animeID, Err: err}
	}
}

// ActionCmd runs a tracker write action off the UI goroutine
func ActionCmd(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionDoneMsg{Action: action, Err: fn(ctx)}
	}
}

// WaitForProgressCmd blocks until the next sync progress event
func WaitForProgressCmd(ch <-chan domain.SyncProgress) tea.Cmd {
	return func() tea.Msg {
		return SyncProgressMsg(<-ch)
	}
}

// WaitForStoreCmd blocks until the store reaches a new version
func WaitForStoreCmd(ch <-chan uint64) tea.Cmd {
	return func() tea.Msg {
		return StoreChangedMsg{Version: <-ch}
	}
}

// WaitForNoticeCmd blocks until the next user-facing notice
func WaitForNoticeCmd(ch <-chan Notice) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg(<-ch)
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
