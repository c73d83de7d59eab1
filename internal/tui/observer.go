package tui

import "github.com/spiecc/animetrack/internal/domain"

// ChannelObserver adapts domain.SyncObserver to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan<- domain.SyncProgress
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan<- domain.SyncProgress) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnProgress sends progress to the channel (non-blocking if full).
func (o *ChannelObserver) OnProgress(progress domain.SyncProgress) {
	select {
	case o.ch <- progress:
	default:
	}
}

// Notice is one user-facing message from a write action
type Notice struct {
	Text  string
	IsErr bool
}

// ChannelNotifier adapts domain.Notifier to a channel.
type ChannelNotifier struct {
	ch chan<- Notice
}

func NewChannelNotifier(ch chan<- Notice) *ChannelNotifier {
	return &ChannelNotifier{ch: ch}
}

// Notify drops the message if the channel is full.
func (n *ChannelNotifier) Notify(msg string, isErr bool) {
	select {
	case n.ch <- Notice{Text: msg, IsErr: isErr}:
	default:
	}
}

// StoreWatcher returns a store subscriber that forwards versions to ch.
// Bursts collapse into one pending version when ch has capacity 1.
func StoreWatcher(ch chan uint64) func(version uint64) {
	return func(version uint64) {
		select {
		case ch <- version:
		default:
			// Replace the stale pending version
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- version:
			default:
			}
		}
	}
}
