package domain

// SyncPhase is the state of a top-level fetch
type SyncPhase int

const (
	PhaseIdle SyncPhase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
)

func (p SyncPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SyncProgress reports a phase transition of a top-level fetch.
type SyncProgress struct {
	Phase SyncPhase
	Lists int   // watch lists held after the fetch
	Error error // set when Phase == PhaseFailed
}

// SyncObserver receives progress updates during sync operations.
type SyncObserver interface {
	OnProgress(progress SyncProgress)
}

// NoOpObserver discards progress updates (for testing/batch operations).
type NoOpObserver struct{}

func (NoOpObserver) OnProgress(SyncProgress) {}

// Notifier surfaces short user-facing messages for write actions.
type Notifier interface {
	Notify(msg string, isErr bool)
}

// NoOpNotifier discards notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(string, bool) {}
