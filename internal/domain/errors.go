package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrAuthInvalid indicates the one-time login code was rejected
	ErrAuthInvalid = errors.New("login code is invalid")

	// ErrAuthExpired indicates the stored session token was rejected by the catalog service
	ErrAuthExpired = errors.New("session token has expired")

	// ErrUnauthorized is returned by remote clients when the server answers 401
	ErrUnauthorized = errors.New("request is not authorized")

	// ErrServer indicates a generic failure from either remote service
	ErrServer = errors.New("remote service error")

	// ErrServerOffline indicates a remote service is unreachable
	ErrServerOffline = fmt.Errorf("%w: service is unreachable", ErrServer)

	// ErrNotLoggedIn indicates an authenticated call was attempted without a session
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrAnimeStateMissing indicates an operation referenced an anime that isn't loaded
	ErrAnimeStateMissing = errors.New("anime state not loaded")

	// ErrWatchListNotFound indicates the named watch list isn't loaded
	ErrWatchListNotFound = errors.New("watch list not found")
)

// AddStep identifies a step of the add-anime-to-watch-list chain
type AddStep int

const (
	StepFetchMetadata AddStep = iota
	StepInsertItem
	StepAttachToList
	StepFetchState
)

func (s AddStep) String() string {
	switch s {
	case StepFetchMetadata:
		return "fetch metadata"
	case StepInsertItem:
		return "insert anime item"
	case StepAttachToList:
		return "attach to watch list"
	case StepFetchState:
		return "fetch anime state"
	default:
		return "unknown"
	}
}

// AddAnimeError reports which step of adding an anime to a watch list failed
type AddAnimeError struct {
	Step    AddStep
	AnimeID int
	List    string
	Err     error
}

func (e *AddAnimeError) Error() string {
	return fmt.Sprintf("add anime %d to %q: %s: %v", e.AnimeID, e.List, e.Step, e.Err)
}

func (e *AddAnimeError) Unwrap() error { return e.Err }

// Message returns a short user-facing description of the failure
func (e *AddAnimeError) Message() string {
	switch e.Step {
	case StepFetchMetadata:
		return "Failed to get anime info from bangumi"
	case StepInsertItem:
		return "Failed to add anime to database"
	case StepAttachToList:
		return "Failed to add anime to watch list"
	default:
		return "Anime added, but its state could not be loaded"
	}
}
