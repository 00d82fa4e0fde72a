package marathon

import "errors"

var (
	// ErrMarathonActive indicates a marathon is already running; the
	// service holds at most one in-memory execution at a time.
	ErrMarathonActive = errors.New("a marathon is already active")

	// ErrNoActiveMarathon indicates pause/abort/approve was called with
	// nothing running.
	ErrNoActiveMarathon = errors.New("no active marathon")

	// ErrUnknownMarathon indicates the requested id was never persisted.
	ErrUnknownMarathon = errors.New("unknown marathon id")

	// ErrNotResumable indicates resume was called on a marathon that is
	// not in a suspended state.
	ErrNotResumable = errors.New("marathon is not paused")
)
