package errors

import "errors"

// Sentinel errors shared across the dashboard client
var (
	// ErrNotAuthenticated indicates an operation needing credentials ran
	// without a signed-in session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEntryReclaimed indicates a cache entry was released while a
	// subscription was still waiting on it.
	ErrEntryReclaimed = errors.New("cache entry reclaimed")

	// ErrInternal indicates an invariant violation inside the client.
	ErrInternal = errors.New("internal error")
)
