package events

import (
	"context"
	"errors"
)

var (
	// ErrMalformedLog marks a log file that exists but cannot be
	// trusted: unparseable content or a missing/invalid header.
	// Callers must not proceed with partial data.
	ErrMalformedLog = errors.New("malformed event log")
)

// LogStore persists event logs, one document per path. Implementations
// must write atomically: a reader observes either the previous or the
// new complete document, never a mix, and a failed write leaves the
// prior document intact.
type LogStore interface {
	// Read loads the log at path. A missing file is an empty log with
	// a default header, not an error.
	Read(ctx context.Context, path string) (Log, error)

	// Append adds events to the log at path in arrival order,
	// creating the log if needed. Events whose ID is already present
	// are skipped so the no-duplicate invariant holds.
	Append(ctx context.Context, path string, evs ...Event) error

	// Merge folds log into the document at path. The union is taken
	// against the current content under the write lock, so events
	// appended by other writers survive. The merged log, header
	// included, is persisted when anything changed and returned
	// either way.
	Merge(ctx context.Context, path string, log Log) (Log, error)

	// Write replaces the full event sequence, preserving the existing
	// header (or the default header for a new file).
	Write(ctx context.Context, path string, evs []Event) error

	// Remove deletes the event matching ev.ID and returns the removed
	// record. A missing file or unknown ID is not an error: the result
	// is nil and the file is left untouched.
	Remove(ctx context.Context, path string, ev Event) (*Event, error)
}
