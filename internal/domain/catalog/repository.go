package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// EntryStore persists materialized entries between replays.
type EntryStore interface {
	// Load returns the full database snapshot. A store with no data
	// yet returns an empty, usable Database.
	Load(ctx context.Context) (Database, error)

	// Get returns the entry with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Upsert writes the given entries, replacing any stored state for
	// the same IDs.
	Upsert(ctx context.Context, entries ...*Entry) error
}
