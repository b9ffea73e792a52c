package events

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleHeader marks an attempt to merge logs whose
	// headers disagree on type or version range. Merging them could
	// corrupt entries, so this is never absorbed.
	ErrIncompatibleHeader = errors.New("incompatible log header")
)

// Merge unions two compatible logs into one deduplicated log in the
// canonical (CreatedAt, ID) order. Events present in both inputs
// collapse to a single copy, so Merge is idempotent and commutative:
// however many producers contributed, and in whatever order their logs
// are folded in, the result is identical.
//
// The result header keeps the shared log type at the higher of the two
// versions; merging never downgrades a log.
func Merge(a, b Log) (Log, error) {
	if !Compatible(a.Header, b.Header) {
		return Log{}, fmt.Errorf("merge %s v%d with %s v%d: %w",
			a.Header.LogType, a.Header.Version,
			b.Header.LogType, b.Header.Version,
			ErrIncompatibleHeader)
	}

	seen := make(map[string]struct{}, len(a.Events)+len(b.Events))
	merged := make([]Event, 0, len(a.Events)+len(b.Events))
	for _, ev := range a.Events {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		merged = append(merged, ev)
	}
	for _, ev := range b.Events {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		merged = append(merged, ev)
	}
	SortEvents(merged)

	return Log{
		Header: NewHeader(a.Header.LogType, max(a.Header.Version, b.Header.Version)),
		Events: merged,
	}, nil
}
