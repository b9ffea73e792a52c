package catalog

import (
	"errors"
	"fmt"
	"strings"

	"media-catalog/internal/domain/events"
	"media-catalog/internal/platform/logger"
)

var (
	// ErrUnknownEventType means the log carries a type this build has
	// no mutation for. The header version gate should make that
	// impossible, so it is surfaced, never skipped.
	ErrUnknownEventType = errors.New("unknown event type")
)

// Mutator transforms an entry according to one event. Mutators are
// pure with respect to everything but the entry itself; a failing
// mutator is a defect and aborts the replay.
type Mutator func(*Entry, events.Event) error

// Applier replays ordered event sequences onto a database snapshot.
// Dispatch is a registry from event type to mutation, so new types
// get a table entry instead of another branch.
type Applier struct {
	mutators map[events.Type]Mutator
}

// NewApplier returns an applier with the built-in mutations installed.
func NewApplier() *Applier {
	a := &Applier{mutators: make(map[events.Type]Mutator)}
	a.Register(events.TypeAddTag, applyAddTag)
	a.Register(events.TypeRemoveTag, applyRemoveTag)
	a.Register(events.TypeRename, applyRename)
	a.Register(events.TypeDelete, applyDelete)
	a.Register(events.TypeRestore, applyRestore)
	a.Register(events.TypeSetRating, applySetRating)
	return a
}

// Register installs (or replaces) the mutation for an event type.
func (a *Applier) Register(t events.Type, fn Mutator) {
	a.mutators[t] = fn
}

// Apply replays evs, in the order given, against db. Each event is
// consumed at most once per entry: events whose ID is already in the
// target's AppliedEventIDs are no-ops, so replaying a merged log over
// a database that saw part of it is safe. Events targeting entries
// outside the snapshot are skipped.
//
// Every entry that was touched, even if only its bookkeeping moved,
// comes back in the changed set exactly once, with its Hash
// recomputed. Replay is single-threaded and runs to completion;
// callers bound it externally if they must.
func (a *Applier) Apply(db Database, evs []events.Event) ([]*Entry, error) {
	changed := make([]*Entry, 0)
	collected := make(map[string]struct{})

	for _, ev := range evs {
		entry, ok := db[ev.TargetID]
		if !ok {
			logger.Debug().
				Str("event", ev.ID).
				Str("target", ev.TargetID).
				Msg("event targets entry outside snapshot, skipped")
			continue
		}
		if entry.HasApplied(ev.ID) {
			continue
		}

		fn, ok := a.mutators[ev.Type]
		if !ok {
			return nil, fmt.Errorf("apply event %s: %w: %q", ev.ID, ErrUnknownEventType, ev.Type)
		}
		if err := fn(entry, ev); err != nil {
			return nil, fmt.Errorf("apply event %s to entry %s: %w", ev.ID, ev.TargetID, err)
		}

		entry.AppliedEventIDs = append(entry.AppliedEventIDs, ev.ID)
		if ev.CreatedAt.After(entry.Updated) {
			entry.Updated = ev.CreatedAt
		}

		if _, dup := collected[entry.ID]; !dup {
			collected[entry.ID] = struct{}{}
			changed = append(changed, entry)
		}
	}

	for _, entry := range changed {
		h, err := ComputeHash(entry)
		if err != nil {
			return nil, err
		}
		entry.Hash = h
	}

	return changed, nil
}

func applyAddTag(e *Entry, ev events.Event) error {
	var p events.TagPayload
	if err := ev.DecodePayload(&p); err != nil {
		return fmt.Errorf("addTag payload: %w", err)
	}
	tag := strings.TrimSpace(p.Tag)
	if tag == "" {
		return fmt.Errorf("addTag payload: empty tag")
	}
	e.addTag(tag)
	return nil
}

func applyRemoveTag(e *Entry, ev events.Event) error {
	var p events.TagPayload
	if err := ev.DecodePayload(&p); err != nil {
		return fmt.Errorf("removeTag payload: %w", err)
	}
	tag := strings.TrimSpace(p.Tag)
	if tag == "" {
		return fmt.Errorf("removeTag payload: empty tag")
	}
	e.removeTag(tag)
	return nil
}

func applyRename(e *Entry, ev events.Event) error {
	var p events.RenamePayload
	if err := ev.DecodePayload(&p); err != nil {
		return fmt.Errorf("rename payload: %w", err)
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return fmt.Errorf("rename payload: empty title")
	}
	e.Title = title
	return nil
}

func applyDelete(e *Entry, _ events.Event) error {
	e.Deleted = true
	return nil
}

func applyRestore(e *Entry, _ events.Event) error {
	e.Deleted = false
	return nil
}

func applySetRating(e *Entry, ev events.Event) error {
	var p events.RatingPayload
	if err := ev.DecodePayload(&p); err != nil {
		return fmt.Errorf("setRating payload: %w", err)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("setRating payload: rating %d out of range", p.Rating)
	}
	e.Rating = p.Rating
	return nil
}
