package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"media-catalog/internal/domain/events"
	"media-catalog/internal/platform/logger"
)

// Service ties the event log to the materialized catalog. Producers
// record changes through it, and Reconcile folds peer logs in and
// replays the union onto the stored entries.
type Service struct {
	logs    events.LogStore
	entries EntryStore
	applier *Applier
	rec     *events.Recorder

	// logPath is this producer's own log. Reads and merges may touch
	// other paths; appends from the mutation methods go here.
	logPath string
}

func NewService(logs events.LogStore, entries EntryStore, logPath, origin string) *Service {
	return &Service{
		logs:    logs,
		entries: entries,
		applier: NewApplier(),
		rec:     events.NewRecorder(origin),
		logPath: logPath,
	}
}

// WithClock fixes the recorder's clock. Tests use it to make event
// timestamps deterministic.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.rec = s.rec.WithClock(now)
	return s
}

// Tag records an addTag event for the target entry and appends it to
// this producer's log. The entry itself is untouched until the event
// is replayed.
func (s *Service) Tag(ctx context.Context, targetID, tag string) (events.Event, error) {
	ev, err := s.rec.AddTag(targetID, tag)
	if err != nil {
		return events.Event{}, err
	}
	return ev, s.logs.Append(ctx, s.logPath, ev)
}

func (s *Service) Untag(ctx context.Context, targetID, tag string) (events.Event, error) {
	ev, err := s.rec.RemoveTag(targetID, tag)
	if err != nil {
		return events.Event{}, err
	}
	return ev, s.logs.Append(ctx, s.logPath, ev)
}

func (s *Service) Rename(ctx context.Context, targetID, title string) (events.Event, error) {
	ev, err := s.rec.Rename(targetID, title)
	if err != nil {
		return events.Event{}, err
	}
	return ev, s.logs.Append(ctx, s.logPath, ev)
}

func (s *Service) Delete(ctx context.Context, targetID string) (events.Event, error) {
	ev, err := s.rec.Delete(targetID)
	if err != nil {
		return events.Event{}, err
	}
	return ev, s.logs.Append(ctx, s.logPath, ev)
}

func (s *Service) Restore(ctx context.Context, targetID string) (events.Event, error) {
	ev, err := s.rec.Restore(targetID)
	if err != nil {
		return events.Event{}, err
	}
	return ev, s.logs.Append(ctx, s.logPath, ev)
}

func (s *Service) Rate(ctx context.Context, targetID string, rating int) (events.Event, error) {
	ev, err := s.rec.SetRating(targetID, rating)
	if err != nil {
		return events.Event{}, err
	}
	return ev, s.logs.Append(ctx, s.logPath, ev)
}

// Entry looks up one materialized entry for display. Callers must not
// mutate it; the applier is the only writer.
func (s *Service) Entry(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.entries.Get(ctx, id)
}

func (s *Service) ReadEvents(ctx context.Context, path string) (events.Log, error) {
	return s.logs.Read(ctx, path)
}

// MergeEvents reads the logs at paths and folds them into one ordered
// log. Nothing is persisted; Reconcile is the pass that writes the
// union back.
func (s *Service) MergeEvents(ctx context.Context, paths ...string) (events.Log, error) {
	if len(paths) == 0 {
		return events.Log{Header: events.DefaultHeader(), Events: []events.Event{}}, nil
	}
	merged, err := s.logs.Read(ctx, paths[0])
	if err != nil {
		return events.Log{}, fmt.Errorf("read log %s: %w", paths[0], err)
	}
	for _, p := range paths[1:] {
		next, err := s.logs.Read(ctx, p)
		if err != nil {
			return events.Log{}, fmt.Errorf("read log %s: %w", p, err)
		}
		merged, err = events.Merge(merged, next)
		if err != nil {
			return events.Log{}, fmt.Errorf("merge log %s: %w", p, err)
		}
	}
	events.SortEvents(merged.Events)
	return merged, nil
}

func (s *Service) AppendEvents(ctx context.Context, path string, evs ...events.Event) error {
	return s.logs.Append(ctx, path, evs...)
}

func (s *Service) WriteEvents(ctx context.Context, path string, evs []events.Event) error {
	return s.logs.Write(ctx, path, evs)
}

// RemoveEvent retracts an event from the log at path before it has
// been widely replayed. It returns the removed event, or nil when the
// log never held it.
func (s *Service) RemoveEvent(ctx context.Context, path string, ev events.Event) (*events.Event, error) {
	return s.logs.Remove(ctx, path, ev)
}

// ApplyEvents replays evs onto db and persists every entry the replay
// touched. The returned slice holds those entries, hashes refreshed.
func (s *Service) ApplyEvents(ctx context.Context, db Database, evs []events.Event) ([]*Entry, error) {
	changed, err := s.applier.Apply(db, evs)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		if err := s.entries.Upsert(ctx, changed...); err != nil {
			return nil, err
		}
	}
	return changed, nil
}

// Reconcile merges the logs at peerPaths into this producer's log,
// replays the union over the stored entries and persists whatever
// changed. Running it again with the same inputs is a no-op: merge is
// idempotent and replay skips events an entry has already seen.
func (s *Service) Reconcile(ctx context.Context, peerPaths ...string) ([]*Entry, error) {
	local, err := s.logs.Read(ctx, s.logPath)
	if err != nil {
		return nil, err
	}

	merged := local
	for _, p := range peerPaths {
		peer, err := s.logs.Read(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("read peer log %s: %w", p, err)
		}
		merged, err = events.Merge(merged, peer)
		if err != nil {
			return nil, fmt.Errorf("merge peer log %s: %w", p, err)
		}
	}

	if len(merged.Events) != len(local.Events) || merged.Header != local.Header {
		// Fold under the store's lock: events appended since the read
		// above survive, and the merged header lands on disk.
		merged, err = s.logs.Merge(ctx, s.logPath, merged)
		if err != nil {
			return nil, err
		}
	}

	// With no peers Merge never ran, so impose replay order here.
	events.SortEvents(merged.Events)

	db, err := s.entries.Load(ctx)
	if err != nil {
		return nil, err
	}
	changed, err := s.applier.Apply(db, merged.Events)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		if err := s.entries.Upsert(ctx, changed...); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Int("peers", len(peerPaths)).
		Int("events", len(merged.Events)).
		Int("changed", len(changed)).
		Msg("catalog reconciled")

	return changed, nil
}
