package file

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"media-catalog/internal/domain/events"
)

const defaultLockRetry = 50 * time.Millisecond

// logStore keeps each event log as one JSON document on disk. Reads
// take no lock: rename replacement means a reader always sees a
// complete log, at worst a slightly stale one.
type logStore struct {
	mu          sync.Mutex
	lockTimeout time.Duration
	lockRetry   time.Duration
}

// NewLogStore returns a file-backed log store. lockTimeout bounds how
// long a mutation waits for the sidecar lock; zero waits until the
// caller's context expires.
func NewLogStore(lockTimeout, lockRetry time.Duration) events.LogStore {
	if lockRetry <= 0 {
		lockRetry = defaultLockRetry
	}
	return &logStore{lockTimeout: lockTimeout, lockRetry: lockRetry}
}

func (s *logStore) Read(ctx context.Context, path string) (events.Log, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return events.Log{Header: events.DefaultHeader(), Events: []events.Event{}}, nil
	}
	if err != nil {
		return events.Log{}, fmt.Errorf("read event log %s: %w", path, err)
	}
	return decodeLog(path, raw)
}

func (s *logStore) Append(ctx context.Context, path string, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockPath(ctx, path, s.lockTimeout, s.lockRetry)
	if err != nil {
		return err
	}
	defer unlock()

	log, err := s.Read(ctx, path)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(log.Events))
	for _, ev := range log.Events {
		seen[ev.ID] = struct{}{}
	}

	appended := 0
	for _, ev := range evs {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		log.Events = append(log.Events, ev)
		appended++
	}
	if appended == 0 {
		return nil
	}

	return writeJSON(path, log)
}

func (s *logStore) Merge(ctx context.Context, path string, log events.Log) (events.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockPath(ctx, path, s.lockTimeout, s.lockRetry)
	if err != nil {
		return events.Log{}, err
	}
	defer unlock()

	current, err := s.Read(ctx, path)
	if err != nil {
		return events.Log{}, err
	}

	merged, err := events.Merge(current, log)
	if err != nil {
		return events.Log{}, err
	}
	// Merge unions by ID, so equal length means no new events.
	if len(merged.Events) == len(current.Events) && merged.Header == current.Header {
		return merged, nil
	}

	if err := writeJSON(path, merged); err != nil {
		return events.Log{}, err
	}
	return merged, nil
}

func (s *logStore) Write(ctx context.Context, path string, evs []events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockPath(ctx, path, s.lockTimeout, s.lockRetry)
	if err != nil {
		return err
	}
	defer unlock()

	log, err := s.Read(ctx, path)
	if err != nil {
		return err
	}

	if evs == nil {
		evs = []events.Event{}
	}
	log.Events = evs
	return writeJSON(path, log)
}

func (s *logStore) Remove(ctx context.Context, path string, ev events.Event) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	unlock, err := lockPath(ctx, path, s.lockTimeout, s.lockRetry)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	var removed *events.Event
	kept := make([]events.Event, 0, len(log.Events))
	for _, e := range log.Events {
		if removed == nil && e.ID == ev.ID {
			e := e // per-iteration copy: the go directive predates Go 1.22 loop scoping
			removed = &e
			continue
		}
		kept = append(kept, e)
	}
	if removed == nil {
		return nil, nil
	}

	log.Events = kept
	if err := writeJSON(path, log); err != nil {
		return nil, err
	}
	return removed, nil
}

func decodeLog(path string, raw []byte) (events.Log, error) {
	var log events.Log
	if err := json.Unmarshal(raw, &log); err != nil {
		return events.Log{}, fmt.Errorf("parse event log %s: %w: %v", path, events.ErrMalformedLog, err)
	}
	if log.Header.LogType == "" || log.Header.Version < 1 {
		return events.Log{}, fmt.Errorf("event log %s: %w: missing or invalid header", path, events.ErrMalformedLog)
	}
	if log.Events == nil {
		log.Events = []events.Event{}
	}
	return log, nil
}
