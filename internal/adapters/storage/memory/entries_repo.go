package memory

import (
	"context"
	"errors"
	"sync"

	"media-catalog/internal/domain/catalog"
)

type entryStore struct {
	mu   sync.RWMutex
	byID map[string]*catalog.Entry
}

func NewEntryStore() catalog.EntryStore {
	return &entryStore{
		byID: make(map[string]*catalog.Entry),
	}
}

// Load hands out clones so callers can replay onto the snapshot
// without racing the store.
func (s *entryStore) Load(ctx context.Context) (catalog.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db := make(catalog.Database, len(s.byID))
	for id, e := range s.byID {
		db[id] = e.Clone()
	}
	return db, nil
}

func (s *entryStore) Get(ctx context.Context, id string) (*catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *entryStore) Upsert(ctx context.Context, entries ...*catalog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if e == nil || e.ID == "" {
			return errors.New("entry id required")
		}
		s.byID[e.ID] = e.Clone()
	}
	return nil
}
