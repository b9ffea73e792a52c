package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"media-catalog/internal/domain/catalog"
)

const catalogDocVersion = 1

// catalogDocument is the on-disk shape of a materialized catalog.
type catalogDocument struct {
	Version int              `json:"version"`
	Entries []*catalog.Entry `json:"entries"`
}

type catalogStore struct {
	mu          sync.Mutex
	path        string
	lockTimeout time.Duration
	lockRetry   time.Duration
}

func NewCatalogStore(path string, lockTimeout, lockRetry time.Duration) catalog.EntryStore {
	if lockRetry <= 0 {
		lockRetry = defaultLockRetry
	}
	return &catalogStore{path: path, lockTimeout: lockTimeout, lockRetry: lockRetry}
}

func (s *catalogStore) Load(ctx context.Context) (catalog.Database, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return catalog.Database{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", s.path, err)
	}

	db := make(catalog.Database, len(doc.Entries))
	for _, e := range doc.Entries {
		if e == nil || e.ID == "" {
			continue
		}
		db[e.ID] = e
	}
	return db, nil
}

func (s *catalogStore) Get(ctx context.Context, id string) (*catalog.Entry, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := db[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return e, nil
}

func (s *catalogStore) Upsert(ctx context.Context, entries ...*catalog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || e.ID == "" {
			return fmt.Errorf("upsert catalog %s: entry id required", s.path)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockPath(ctx, s.path, s.lockTimeout, s.lockRetry)
	if err != nil {
		return err
	}
	defer unlock()

	db, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		db[e.ID] = e
	}

	doc := catalogDocument{
		Version: catalogDocVersion,
		Entries: make([]*catalog.Entry, 0, len(db)),
	}
	for _, e := range db {
		doc.Entries = append(doc.Entries, e)
	}
	sort.Slice(doc.Entries, func(i, j int) bool {
		return doc.Entries[i].ID < doc.Entries[j].ID
	})

	return writeJSON(s.path, doc)
}
