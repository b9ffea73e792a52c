package postgres

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"

	"media-catalog/internal/domain/catalog"
)

type EntriesRepo struct {
	db *sql.DB
}

func NewEntriesRepo(db *sql.DB) *EntriesRepo {
	return &EntriesRepo{db: db}
}

func (r *EntriesRepo) Load(ctx context.Context) (catalog.Database, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, title, rating, deleted, updated,
			tags, applied_event_ids, files, hash
		FROM entries
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	db := catalog.Database{}
	for rows.Next() {
		var (
			e                   catalog.Entry
			tags, applied, refs []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Rating,
			&e.Deleted,
			&e.Updated,
			&tags,
			&applied,
			&refs,
			&e.Hash,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(tags, &e.Tags); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(applied, &e.AppliedEventIDs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(refs, &e.Files); err != nil {
			return nil, err
		}

		entry := e
		db[entry.ID] = &entry
	}

	return db, rows.Err()
}

func (r *EntriesRepo) Get(ctx context.Context, id string) (*catalog.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, title, rating, deleted, updated,
			tags, applied_event_ids, files, hash
		FROM entries
		WHERE id = $1
	`, id)

	var (
		e                   catalog.Entry
		tags, applied, refs []byte
	)
	if err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Rating,
		&e.Deleted,
		&e.Updated,
		&tags,
		&applied,
		&refs,
		&e.Hash,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(tags, &e.Tags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(applied, &e.AppliedEventIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refs, &e.Files); err != nil {
		return nil, err
	}

	return &e, nil
}

func (r *EntriesRepo) Upsert(ctx context.Context, entries ...*catalog.Entry) error {
	for _, e := range entries {
		if e == nil || e.ID == "" {
			return ErrInvalidEntry
		}

		tags, err := jsonbArray(e.Tags)
		if err != nil {
			return err
		}
		applied, err := jsonbArray(e.AppliedEventIDs)
		if err != nil {
			return err
		}
		refs, err := jsonbArray(e.Files)
		if err != nil {
			return err
		}

		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO entries (
				id, title, rating, deleted, updated,
				tags, applied_event_ids, files, hash
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				rating = EXCLUDED.rating,
				deleted = EXCLUDED.deleted,
				updated = EXCLUDED.updated,
				tags = EXCLUDED.tags,
				applied_event_ids = EXCLUDED.applied_event_ids,
				files = EXCLUDED.files,
				hash = EXCLUDED.hash
		`,
			e.ID,
			e.Title,
			e.Rating,
			e.Deleted,
			e.Updated,
			tags,
			applied,
			refs,
			e.Hash,
		); err != nil {
			return err
		}
	}
	return nil
}

// jsonbArray encodes a slice for a JSONB column, mapping nil to the
// empty array so the column never holds SQL-visible null.
func jsonbArray(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return []byte("[]"), nil
	}
	return raw, nil
}
