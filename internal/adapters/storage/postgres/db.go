package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrInvalidEntry = errors.New("invalid entry")
)

// Open returns a pooled Postgres connection via pgx's database/sql
// driver, verified with a short ping.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the entries table when it does not exist yet.
// Tags, applied event IDs and file refs live in JSONB columns; the
// replay engine owns their shape.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entries (
			id                TEXT PRIMARY KEY,
			title             TEXT NOT NULL DEFAULT '',
			rating            INT NOT NULL DEFAULT 0,
			deleted           BOOLEAN NOT NULL DEFAULT FALSE,
			updated           TIMESTAMPTZ NOT NULL,
			tags              JSONB NOT NULL DEFAULT '[]',
			applied_event_ids JSONB NOT NULL DEFAULT '[]',
			files             JSONB NOT NULL DEFAULT '[]',
			hash              TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}
