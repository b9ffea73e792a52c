// Package mediacatalog assembles the catalog service from
// configuration. It is the embedding surface of the module:
//
//	cfg, err := config.Load()
//	...
//	svc, closeFn, err := mediacatalog.Open(ctx, cfg)
//	defer closeFn()
//	changed, err := svc.Reconcile(ctx, cfg.Data.PeerLogPaths()...)
package mediacatalog

import (
	"context"
	"fmt"

	"media-catalog/internal/adapters/storage/file"
	"media-catalog/internal/adapters/storage/memory"
	"media-catalog/internal/adapters/storage/postgres"
	"media-catalog/internal/config"
	"media-catalog/internal/domain/catalog"
	"media-catalog/internal/platform/logger"
)

// Open wires a catalog service for the configured store backend and
// returns it with a close func for whatever the backend holds open.
func Open(ctx context.Context, cfg *config.Config) (*catalog.Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		App:    "media-catalog",
	})

	logs := file.NewLogStore(cfg.Lock.Timeout, cfg.Lock.RetryInterval)

	var (
		entries catalog.EntryStore
		closeFn = func() error { return nil }
	)
	switch cfg.Store.Backend {
	case config.BackendMemory:
		entries = memory.NewEntryStore()
	case config.BackendFile:
		entries = file.NewCatalogStore(cfg.Data.CatalogPath(), cfg.Lock.Timeout, cfg.Lock.RetryInterval)
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		entries = postgres.NewEntriesRepo(db)
		closeFn = db.Close
	}

	svc := catalog.NewService(logs, entries, cfg.Data.EventLogPath(), cfg.Data.Origin)

	logger.Info().
		Str("backend", cfg.Store.Backend).
		Str("eventLog", cfg.Data.EventLogPath()).
		Str("origin", cfg.Data.Origin).
		Msg("catalog opened")

	return svc, closeFn, nil
}
