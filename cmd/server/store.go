package main

import (
	"context"
	"fmt"

	"tipjar/internal/ledger/ports"
	"tipjar/internal/ledger/store/memory"
	"tipjar/internal/ledger/store/sqlstore"
	"tipjar/internal/platform/config"
)

func openStore(ctx context.Context, cfg config.StoreConfig) (ports.Store, error) {
	switch cfg.Backend {
	case config.StorePostgres:
		store, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.StoreSQLite:
		store, err := sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
