package core

import (
	"context"
	"fmt"

	"coffeeroaster/internal/config"
	"coffeeroaster/internal/infra/persistence/memory"
	"coffeeroaster/internal/infra/persistence/postgres"
	"coffeeroaster/internal/infra/persistence/sqlite"
	"coffeeroaster/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// Closer is implemented by durable stores holding a database handle.
type Closer interface {
	Close() error
}

// OpenPersistentStore selects a backend from the storage configuration. The
// environment overrides are applied by config.Load.
func OpenPersistentStore(ctx context.Context, cfg config.Storage, engine *RulesEngine) (PersistentStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// CloseStore releases database handles held by store, if any.
func CloseStore(store PersistentStore) error {
	if c, ok := store.(Closer); ok {
		return c.Close()
	}
	return nil
}
