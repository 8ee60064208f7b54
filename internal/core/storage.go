package core

import (
	"context"
	"fmt"

	"cheeseshop/internal/infra/persistence/memory"
	"cheeseshop/internal/infra/persistence/postgres"
	"cheeseshop/internal/infra/persistence/sqlite"
	"cheeseshop/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and parameterises a backend.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore opens the configured backend. An empty driver means
// sqlite.
func OpenPersistentStore(ctx context.Context, opts StorageOptions) (domain.PersistentStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.Open(ctx, opts.SQLitePath)
	case StoragePostgres:
		return postgres.Open(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
