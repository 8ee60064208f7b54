// Package postgres provides the Postgres-backed catalog store, applying the
// catalog DDL bundle on startup.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"cheeseshop/internal/entitymodel/sqlbundle"
	"cheeseshop/internal/infra/persistence/sqlstore"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/cheeseshop?sslmode=disable"
)

// Dialect describes Postgres to the shared SQL store.
var Dialect = sqlstore.Dialect{Name: "postgres", DDL: sqlbundle.Postgres, Numbered: true}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is the Postgres catalog store.
type Store struct {
	*sqlstore.Store
}

// Open connects using dsn (falls back to defaultDSN), pings the server and
// applies the catalog DDL.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{Store: sqlstore.New(db, Dialect)}
	if err := s.ApplySchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
