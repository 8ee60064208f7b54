// Package sqlite provides the SQLite-backed catalog store built on the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cheeseshop/internal/entitymodel/sqlbundle"
	"cheeseshop/internal/infra/persistence/sqlstore"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	defaultPath = "cheeseshop.db"
	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

// Dialect describes SQLite to the shared SQL store.
var Dialect = sqlstore.Dialect{Name: "sqlite", DDL: sqlbundle.SQLite}

// Store is the SQLite catalog store.
type Store struct {
	*sqlstore.Store
	path string
}

// Open creates (if needed) and opens the database at path, enables foreign
// keys, and applies the catalog DDL. An empty path uses cheeseshop.db.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	s := &Store{Store: sqlstore.New(db, Dialect), path: path}
	if err := s.ApplySchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func dsn(path string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == MemoryPath {
		return "file::memory:?" + pragmas
	}
	if strings.Contains(path, "?") {
		return "file:" + path + "&" + pragmas
	}
	return "file:" + path + "?" + pragmas
}
