package core

import (
	"context"
	"path/filepath"
	"testing"

	"cheeseshop/internal/infra/persistence/memory"
	"cheeseshop/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := OpenPersistentStore(context.Background(), StorageOptions{SQLitePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	if s.Path() != path {
		t.Fatalf("expected path %s, got %s", path, s.Path())
	}
}

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), StorageOptions{Driver: StorageMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenPersistentStore(context.Background(), StorageOptions{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
