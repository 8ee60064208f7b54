package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"cheeseshop/internal/infra/persistence/storetest"
	"cheeseshop/pkg/domain"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) domain.PersistentStore { return openMemory(t) })
}

func TestForeignKeysEnforced(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	_, err := store.DB().ExecContext(ctx,
		`INSERT INTO cheeses (producer_id, kind, is_raw_milk, production_date, price) VALUES (99, 'Ghost', 0, '2020-01-01', 5.0)`)
	if err == nil {
		t.Fatalf("expected foreign key violation for dangling producer_id")
	}
}

func TestSchemaCascadesOnRawDelete(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	producer := storetest.SeedProducer(t, store, "Raw SQL Dairy")
	storetest.SeedCheese(t, store, producer.ID, "Brie")
	storetest.SeedCheese(t, store, producer.ID, "Munster")

	if _, err := store.DB().ExecContext(ctx, `DELETE FROM producers WHERE id = ?`, producer.ID); err != nil {
		t.Fatalf("raw delete: %v", err)
	}
	var count int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM cheeses`).Scan(&count); err != nil {
		t.Fatalf("count cheeses: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected schema cascade to remove cheeses, %d left", count)
	}
}

func TestCheckConstraintsBackstopDomainRules(t *testing.T) {
	store := openMemory(t)
	_, err := store.DB().ExecContext(context.Background(),
		`INSERT INTO producers (name, founding_year, operation_size) VALUES ('Old', 1850, 'small')`)
	if err == nil {
		t.Fatalf("expected founding_year check constraint to reject 1850")
	}
}

func TestOpenFilePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	producer := storetest.SeedProducer(t, store, "Durable Dairy")
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if err := reopened.View(ctx, func(v domain.TransactionView) error {
		got, err := v.FindProducer(producer.ID)
		if err != nil {
			return err
		}
		if got.Name != "Durable Dairy" {
			t.Fatalf("unexpected producer %+v", got)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestDSN(t *testing.T) {
	cases := map[string]string{
		MemoryPath:             "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"data/app.db":          "file:data/app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"data/app.db?mode=rwc": "file:data/app.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}
	for in, want := range cases {
		if got := dsn(in); got != want {
			t.Fatalf("dsn(%q) = %q, want %q", in, got, want)
		}
	}
}
