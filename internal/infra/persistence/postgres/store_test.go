package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"cheeseshop/internal/infra/persistence/postgres/testutil"
	"cheeseshop/internal/infra/persistence/storetest"
	"cheeseshop/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func TestOpenAppliesDDL(t *testing.T) {
	_, conn := openStub(t)
	var tables int
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			tables++
		}
	}
	if tables != 2 {
		t.Fatalf("expected producers and cheeses DDL, got execs: %v", conn.Execs)
	}
}

func TestStoreContractAgainstStub(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) domain.PersistentStore {
		store, _ := openStub(t)
		return store
	})
}

func TestQueriesUseNumberedPlaceholders(t *testing.T) {
	store, conn := openStub(t)
	storetest.SeedProducer(t, store, "Placeholder Farm")
	last := conn.Execs[len(conn.Execs)-1]
	if !strings.Contains(last, "$5") || strings.Contains(last, "?") {
		t.Fatalf("expected numbered placeholders, got %q", last)
	}
}

func TestOpenPingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := Open(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial refused") })
	defer restore()
	if _, err := Open(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestOpenDDLFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := Open(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "execute ddl") {
		t.Fatalf("expected ddl error, got %v", err)
	}
}

func TestCommitFailureSurfaces(t *testing.T) {
	store, conn := openStub(t)
	conn.FailCommit = true
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProducer(domain.Producer{Name: "Never", FoundingYear: 1950, OperationSize: domain.SizeSmall})
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit error, got %v", err)
	}
	conn.FailCommit = false
	if err := store.View(context.Background(), func(v domain.TransactionView) error {
		producers, err := v.ListProducers()
		if err != nil {
			return err
		}
		if len(producers) != 0 {
			t.Fatalf("expected failed commit to leave no producers, got %d", len(producers))
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
