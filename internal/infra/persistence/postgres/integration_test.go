//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cheeseshop/internal/infra/persistence/storetest"
	"cheeseshop/pkg/domain"
)

// startPostgres boots a disposable Postgres container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "cheese",
			"POSTGRES_PASSWORD": "cheese",
			"POSTGRES_DB":       "cheeseshop",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://cheese:cheese@%s:%s/cheeseshop?sslmode=disable", host, port.Port())
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	storetest.RunContract(t, func(t *testing.T) domain.PersistentStore {
		store, err := Open(ctx, dsn)
		require.NoError(t, err)
		_, err = store.DB().ExecContext(ctx, `TRUNCATE TABLE cheeses, producers RESTART IDENTITY`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
