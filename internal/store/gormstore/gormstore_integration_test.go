//go:build integration

package gormstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/example/farmfresh/internal/store"
	"github.com/example/farmfresh/internal/store/storetest"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("farmfresh_test"),
		postgres.WithUsername("farmfresh"),
		postgres.WithPassword("farmfresh"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestContract(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) store.UserStore {
		s, err := Open(ctx, dsn, "silent")
		require.NoError(t, err)
		require.NoError(t, s.db.Exec("TRUNCATE TABLE users").Error)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenCreatesMissingDatabase(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	other := strings.Replace(dsn, "/farmfresh_test?", "/farmfresh_other?", 1)
	s, err := Open(ctx, other, "silent")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
}
