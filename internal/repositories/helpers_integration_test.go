//go:build integration

package repositories

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/loginhistory/internal/database"
)

// testDB manages a PostgreSQL testcontainer with migrations applied
type testDB struct {
	container testcontainers.Container
	pool      *pgxpool.Pool
	db        *database.DB
}

// setupTestDatabase starts PostgreSQL, runs migrations and registers cleanup
func setupTestDatabase(t *testing.T) *testDB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("loginhistory"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to create connection pool: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	tdb := &testDB{
		container: container,
		pool:      pool,
		db:        database.NewFromPool(pool, logger),
	}

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(context.Background())
	})

	return tdb
}

// cleanupTables truncates every table for test isolation
func (tdb *testDB) cleanupTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{"login_history_auth_log", "login_history_user_meta"} {
		_, err := tdb.pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", table))
		require.NoError(t, err)
	}
}
