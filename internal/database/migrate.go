package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Tables owned by this service, in drop order
var ownedTables = []string{
	"login_history_user_meta",
	"login_history_settings",
	"login_history_auth_log",
}

// Migrate runs all pending migrations against pool
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	provider, closeDB, err := newMigrationProvider(pool)
	if err != nil {
		return err
	}
	defer closeDB()

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied", slog.Int64("version", r.Source.Version), slog.Duration("duration", r.Duration))
	}
	return nil
}

// Teardown rolls back every migration and drops anything left behind. It removes the
// auth log, the settings, and every user's last-login marker.
func Teardown(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	provider, closeDB, err := newMigrationProvider(pool)
	if err != nil {
		return err
	}
	defer closeDB()

	if _, err := provider.DownTo(ctx, 0); err != nil {
		logger.Warn("migration rollback failed, dropping tables directly", "error", err)
	}

	for _, table := range ownedTables {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS goose_db_version"); err != nil {
		return fmt.Errorf("dropping goose_db_version: %w", err)
	}

	logger.Info("login history data removed")
	return nil
}

// goose needs a database/sql handle; the pgx stdlib adapter shares the pool's config
func newMigrationProvider(pool *pgxpool.Pool) (*goose.Provider, func(), error) {
	migrationsFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrationsFS,
		goose.WithVerbose(false),
	)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("creating migration provider: %w", err)
	}
	return provider, func() { sqlDB.Close() }, nil
}
