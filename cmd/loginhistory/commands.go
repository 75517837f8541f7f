package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/BradenHooton/loginhistory/internal/auth"
	"github.com/BradenHooton/loginhistory/internal/config"
	"github.com/BradenHooton/loginhistory/internal/database"
	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/repositories"
	"github.com/BradenHooton/loginhistory/internal/services"
	pkgauth "github.com/BradenHooton/loginhistory/pkg/auth"
)

func openDatabase(ctx context.Context, logger *slog.Logger) (*database.DB, error) {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to load database configuration: %w", err)
	}
	return database.NewConnection(ctx, dbCfg, logger)
}

func migrate(c *cli.Context) error {
	logger := newLogger()

	db, err := openDatabase(c.Context, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Migrate(c.Context)
}

func sweep(c *cli.Context) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewConnection(c.Context, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	retention := services.NewRetentionService(
		repositories.NewAuthLogRepository(db),
		repositories.NewSettingsRepository(db),
		newAlertNotifier(c.Context, cfg, logger),
		logger,
		cfg.Retention.HardMaxAgeDays,
	)

	result, err := retention.Run(c.Context)
	if err != nil {
		return err
	}

	if result.Skipped {
		fmt.Println("retention disabled, nothing deleted")
		return nil
	}
	fmt.Printf("deleted %d entries older than %s\n", result.Deleted, time.Unix(result.Cutoff, 0).UTC().Format(time.RFC3339))
	return nil
}

func uninstall(c *cli.Context) error {
	if !c.Bool(confirmFlag.Name) {
		return errors.New("uninstall drops all login history; re-run with --yes to confirm")
	}

	logger := newLogger()

	db, err := openDatabase(c.Context, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Teardown(c.Context)
}

func mintToken(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	expiry := cfg.Auth.AccessTokenExpiry
	if d := c.Duration(tokenExpiryFlag.Name); d > 0 {
		expiry = d
	}

	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, expiry)
	token, err := tm.GenerateAccessTokenWithExpiry(c.String(tokenUserFlag.Name), c.String(tokenUsernameFlag.Name), models.RoleAdmin, expiry)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// hashHookSecret prints the hash for the given secret. Without an argument it generates
// a secret first and prints it above the hash.
func hashHookSecret(c *cli.Context) error {
	secret := c.Args().First()
	if secret == "" {
		generated, err := pkgauth.GenerateSecret()
		if err != nil {
			return err
		}
		secret = generated
		fmt.Println("HOOK_SECRET=" + secret)
	}

	hash, err := auth.HashHookSecret(secret)
	if err != nil {
		return err
	}

	fmt.Println("HOOK_SECRET_HASH=" + hash)
	return nil
}
