package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v2"

	"github.com/BradenHooton/loginhistory/internal/auth"
	"github.com/BradenHooton/loginhistory/internal/background"
	"github.com/BradenHooton/loginhistory/internal/config"
	"github.com/BradenHooton/loginhistory/internal/database"
	"github.com/BradenHooton/loginhistory/internal/device"
	"github.com/BradenHooton/loginhistory/internal/geo"
	"github.com/BradenHooton/loginhistory/internal/handlers"
	middlewareCustom "github.com/BradenHooton/loginhistory/internal/middleware"
	"github.com/BradenHooton/loginhistory/internal/repositories"
	"github.com/BradenHooton/loginhistory/internal/routes"
	"github.com/BradenHooton/loginhistory/internal/services"
	pkglogger "github.com/BradenHooton/loginhistory/pkg/logger"
)

func serve(c *cli.Context) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	// Repositories
	authLogRepo := repositories.NewAuthLogRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	userMetaRepo := repositories.NewUserMetaRepository(db)

	// Enrichment
	provider, closeProvider, err := newGeoProvider(cfg.Geo, logger)
	if err != nil {
		return err
	}
	defer closeProvider()
	resolver := geo.NewResolver(authLogRepo, provider, cfg.Geo.Timeout, logger)

	// Services
	notifier := newAlertNotifier(ctx, cfg, logger)
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)

	retentionService := services.NewRetentionService(authLogRepo, settingsRepo, notifier, logger, cfg.Retention.HardMaxAgeDays)
	recorderService := services.NewRecorderService(
		authLogRepo,
		userMetaRepo,
		resolver,
		device.NewClassifier(),
		retentionService,
		notifier,
		logger,
		auditLogger,
	)
	authLogService := services.NewAuthLogService(authLogRepo, userMetaRepo, logger, cfg.Table.DefaultPerPage, time.UTC)
	lastLoginService := services.NewLastLoginService(userMetaRepo, routes.HistoryPath, time.UTC, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenExpiry)

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	routes.RegisterRoutes(router, routes.Handlers{
		Hooks:     handlers.NewHookHandler(recorderService, logger),
		AuthLog:   handlers.NewAuthLogHandler(authLogService, auditLogger, logger),
		Settings:  handlers.NewSettingsHandler(retentionService, auditLogger, logger),
		LastLogin: handlers.NewLastLoginHandler(lastLoginService, logger),
		Health:    handlers.NewHealthHandler(db, logger),
	}, tokenManager, routes.HookConfig{
		SecretHash: cfg.Auth.HookSecretHash,
		RateLimit: middlewareCustom.RateLimitConfig{
			Requests: cfg.Auth.HookRateLimit,
			Window:   cfg.Auth.HookRateLimitEvery,
		},
	})
	if cfg.Auth.HookSecretHash == "" {
		logger.Warn("HOOK_SECRET_HASH not set, login hooks are disabled")
	}

	// Retention schedule
	scheduler := background.NewCronScheduler(retentionService, cfg.Retention.Schedule, cfg.Retention.RunOnStart, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention scheduler: %w", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Let queued alert mail go out before the process exits
	if pending, ok := notifier.(interface{ Wait() }); ok {
		pending.Wait()
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newGeoProvider picks the country source. A local MaxMind database replaces the network
// service unless fallback is enabled, in which case the network is asked on a miss.
func newGeoProvider(cfg config.GeoConfig, logger *slog.Logger) (geo.Provider, func(), error) {
	noop := func() {}

	if cfg.Disabled {
		logger.Info("geolocation disabled")
		return nil, noop, nil
	}

	network := geo.NewIPAPIProvider(cfg.ServiceURL, cfg.Timeout)
	if cfg.DBPath == "" {
		return network, noop, nil
	}

	mmdb, err := geo.NewMaxMindProvider(cfg.DBPath)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	closeDB := func() {
		if err := mmdb.Close(); err != nil {
			logger.Warn("failed to close GeoIP database", slog.Any("error", err))
		}
	}

	if cfg.NetworkFallback {
		return geo.NewChainProvider(mmdb, network), closeDB, nil
	}
	return mmdb, closeDB, nil
}

// newAlertNotifier always logs alerts, and e-mails them through SES when ALERT_EMAIL_TO is set
func newAlertNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) services.AlertNotifier {
	notifiers := services.MultiAlertNotifier{services.NewLogAlertNotifier(logger)}

	if cfg.Alert.EmailTo == "" {
		return notifiers
	}

	ses, err := services.NewSESAlertNotifier(ctx, cfg.Alert.AWSRegion, cfg.Alert.EmailFrom, cfg.Alert.EmailTo, logger)
	if err != nil {
		logger.Error("failed to initialize SES alerts, continuing with log alerts only", slog.Any("error", err))
		return notifiers
	}
	return append(notifiers, ses)
}
