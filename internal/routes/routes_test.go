package routes

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/loginhistory/internal/auth"
	"github.com/BradenHooton/loginhistory/internal/handlers"
	"github.com/BradenHooton/loginhistory/internal/middleware"
	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/services"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

const testSecret = "routes-test-secret-0123456789abcdef"

type stubRecorder struct {
	calls int
	last  pkghttp.RequestContext
}

func (s *stubRecorder) RecordSuccess(ctx context.Context, rc pkghttp.RequestContext, username, accountID string, at time.Time) (*models.AuthLogEntry, error) {
	s.calls++
	s.last = rc
	return &models.AuthLogEntry{}, nil
}

func (s *stubRecorder) RecordFailure(ctx context.Context, rc pkghttp.RequestContext, username string, at time.Time, code, message string) (*models.AuthLogEntry, error) {
	s.calls++
	s.last = rc
	return &models.AuthLogEntry{}, nil
}

type stubPinger struct{}

func (stubPinger) HealthCheck(ctx context.Context) error { return nil }

type stubRetention struct{}

func (stubRetention) GetPolicy(ctx context.Context) (models.RetentionPolicy, error) {
	return models.DefaultRetentionPolicy(), nil
}

func (stubRetention) UpdatePolicyFromInput(ctx context.Context, raw string) (models.RetentionPolicy, error) {
	return models.DefaultRetentionPolicy(), nil
}

func (stubRetention) Run(ctx context.Context) (*services.SweepResult, error) {
	return &services.SweepResult{}, nil
}

func newTestRouter(t *testing.T, hookHash string) (*chi.Mux, *auth.TokenManager, *stubRecorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := auth.NewTokenManager(testSecret, "loginhistory", time.Minute)
	rec := &stubRecorder{}

	router := chi.NewRouter()
	RegisterRoutes(router, Handlers{
		Hooks:     handlers.NewHookHandler(rec, logger),
		Settings:  handlers.NewSettingsHandler(stubRetention{}, nil, logger),
		Health:    handlers.NewHealthHandler(stubPinger{}, logger),
		AuthLog:   handlers.NewAuthLogHandler(&handlers.MockAuthLogTableService{}, nil, logger),
		LastLogin: handlers.NewLastLoginHandler(&handlers.MockLastLoginService{}, logger),
	}, tm, HookConfig{SecretHash: hookHash, RateLimit: middleware.DefaultHookRateLimit()})
	return router, tm, rec
}

func TestRoutes_HealthIsPublic(t *testing.T) {
	router, _, _ := newTestRouter(t, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_AdminRequiresAdminToken(t *testing.T) {
	router, tm, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, HistoryPath, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userToken, err := tm.GenerateAccessToken("2", "bob", models.RoleUser)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, HistoryPath, nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, err := tm.GenerateAccessToken("1", "root", models.RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, HistoryPath+"/settings", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_HooksNotMountedWithoutSecret(t *testing.T) {
	router, _, rec := newTestRouter(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hooks/login/success", bytes.NewBufferString(`{"username":"a"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, rec.calls)
}

func TestRoutes_HooksRequireSecret(t *testing.T) {
	hash, err := auth.HashHookSecret("routes-hook-secret-value")
	require.NoError(t, err)
	router, _, rec := newTestRouter(t, hash)

	req := httptest.NewRequest(http.MethodPost, "/hooks/login/success", bytes.NewBufferString(`{"username":"a"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/hooks/login/success", bytes.NewBufferString(`{"username":"a"}`))
	req.Header.Set(auth.HookSecretHeader, "routes-hook-secret-value")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, rec.calls)
}

func TestRoutes_HookIgnoresPrivateForwardedFor(t *testing.T) {
	hash, err := auth.HashHookSecret("routes-hook-secret-value")
	require.NoError(t, err)
	router, _, rec := newTestRouter(t, hash)

	req := httptest.NewRequest(http.MethodPost, "/hooks/login/failure",
		bytes.NewBufferString(`{"username":"a","error":{"code":"invalid_username"}}`))
	req.RemoteAddr = "8.8.8.8:5555"
	req.Header.Set("X-Forwarded-For", "10.1.2.3")
	req.Header.Set(auth.HookSecretHeader, "routes-hook-secret-value")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, 1, rec.calls)
	assert.Equal(t, "8.8.8.8", pkghttp.ExtractClientIP(rec.last))
	assert.Equal(t, "8.8.8.8:5555", rec.last.Get(pkghttp.ServerVarRemoteAddr))
}

func TestRoutes_HookUsesPublicForwardedFor(t *testing.T) {
	hash, err := auth.HashHookSecret("routes-hook-secret-value")
	require.NoError(t, err)
	router, _, rec := newTestRouter(t, hash)

	req := httptest.NewRequest(http.MethodPost, "/hooks/login/success", bytes.NewBufferString(`{"username":"a"}`))
	req.RemoteAddr = "10.0.0.7:40000"
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 8.8.4.4")
	req.Header.Set(auth.HookSecretHeader, "routes-hook-secret-value")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "8.8.4.4", pkghttp.ExtractClientIP(rec.last))
}
