package routes

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/loginhistory/internal/auth"
	"github.com/BradenHooton/loginhistory/internal/handlers"
	"github.com/BradenHooton/loginhistory/internal/middleware"
	"github.com/BradenHooton/loginhistory/internal/models"
)

// HistoryPath is the admin table; the users-screen row action links here
const HistoryPath = "/admin/login-history"

// Handlers bundles the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Hooks     *handlers.HookHandler
	AuthLog   *handlers.AuthLogHandler
	Settings  *handlers.SettingsHandler
	LastLogin *handlers.LastLoginHandler
	Health    *handlers.HealthHandler
}

// HookConfig controls the login hook endpoints
type HookConfig struct {
	// SecretHash is the bcrypt hash of the shared hook secret. Hooks are not mounted when empty.
	SecretHash string
	RateLimit  middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	hooks HookConfig,
) {
	router.Get("/health", h.Health.Health)

	// Login hooks - shared secret, rate limited per client.
	// Forwarding headers stay untouched here: the recorder picks the client IP
	// itself and only trusts public forwarded addresses.
	if hooks.SecretHash != "" {
		router.Route("/hooks/login", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(hooks.RateLimit))
			r.Use(auth.RequireHookSecret(hooks.SecretHash))
			r.Post("/success", h.Hooks.LoginSuccess)
			r.Post("/failure", h.Hooks.LoginFailure)
		})
	}

	// Admin-only routes
	router.Group(func(r chi.Router) {
		r.Use(chimiddleware.RealIP)
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(auth.RequireRole(models.RoleAdmin))

		r.Get(HistoryPath, h.AuthLog.GetTable)
		r.Put(HistoryPath+"/preferences", h.AuthLog.SetPerPage)
		r.Get(HistoryPath+"/settings", h.Settings.GetSettings)
		r.Put(HistoryPath+"/settings", h.Settings.UpdateSettings)
		r.Post(HistoryPath+"/sweep", h.Settings.RunSweep)
		r.Get("/admin/users/last-login", h.LastLogin.GetLastLogins)
	})
}
