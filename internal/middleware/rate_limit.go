package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultHookRateLimit allows a busy login form behind a single host
func DefaultHookRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 300,
		Window:   time.Minute,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The key is the connection address without its port. Forwarding headers are ignored,
// so a caller cannot pick its own bucket.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.Requests <= 0 || config.Window <= 0 {
		config = DefaultHookRateLimit()
	}
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "rate limit exceeded")
		}),
	)
}
