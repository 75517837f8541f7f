// Package geo resolves a client IP to a country name for the auth log.
//
// Lookups are best effort: every failure degrades to an empty location and the
// login is still recorded.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/pkg/markup"
)

// DefaultTimeout bounds a single provider lookup
const DefaultTimeout = 3 * time.Second

// LocationCache returns a location already stored for an IP, or "" when none is known
type LocationCache interface {
	FindLatestLocationForIP(ctx context.Context, ip string) (string, error)
}

// Provider looks up the country for an IP
type Provider interface {
	Country(ctx context.Context, ip string) (string, error)
}

// Resolver resolves IPs to locations, reusing stored locations before asking a provider
type Resolver struct {
	cache    LocationCache
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResolver creates a new Resolver. A zero timeout uses DefaultTimeout.
func NewResolver(cache LocationCache, provider Provider, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		cache:    cache,
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve returns the country for ip, or "" when it cannot be determined
func (r *Resolver) Resolve(ctx context.Context, ip string) string {
	country, err := r.Lookup(ctx, ip)
	if err != nil {
		r.logger.Debug("geolocation lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return ""
	}
	return country
}

// Lookup is Resolve with the failure reported. Every error wraps models.ErrEnrichment.
// An invalid IP or a missing provider is not an error and yields "".
func (r *Resolver) Lookup(ctx context.Context, ip string) (string, error) {
	if ip == "" || net.ParseIP(ip) == nil {
		return "", nil
	}

	if r.cache != nil {
		location, err := r.cache.FindLatestLocationForIP(ctx, ip)
		if err != nil {
			r.logger.Warn("location cache lookup failed", slog.Any("error", fmt.Errorf("%w: %w", models.ErrEnrichment, err)))
		} else if location != "" {
			return location, nil
		}
	}

	if r.provider == nil {
		return "", nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	country, err := r.provider.Country(lookupCtx, ip)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrEnrichment, err)
	}

	return strings.TrimSpace(markup.Strip(country)), nil
}
