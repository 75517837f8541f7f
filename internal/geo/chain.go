package geo

import (
	"context"
	"errors"
)

// ChainProvider asks each provider in turn; the first non-empty country wins
type ChainProvider struct {
	providers []Provider
}

// NewChainProvider creates a ChainProvider, skipping nil providers
func NewChainProvider(providers ...Provider) *ChainProvider {
	chain := &ChainProvider{}
	for _, p := range providers {
		if p != nil {
			chain.providers = append(chain.providers, p)
		}
	}
	return chain
}

// Country implements Provider
func (c *ChainProvider) Country(ctx context.Context, ip string) (string, error) {
	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		country, err := p.Country(ctx, ip)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if country != "" {
			return country, nil
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", nil
}
