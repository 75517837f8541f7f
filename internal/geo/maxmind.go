package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	httputil "github.com/BradenHooton/loginhistory/pkg/http"
)

// MaxMindProvider looks up countries in a local GeoLite2/GeoIP2 database
type MaxMindProvider struct {
	reader *geoip2.Reader
}

// NewMaxMindProvider opens the mmdb file at path
func NewMaxMindProvider(path string) (*MaxMindProvider, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &MaxMindProvider{reader: reader}, nil
}

// Close releases the database
func (p *MaxMindProvider) Close() error {
	return p.reader.Close()
}

// Country implements Provider. Private and reserved addresses resolve to "".
func (p *MaxMindProvider) Country(_ context.Context, ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("%w: invalid ip %q", errLookupFailed, ip)
	}
	if !httputil.IsPublicIP(ip) {
		return "", nil
	}

	record, err := p.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errLookupFailed, err)
	}

	return record.Country.Names["en"], nil
}
