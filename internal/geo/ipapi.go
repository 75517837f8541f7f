package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultIPAPIBaseURL is the public ip-api.com endpoint
const DefaultIPAPIBaseURL = "http://ip-api.com"

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 64 << 10

var errLookupFailed = errors.New("geolocation lookup failed")

// ipAPIResponse is the subset of the ip-api.com JSON body we use
type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
}

// IPAPIProvider looks up countries with the ip-api.com JSON API
type IPAPIProvider struct {
	baseURL string
	client  *http.Client
}

// NewIPAPIProvider creates a provider for baseURL (DefaultIPAPIBaseURL when empty)
func NewIPAPIProvider(baseURL string, timeout time.Duration) *IPAPIProvider {
	if baseURL == "" {
		baseURL = DefaultIPAPIBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &IPAPIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Country implements Provider
func (p *IPAPIProvider) Country(ctx context.Context, ip string) (string, error) {
	endpoint := p.baseURL + "/json/" + url.PathEscape(ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", errLookupFailed, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode: %v", errLookupFailed, err)
	}

	if body.Status == "fail" {
		return "", fmt.Errorf("%w: %s", errLookupFailed, body.Message)
	}
	if body.Country == "" {
		return "", fmt.Errorf("%w: no country in response", errLookupFailed)
	}

	return body.Country, nil
}
