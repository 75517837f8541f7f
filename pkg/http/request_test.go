package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_DirectConnection_NoHeaders(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR": "81.2.69.142:54321",
	})

	ip := pkghttp.ExtractClientIP(rc)

	assert.Equal(t, "81.2.69.142", ip, "Should strip port from REMOTE_ADDR")
}

func TestExtractClientIP_PublicForwardedFor_Trusted(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR":          "10.0.0.5",
		"HTTP_X_FORWARDED_FOR": "8.8.8.8, 10.0.0.5",
	})

	ip := pkghttp.ExtractClientIP(rc)

	assert.Equal(t, "8.8.8.8", ip, "Should take the public address from X-Forwarded-For")
}

func TestExtractClientIP_PrivateHeader_FallsBackToRemoteAddr(t *testing.T) {
	// A header carrying only private addresses is not trusted
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR":          "81.2.69.142",
		"HTTP_X_FORWARDED_FOR": "192.168.1.1, 127.0.0.1",
		"HTTP_CLIENT_IP":       "10.1.2.3",
	})

	ip := pkghttp.ExtractClientIP(rc)

	assert.Equal(t, "81.2.69.142", ip)
}

func TestExtractClientIP_Precedence_ClientIPBeforeForwardedFor(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR":          "10.0.0.5",
		"HTTP_CLIENT_IP":       "1.1.1.1",
		"HTTP_X_FORWARDED_FOR": "8.8.8.8",
	})

	assert.Equal(t, "1.1.1.1", pkghttp.ExtractClientIP(rc))
}

func TestExtractClientIP_Precedence_SkipsUntrustedEarlierHeader(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR":              "10.0.0.5",
		"HTTP_CLIENT_IP":           "not-an-ip",
		"HTTP_X_CLUSTER_CLIENT_IP": "9.9.9.9",
	})

	assert.Equal(t, "9.9.9.9", pkghttp.ExtractClientIP(rc))
}

func TestExtractClientIP_ForwardedHeaderSyntax(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR":    "10.0.0.5",
		"HTTP_FORWARDED": `for="[2606:4700:4700::1111]:443";proto=https`,
	})

	assert.Equal(t, "2606:4700:4700::1111", pkghttp.ExtractClientIP(rc))
}

func TestExtractClientIP_IPv6RemoteAddr(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR": "[::1]:54321",
	})

	assert.Equal(t, "::1", pkghttp.ExtractClientIP(rc))
}

func TestExtractClientIP_NothingUsable_ReturnsEmpty(t *testing.T) {
	rc := pkghttp.NewRequestContext(map[string]string{
		"REMOTE_ADDR": "garbage",
	})

	assert.Empty(t, pkghttp.ExtractClientIP(rc))
	assert.Empty(t, pkghttp.ExtractClientIP(pkghttp.NewRequestContext(nil)))
}

func TestRequestContextFromHTTP_MapsHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/wp-login", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "8.8.4.4")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)")

	rc := pkghttp.RequestContextFromHTTP(req)

	assert.Equal(t, "8.8.4.4", rc.Get("HTTP_X_FORWARDED_FOR"))
	assert.Equal(t, "10.0.0.5:1234", rc.Get("REMOTE_ADDR"))
	assert.Contains(t, rc.UserAgent(), "iPhone")
	assert.Equal(t, "8.8.4.4", pkghttp.ExtractClientIP(rc))
}

func TestIsPublicIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"8.8.8.8", true},
		{"2606:4700:4700::1111", true},
		{"10.0.0.1", false},
		{"172.16.5.4", false},
		{"192.168.0.1", false},
		{"127.0.0.1", false},
		{"169.254.1.1", false},
		{"203.0.113.10", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::1", false},
		{"", false},
		{"nope", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, pkghttp.IsPublicIP(tt.ip), tt.ip)
	}
}
