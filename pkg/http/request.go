package http

import (
	"net"
	"net/http"
	"strings"
)

// ServerVarRemoteAddr and ServerVarUserAgent are the server-variable names for the
// connection address and the client identification string
const (
	ServerVarRemoteAddr = "REMOTE_ADDR"
	ServerVarUserAgent  = "HTTP_USER_AGENT"
)

// ForwardedIPHeaders lists the proxy headers consulted for the client address,
// in order of precedence
var ForwardedIPHeaders = []string{
	"HTTP_CLIENT_IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_X_FORWARDED",
	"HTTP_X_CLUSTER_CLIENT_IP",
	"HTTP_FORWARDED_FOR",
	"HTTP_FORWARDED",
}

// RequestContext is an immutable snapshot of the request data needed to record a
// login attempt. Keys use server-variable naming (HTTP_X_FORWARDED_FOR, REMOTE_ADDR).
type RequestContext struct {
	vars map[string]string
}

// NewRequestContext copies vars into a RequestContext
func NewRequestContext(vars map[string]string) RequestContext {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[strings.ToUpper(k)] = v
	}
	return RequestContext{vars: copied}
}

// RequestContextFromHTTP captures the headers and connection address of r
func RequestContextFromHTTP(r *http.Request) RequestContext {
	vars := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		vars[headerToServerVar(name)] = strings.Join(values, ",")
	}
	if r.RemoteAddr != "" {
		vars[ServerVarRemoteAddr] = r.RemoteAddr
	}
	return RequestContext{vars: vars}
}

// Get returns a server variable, or "" when unset
func (rc RequestContext) Get(key string) string {
	return rc.vars[strings.ToUpper(key)]
}

// UserAgent returns the client identification string
func (rc RequestContext) UserAgent() string {
	return rc.Get(ServerVarUserAgent)
}

// ExtractClientIP derives the client IP address from a request context.
//
// Flow:
// 1. Walk ForwardedIPHeaders in order; a header is trusted only if one of its
// comma-separated values is a public (non-private, non-reserved) IP, and that value wins
// 2. Fall back to REMOTE_ADDR, port stripped
// 3. Return "" when nothing parses
func ExtractClientIP(rc RequestContext) string {
	for _, key := range ForwardedIPHeaders {
		value := rc.Get(key)
		if value == "" {
			continue
		}
		for _, candidate := range strings.Split(value, ",") {
			ip := parseForwardedValue(candidate)
			if ip != nil && isPublicIP(ip) {
				return ip.String()
			}
		}
	}

	return getRemoteAddr(rc.Get(ServerVarRemoteAddr))
}

// parseForwardedValue accepts a bare IP, an "ip:port" pair, or an RFC 7239 "for=" element
func parseForwardedValue(value string) net.IP {
	value = strings.TrimSpace(value)
	if i := strings.Index(strings.ToLower(value), "for="); i >= 0 {
		value = value[i+len("for="):]
		if j := strings.IndexByte(value, ';'); j >= 0 {
			value = value[:j]
		}
		value = strings.Trim(value, `"`)
	}

	if ip := net.ParseIP(strings.Trim(value, "[]")); ip != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		return net.ParseIP(host)
	}
	return nil
}

// getRemoteAddr extracts the IP address from REMOTE_ADDR (removing port if present)
func getRemoteAddr(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}

	// RemoteAddr may include port: "ip:port"
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	if ip := net.ParseIP(strings.Trim(remoteAddr, "[]")); ip != nil {
		return ip.String()
	}
	return ""
}

// headerToServerVar maps "X-Forwarded-For" to "HTTP_X_FORWARDED_FOR"
func headerToServerVar(name string) string {
	return "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
