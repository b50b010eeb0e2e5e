package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Proxy headers checked in priority order. The most trustworthy
// CDN-injected headers come first, generic proxy headers after.
var headerPriority = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP extracts the real client IP address from the request.
// It checks known proxy headers in priority order and falls back to
// RemoteAddr. The returned value is a normalized IP string; if no
// valid IP can be determined, the raw RemoteAddr is returned as-is.
func GetIP(r *http.Request) string {
	for _, header := range headerPriority {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For may contain a chain "client, proxy1, proxy2";
		// the leftmost entry is the originating client.
		if header == "X-Forwarded-For" {
			if idx := strings.IndexByte(value, ','); idx >= 0 {
				value = value[:idx]
			}
		}

		if ip := normalize(value); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := normalize(host); ip != "" {
		return ip
	}

	return r.RemoteAddr
}

// normalize validates and canonicalizes an IP string.
// Returns "" for invalid addresses and for 0.0.0.0, which some proxies
// use to signal that no client address is available.
func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
