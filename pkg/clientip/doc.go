// Package clientip extracts real client IP addresses from HTTP requests.
//
// It checks proxy headers in priority order (CF-Connecting-IP,
// DO-Connecting-IP, X-Forwarded-For, X-Real-IP) before falling back to
// RemoteAddr, validating and normalizing every candidate. This matters
// for lockout keys and security logging behind load balancers and CDNs,
// where RemoteAddr is the proxy, not the client.
package clientip
