// Package cookie provides HMAC-signed HTTP cookie management with
// secure defaults and key rotation support.
//
// A Manager signs values with SHA-256 HMAC so clients cannot forge or
// tamper with cookie contents. Multiple secrets may be configured: the
// first signs new cookies, all of them verify, which allows rotating
// keys without invalidating live sessions.
//
//	manager, err := cookie.New([]string{secret})
//	if err != nil {
//		return err
//	}
//
//	err = manager.SetSigned(w, "session", token,
//		cookie.WithSecure(true),
//		cookie.WithMaxAge(7200),
//	)
//
//	token, err := manager.GetSigned(r, "session")
//
// Defaults are deliberately strict: Path=/, HttpOnly, SameSite=Strict.
// Relax them per cookie via options only when a cookie genuinely needs it.
package cookie
