// Package middleware provides the gin middleware chain for the
// gateway: request identification, client IP extraction, structured
// request logging, security headers, session resolution, and CSRF
// enforcement.
//
// The intended order mirrors the dependency flow:
//
//	r := gin.New()
//	r.Use(
//		middleware.RequestID(),
//		middleware.ClientIP(),
//		middleware.Logging(logger),
//		middleware.SecurityHeaders(),
//	)
//
//	protected := r.Group("/",
//		middleware.RequireSession(sessions, cookies),
//		middleware.CSRF(sessions, middleware.WithAuditRecorder(recorder)),
//	)
//
// Session and RequireSession resolve the signed session cookie, slide
// the inactivity window, and expose the session through
// SessionFromContext. CSRF validates and rotates the double-submit
// token on state-changing methods.
package middleware
