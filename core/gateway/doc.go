// Package gateway is the HTTP-facing orchestrator of the auth
// subsystem. It composes identity verification, session lifecycle,
// CSRF protection, lockout enforcement, and audit recording into five
// endpoints:
//
//	POST /auth/session/init     bootstrap an anonymous session + CSRF token
//	POST /auth/session          exchange an identity assertion for a session
//	POST /auth/session/refresh  re-verify identity, rotate the CSRF token
//	POST /auth/logout           revoke the session
//	GET  /auth/csrf-token       read the current token without mutation
//
// Every state-changing endpoint validates the X-CSRF-Token header and
// returns the rotated replacement in the response. Failed checks are
// terminal for the request: no partial session state is ever applied.
// All lifecycle transitions are audited and, when a broadcaster is
// wired, published as SessionEvents.
package gateway
