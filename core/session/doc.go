// Package session manages the gateway's server-held session records.
//
// A Session is created anonymous (carrying only a CSRF token), bound
// to a verified subject on authentication, kept alive by a sliding
// inactivity window, and revoked on logout or timeout. The cookie
// value is an opaque 256-bit random token; no identity data ever
// leaves the server.
//
// Expired and missing sessions are distinct failures (ErrExpired vs
// ErrNotFound) so callers can tell a timed-out user from a forged or
// cleaned-up cookie.
//
// All writes go through Store.Save, which is a compare-and-swap on the
// record version: concurrent refreshes for the same session cannot
// both rotate the CSRF token, the loser observes
// ErrConcurrentModification and must re-read or surface the conflict.
package session
