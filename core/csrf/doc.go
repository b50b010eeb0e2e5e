// Package csrf implements double-submit anti-forgery tokens.
//
// A token is a 256-bit random value stored on the server-side session
// and handed to the client for echoing back in an X-CSRF-Token header
// on state-changing requests. Read-only requests never require a
// token. Tokens rotate on every state-changing response; validation is
// constant-time.
package csrf
