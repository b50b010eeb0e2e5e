package session

import "errors"

var (
	// ErrNotFound is returned when a session does not exist in the store.
	// Distinct from ErrExpired so callers can tell "never existed or
	// already cleaned up" from "timed out, please re-authenticate".
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a session exists but its sliding
	// window has elapsed.
	ErrExpired = errors.New("session has expired")
	// ErrConcurrentModification is returned when a Save loses a
	// compare-and-swap race. The caller should re-read and retry once,
	// or surface the conflict.
	ErrConcurrentModification = errors.New("session was modified concurrently")
	// ErrTokenGeneration is returned when random token generation fails.
	ErrTokenGeneration = errors.New("failed to generate session token")
	// ErrMissingIP is returned when creating a session without a client IP.
	ErrMissingIP = errors.New("client IP address is required")
)
