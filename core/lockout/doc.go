// Package lockout throttles repeated authentication failures per
// identity key.
//
// Counting is fixed-window: maxAttempts failures (default 5) within
// failureWindow (default 15m) lock the key for cooldownPeriod (default
// 15m). A success clears everything unconditionally. Lock expiry is
// lazy, a key whose cooldown has passed behaves as if reset on next
// access.
//
// Keys are normalized emails when known, client IPs otherwise (see
// Key), so spreading attempts across addresses does not evade the
// per-account threshold. The store's AddFailure must be atomic per
// key; use a shared store when running multiple gateway instances.
package lockout
