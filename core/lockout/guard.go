package lockout

import (
	"context"
	"strings"
	"time"
)

// Guard tracks failed authentication attempts per identity key and
// enforces cooldown lockouts. Counting is fixed-window: maxAttempts
// failures within failureWindow trip a lock for cooldownPeriod.
//
// CheckAllowed is deliberately the cheapest operation here, it must
// run before any identity verification so a locked identity is
// rejected without revealing whether the account exists.
type Guard struct {
	store Store
	cfg   Config
}

// NewGuard creates a lockout guard backed by the given store.
func NewGuard(store Store, opts ...Option) *Guard {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Guard{
		store: store,
		cfg:   cfg,
	}
}

// Decision is the outcome of a pre-authentication lockout check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// CheckAllowed reports whether authentication may proceed for the
// identity key. A locked key returns the remaining cooldown so the
// caller can surface a Retry-After hint.
func (g *Guard) CheckAllowed(ctx context.Context, key string) (Decision, error) {
	until, err := g.store.GetLock(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if remaining := time.Until(until); remaining > 0 {
		return Decision{Allowed: false, RetryAfter: remaining}, nil
	}

	// Expired locks are treated as reset lazily; no background sweep
	// is required for correctness.
	return Decision{Allowed: true}, nil
}

// RecordFailure counts a failed attempt and trips the lock when the
// threshold is reached. Returns true when this failure tripped the
// lock, so callers can audit the transition exactly once.
func (g *Guard) RecordFailure(ctx context.Context, key string) (bool, error) {
	count, err := g.store.AddFailure(ctx, key, g.cfg.FailureWindow)
	if err != nil {
		return false, err
	}

	if count < int64(g.cfg.MaxAttempts) {
		return false, nil
	}

	until := time.Now().Add(g.cfg.CooldownPeriod)
	if err := g.store.Lock(ctx, key, until); err != nil {
		return false, err
	}

	// Only the failure crossing the threshold reports the trip.
	return count == int64(g.cfg.MaxAttempts), nil
}

// RecordSuccess unconditionally clears the counter and any lock.
// An identity that eventually authenticates by other means must not
// stay locked.
func (g *Guard) RecordSuccess(ctx context.Context, key string) error {
	return g.store.Reset(ctx, key)
}

// Key builds a normalized identity key from an email and client IP.
// Email is preferred so distributed attempts against one account share
// a counter regardless of source address; the IP is the fallback when
// no email is known.
func Key(email, ip string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		return "email:" + email
	}
	return "ip:" + ip
}
