package lockout

import (
	"context"
	"time"
)

// Store persists failure counters and locks. Implementations must make
// AddFailure atomic per key, shared-store implementations keep the
// threshold intact when attempts are spread across gateway instances.
type Store interface {
	// AddFailure increments the fixed-window counter for key and
	// returns the new count. A counter whose window has elapsed is
	// reset before counting.
	AddFailure(ctx context.Context, key string, window time.Duration) (int64, error)
	// Lock marks the key locked until the given time.
	Lock(ctx context.Context, key string, until time.Time) error
	// GetLock returns when the key's lock expires; the zero time means
	// not locked. Expired locks may be reported as zero.
	GetLock(ctx context.Context, key string) (time.Time, error)
	// Reset clears the counter and any lock for the key.
	Reset(ctx context.Context, key string) error
}
