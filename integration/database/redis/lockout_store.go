package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutStore implements lockout.Store on Redis. Failure counters are
// plain INCR keys with a fixed-window TTL set on first increment, so
// every gateway instance sharing the store counts against the same
// threshold. Locks are separate keys expiring at the cooldown deadline.
type LockoutStore struct {
	client *redis.Client
}

// NewLockoutStore creates a Redis-backed lockout store.
func NewLockoutStore(client *redis.Client) *LockoutStore {
	return &LockoutStore{client: client}
}

func failureKey(key string) string {
	return "lockout:fail:" + key
}

func lockKey(key string) string {
	return "lockout:lock:" + key
}

// AddFailure atomically increments the failure counter for key and
// returns the new count. The window TTL is attached when the counter
// is created; an elapsed window expires the key and the next failure
// starts a fresh count.
func (s *LockoutStore) AddFailure(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, failureKey(key))
		pipe.ExpireNX(ctx, failureKey(key), window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Lock marks the key locked until the given time.
func (s *LockoutStore) Lock(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, lockKey(key), until.UTC().Format(time.RFC3339Nano), ttl).Err()
}

// GetLock returns when the key's lock expires. Redis expires the lock
// key at the deadline, so a missing key means not locked.
func (s *LockoutStore) GetLock(ctx context.Context, key string) (time.Time, error) {
	val, err := s.client.Get(ctx, lockKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	until, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, err
	}
	if time.Now().After(until) {
		return time.Time{}, nil
	}
	return until, nil
}

// Reset clears the counter and any lock for the key.
func (s *LockoutStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, failureKey(key), lockKey(key)).Err()
}
