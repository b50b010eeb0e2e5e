package lockout

import (
	"context"
	"sync"
	"time"
)

// record is the in-memory counter state for one identity key.
type record struct {
	failureCount int64
	windowStart  time.Time
	lockedUntil  time.Time
}

// MemoryStore implements Store with an in-process map. Counters are
// authoritative only for a single gateway instance; multi-instance
// deployments must use a shared store or a distributed brute-force can
// slip under the threshold.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewMemoryStore creates an in-memory lockout store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
	}
}

// AddFailure increments the fixed-window counter for key.
func (ms *MemoryStore) AddFailure(ctx context.Context, key string, window time.Duration) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	rec, ok := ms.records[key]
	if !ok || now.Sub(rec.windowStart) >= window {
		rec = &record{windowStart: now}
		ms.records[key] = rec
	}

	rec.failureCount++
	return rec.failureCount, nil
}

// Lock marks the key locked until the given time.
func (ms *MemoryStore) Lock(ctx context.Context, key string, until time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, ok := ms.records[key]
	if !ok {
		rec = &record{windowStart: time.Now()}
		ms.records[key] = rec
	}
	rec.lockedUntil = until
	return nil
}

// GetLock returns the lock expiry for key. Expired records are removed
// lazily here, so no background sweep is needed.
func (ms *MemoryStore) GetLock(ctx context.Context, key string) (time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, ok := ms.records[key]
	if !ok {
		return time.Time{}, nil
	}

	now := time.Now()
	if !rec.lockedUntil.IsZero() && now.After(rec.lockedUntil) {
		delete(ms.records, key)
		return time.Time{}, nil
	}

	return rec.lockedUntil, nil
}

// Reset clears the counter and lock for key.
func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.records, key)
	return nil
}
