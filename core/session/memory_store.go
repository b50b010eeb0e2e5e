package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-process maps. Suitable for
// development, tests, and single-instance deployments; multi-instance
// gateways need a shared store so all instances see the same session
// truth.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
	byToken  map[string]uuid.UUID

	cleanupInterval time.Duration
	logger          *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired sessions are swept.
// Set to 0 to disable the background sweep.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreLogger sets the logger for background operations.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStore creates an in-memory session store.
// Call Start (or Run) to begin the background expiry sweep.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		sessions:        make(map[uuid.UUID]Session),
		byToken:         make(map[string]uuid.UUID),
		cleanupInterval: 5 * time.Minute,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// GetByID returns a copy of the stored session.
func (ms *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	sess, ok := ms.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// GetByToken returns a copy of the session owning the given token.
func (ms *MemoryStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	sess, ok := ms.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Save inserts or updates a session with compare-and-swap semantics on
// Version. On success the session's Version is advanced in place so the
// caller holds the current record.
func (ms *MemoryStore) Save(ctx context.Context, sess *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, exists := ms.sessions[sess.ID]
	switch {
	case !exists:
		if sess.Version != 0 {
			return ErrConcurrentModification
		}
	case stored.Version != sess.Version:
		return ErrConcurrentModification
	default:
		// Token rotation must drop the old index entry.
		if stored.Token != sess.Token {
			delete(ms.byToken, stored.Token)
		}
	}

	sess.Version++
	ms.sessions[sess.ID] = *sess
	ms.byToken[sess.Token] = sess.ID
	return nil
}

// Delete removes a session. Returns ErrNotFound if it does not exist.
func (ms *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	sess, ok := ms.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(ms.sessions, id)
	delete(ms.byToken, sess.Token)
	return nil
}

// DeleteExpired removes all expired sessions.
func (ms *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, sess := range ms.sessions {
		if now.After(sess.ExpiresAt) {
			delete(ms.sessions, id)
			delete(ms.byToken, sess.Token)
			removed++
		}
	}
	return removed, nil
}

// Start runs the background expiry sweep until ctx is cancelled.
func (ms *MemoryStore) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store already started")
	}
	if ms.cleanupInterval <= 0 {
		ms.mu.Unlock()
		return fmt.Errorf("cleanup interval must be > 0, got %v", ms.cleanupInterval)
	}
	ms.ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.logger.InfoContext(ms.ctx, "session store cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			return ms.ctx.Err()
		case <-ticker.C:
			ms.wg.Add(1)
			if removed, err := ms.DeleteExpired(ms.ctx); err == nil && removed > 0 {
				ms.logger.InfoContext(ms.ctx, "expired sessions removed",
					slog.Int64("count", removed))
			}
			ms.wg.Done()
		}
	}
}

// Stop cancels the background sweep and waits for it to finish.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("memory store not started")
	}
	cancel()
	ms.wg.Wait()
	return nil
}
