package session

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence interface for session records.
// Implementations must handle concurrent access safely and must make
// Save a compare-and-swap on Session.Version: a Save whose Version
// does not match the stored record fails with ErrConcurrentModification
// instead of silently overwriting, and a successful Save increments the
// stored Version. Records with Version 0 are inserts.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
