package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authgate/core/session"
)

// expiredGrace keeps a record readable for a short while past its
// expiry so lookups can distinguish a timed-out session from one that
// never existed. After the grace elapses Redis evicts the keys itself.
const expiredGrace = time.Hour

// SessionStore implements session.Store on Redis. Records are stored
// as JSON under an ID key with a secondary token index, both expiring
// with the session. Save is a compare-and-swap guarded by WATCH, so
// concurrent writers across gateway instances see exactly one winner.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

type sessionRecord struct {
	ID             uuid.UUID `json:"id"`
	Token          string    `json:"token"`
	SubjectID      string    `json:"subject_id,omitempty"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	CSRFToken      string    `json:"csrf_token"`
	CSRFIssuedAt   time.Time `json:"csrf_issued_at"`
	RefreshedAt    time.Time `json:"refreshed_at"`
	Version        int64     `json:"version"`
}

func toRecord(sess *session.Session) sessionRecord {
	return sessionRecord{
		ID:             sess.ID,
		Token:          sess.Token,
		SubjectID:      sess.SubjectID,
		IP:             sess.IP,
		UserAgent:      sess.UserAgent,
		IssuedAt:       sess.IssuedAt,
		LastActivityAt: sess.LastActivityAt,
		ExpiresAt:      sess.ExpiresAt,
		CSRFToken:      sess.CSRFToken,
		CSRFIssuedAt:   sess.CSRFIssuedAt,
		RefreshedAt:    sess.RefreshedAt,
		Version:        sess.Version,
	}
}

func (r sessionRecord) toSession() *session.Session {
	return &session.Session{
		ID:             r.ID,
		Token:          r.Token,
		SubjectID:      r.SubjectID,
		IP:             r.IP,
		UserAgent:      r.UserAgent,
		IssuedAt:       r.IssuedAt,
		LastActivityAt: r.LastActivityAt,
		ExpiresAt:      r.ExpiresAt,
		CSRFToken:      r.CSRFToken,
		CSRFIssuedAt:   r.CSRFIssuedAt,
		RefreshedAt:    r.RefreshedAt,
		Version:        r.Version,
	}
}

func sessionKey(id uuid.UUID) string {
	return "session:id:" + id.String()
}

func tokenKey(token string) string {
	return "session:token:" + token
}

// GetByID retrieves a session by its internal identifier.
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	return s.get(ctx, sessionKey(id))
}

// GetByToken retrieves a session by its opaque cookie token.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*session.Session, error) {
	id, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return s.get(ctx, "session:id:"+id)
}

func (s *SessionStore) get(ctx context.Context, key string) (*session.Session, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.toSession(), nil
}

// Save persists the session with compare-and-swap semantics. A record
// whose stored version differs from sess.Version fails with
// session.ErrConcurrentModification, as does losing the WATCH race to
// a concurrent writer. On success sess.Version reflects the stored
// version.
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	key := sessionKey(sess.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var staleToken string

		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if sess.Version != 0 {
				return session.ErrConcurrentModification
			}
		case err != nil:
			return err
		default:
			var current sessionRecord
			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}
			if current.Version != sess.Version {
				return session.ErrConcurrentModification
			}
			if current.Token != sess.Token {
				staleToken = current.Token
			}
		}

		rec := toRecord(sess)
		rec.Version++
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		ttl := time.Until(rec.ExpiresAt) + expiredGrace
		if ttl <= 0 {
			ttl = time.Minute
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			pipe.Set(ctx, tokenKey(rec.Token), rec.ID.String(), ttl)
			if staleToken != "" {
				pipe.Del(ctx, tokenKey(staleToken))
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return session.ErrConcurrentModification
	}
	if err != nil {
		return err
	}

	sess.Version++
	return nil
}

// Delete removes a session and its token index. Returns
// session.ErrNotFound if it does not exist.
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	sess, err := s.get(ctx, sessionKey(id))
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.Del(ctx, tokenKey(sess.Token))
		return nil
	})
	return err
}

// DeleteExpired sweeps records whose sliding window has elapsed but
// whose grace TTL has not. Redis evicts the rest on its own.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	var removed int64

	iter := s.client.Scan(ctx, 0, "session:id:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		sess, err := s.get(ctx, key)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				continue
			}
			return removed, err
		}
		if !sess.IsExpired() {
			continue
		}

		if err := s.Delete(ctx, sess.ID); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
