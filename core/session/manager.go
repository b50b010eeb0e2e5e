package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authgate/core/csrf"
)

// Manager owns the session lifecycle: creation, resolution, sliding
// expiry, CSRF rotation, and revocation. All mutations go through the
// store's compare-and-swap Save, so two concurrent writers for the
// same session cannot both win.
type Manager struct {
	store Store
	guard *csrf.Guard
	cfg   Config
}

// NewManager creates a session manager backed by the given store.
func NewManager(store Store, guard *csrf.Guard, opts ...Option) *Manager {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		store: store,
		guard: guard,
		cfg:   cfg,
	}
}

// NewSessionParams carries request metadata for session creation.
type NewSessionParams struct {
	IP        string
	UserAgent string
}

// Create starts a new anonymous session with a fresh CSRF token, so
// the client's first state-changing request (the login itself) already
// carries a valid token.
func (m *Manager) Create(ctx context.Context, params NewSessionParams) (Session, error) {
	if params.IP == "" {
		return Session{}, ErrMissingIP
	}

	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}

	csrfToken, err := m.guard.Issue()
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	sess := Session{
		ID:             uuid.New(),
		Token:          token,
		IP:             params.IP,
		UserAgent:      params.UserAgent,
		IssuedAt:       now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.cfg.TTL),
		CSRFToken:      csrfToken,
		CSRFIssuedAt:   now,
		RefreshedAt:    now,
	}

	if err := m.store.Save(ctx, &sess); err != nil {
		return Session{}, err
	}

	return sess, nil
}

// Authenticate binds a verified subject to the session. The session
// token and CSRF token are both rotated: the pre-login cookie value
// must never name an authenticated session (session fixation), and the
// pre-login CSRF token must stop validating (replay).
func (m *Manager) Authenticate(ctx context.Context, sess Session, subjectID string) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}

	csrfToken, err := m.guard.Rotate()
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	sess.Token = token
	sess.SubjectID = subjectID
	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)
	sess.CSRFToken = csrfToken
	sess.CSRFIssuedAt = now
	sess.RefreshedAt = now

	if err := m.store.Save(ctx, &sess); err != nil {
		return Session{}, err
	}

	return sess, nil
}

// Resolve looks up a session by its cookie token. Expired sessions are
// reported as ErrExpired, distinct from ErrNotFound, so callers can
// redirect to login with an accurate reason.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}

	sess, err := m.store.GetByToken(ctx, token)
	if err != nil {
		return Session{}, err
	}

	if sess.IsExpired() {
		return Session{}, ErrExpired
	}

	return *sess, nil
}

// Touch slides the expiry window from the current activity. Writes are
// throttled by TouchInterval; a throttled touch returns the session
// unchanged without hitting the store.
func (m *Manager) Touch(ctx context.Context, sess Session) (Session, error) {
	now := time.Now()
	if m.cfg.TouchInterval > 0 && now.Sub(sess.LastActivityAt) < m.cfg.TouchInterval {
		return sess, nil
	}

	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)

	if err := m.store.Save(ctx, &sess); err != nil {
		return Session{}, err
	}

	return sess, nil
}

// RotateCSRF issues a replacement CSRF token and slides the expiry
// window. Called after every successful state-changing request.
func (m *Manager) RotateCSRF(ctx context.Context, sess Session) (Session, error) {
	csrfToken, err := m.guard.Rotate()
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	sess.CSRFToken = csrfToken
	sess.CSRFIssuedAt = now
	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)

	if err := m.store.Save(ctx, &sess); err != nil {
		return Session{}, err
	}

	return sess, nil
}

// Refresh marks a successful identity re-verification: rotates the
// CSRF token, slides the window, and resets the proactive refresh
// clock. Exactly one of two concurrent refreshes wins the CAS; the
// loser gets ErrConcurrentModification.
func (m *Manager) Refresh(ctx context.Context, sess Session) (Session, error) {
	csrfToken, err := m.guard.Rotate()
	if err != nil {
		return Session{}, err
	}

	now := time.Now()
	sess.CSRFToken = csrfToken
	sess.CSRFIssuedAt = now
	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(m.cfg.TTL)
	sess.RefreshedAt = now

	if err := m.store.Save(ctx, &sess); err != nil {
		return Session{}, err
	}

	return sess, nil
}

// ValidateCSRF checks a presented double-submit token against the
// session's current one in constant time.
func (m *Manager) ValidateCSRF(sess Session, presented string) bool {
	return m.guard.Validate(sess.CSRFToken, presented)
}

// NeedsRefresh reports whether the proactive refresh window has
// elapsed since the last identity verification.
func (m *Manager) NeedsRefresh(sess Session) bool {
	return time.Since(sess.RefreshedAt) >= m.cfg.RefreshWindow
}

// Revoke deletes the session. Deleting an already-deleted session
// returns ErrNotFound; logout handlers rely on that for idempotency.
func (m *Manager) Revoke(ctx context.Context, id uuid.UUID) error {
	return m.store.Delete(ctx, id)
}

// CleanupExpired removes expired sessions from the store. Run it
// periodically to keep the store from growing without bound.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

// TTL returns the configured sliding timeout.
func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// IsConflict reports whether err is a lost CAS race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
