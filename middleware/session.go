package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrymomot/authgate/core/audit"
	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/session"
)

// DefaultSessionCookie is the name of the signed session cookie.
const DefaultSessionCookie = "ag_session"

// RefreshHintHeader signals the client that the identity assertion
// should be refreshed soon. Set on responses whose session has crossed
// the proactive refresh window.
const RefreshHintHeader = "X-Session-Refresh"

// SessionOption configures the session middleware.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	cookieName string
	recorder   *audit.Recorder
}

// WithSessionCookie overrides the session cookie name.
func WithSessionCookie(name string) SessionOption {
	return func(cfg *sessionConfig) {
		if name != "" {
			cfg.cookieName = name
		}
	}
}

// WithAuditRecorder wires audit recording for session timeouts and
// CSRF rejections observed by the middleware.
func WithAuditRecorder(recorder *audit.Recorder) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.recorder = recorder
	}
}

// Session resolves the caller's session from the signed cookie and
// stores it in the context. Requests without a valid session pass
// through unauthenticated; handlers that need one use RequireSession.
//
// A resolvable session has its sliding window touched, and responses
// carry the refresh hint header once the proactive refresh window has
// elapsed.
func Session(manager *session.Manager, cookies *cookie.Manager, opts ...SessionOption) gin.HandlerFunc {
	cfg := newSessionConfig(opts)

	return func(c *gin.Context) {
		sess, ok := resolveSession(c, manager, cookies, cfg)
		if ok {
			setSession(c, sess)
			if manager.NeedsRefresh(sess) && sess.IsAuthenticated() {
				c.Header(RefreshHintHeader, "true")
			}
		}
		c.Next()
	}
}

// RequireSession is Session for protected routes: a request without a
// valid session is rejected with 401 before the handler runs.
func RequireSession(manager *session.Manager, cookies *cookie.Manager, opts ...SessionOption) gin.HandlerFunc {
	cfg := newSessionConfig(opts)

	return func(c *gin.Context) {
		sess, ok := resolveSession(c, manager, cookies, cfg)
		if !ok {
			if !c.IsAborted() {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":    "session_not_found",
					"message": "authentication required",
				})
			}
			return
		}
		if !sess.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "session_not_found",
				"message": "authentication required",
			})
			return
		}

		setSession(c, sess)
		if manager.NeedsRefresh(sess) {
			c.Header(RefreshHintHeader, "true")
		}
		c.Next()
	}
}

func newSessionConfig(opts []SessionOption) sessionConfig {
	cfg := sessionConfig{cookieName: DefaultSessionCookie}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// resolveSession reads the cookie, resolves and touches the session.
// When ok is false the response has already been written for terminal
// failures (expired session), or the request simply carries no usable
// cookie and the caller decides what that means.
func resolveSession(c *gin.Context, manager *session.Manager, cookies *cookie.Manager, cfg sessionConfig) (session.Session, bool) {
	token, err := cookies.GetSigned(c.Request, cfg.cookieName)
	if err != nil {
		// Missing or tampered cookie: either way there is no session.
		if !errors.Is(err, cookie.ErrCookieNotFound) {
			cookies.Delete(c.Writer, cfg.cookieName)
		}
		return session.Session{}, false
	}

	sess, ok := lookupSession(c, manager, cookies, cfg, token)
	if !ok {
		return session.Session{}, false
	}

	touched, err := manager.Touch(c.Request.Context(), sess)
	switch {
	case err == nil:
		sess = touched
	case session.IsConflict(err):
		// Another request advanced the session first. Trust the store's
		// current record, including its disappearance: a session revoked
		// by the concurrent writer must not survive here as a stale copy.
		sess, ok = lookupSession(c, manager, cookies, cfg, token)
		if !ok {
			return session.Session{}, false
		}
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "session update failed",
		})
		return session.Session{}, false
	}

	// Re-issue the cookie so the client-side lifetime slides with the
	// server-side window; otherwise the browser drops the cookie at
	// login+TTL no matter how active the session is.
	if err := cookies.SetSigned(c.Writer, cfg.cookieName, sess.Token,
		cookie.WithMaxAge(int(manager.TTL().Seconds()))); err != nil {
		_ = c.Error(err)
	}

	return sess, true
}

// lookupSession resolves a token and maps failures: expired sessions
// are terminal (401 written), missing ones clear the cookie and leave
// the caller unauthenticated.
func lookupSession(c *gin.Context, manager *session.Manager, cookies *cookie.Manager, cfg sessionConfig, token string) (session.Session, bool) {
	sess, err := manager.Resolve(c.Request.Context(), token)
	switch {
	case err == nil:
		return sess, true
	case errors.Is(err, session.ErrExpired):
		if cfg.recorder != nil {
			entry := audit.NewEntry("anonymous", audit.ActionSessionTimeout, audit.OutcomeDenied)
			entry.IPAddress = ClientIPFromContext(c)
			entry.UserAgent = c.Request.UserAgent()
			cfg.recorder.Record(entry)
		}
		cookies.Delete(c.Writer, cfg.cookieName)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "session_expired",
			"message": "session expired, please authenticate again",
		})
		return session.Session{}, false
	case errors.Is(err, session.ErrNotFound):
		cookies.Delete(c.Writer, cfg.cookieName)
		return session.Session{}, false
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "session lookup failed",
		})
		return session.Session{}, false
	}
}
