package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrymomot/authgate/core/session"
)

// Context keys for values the middleware stores in gin.Context.
const (
	KeySession   = "authgate_session"
	KeyClientIP  = "authgate_client_ip"
	KeyRequestID = "authgate_request_id"
)

// SessionFromContext returns the session resolved by the Session
// middleware. The second return is false when no session middleware
// ran or no valid session was presented.
func SessionFromContext(c *gin.Context) (session.Session, bool) {
	val, ok := c.Get(KeySession)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := val.(session.Session)
	return sess, ok
}

// setSession replaces the session stored in the context. Middleware
// that mutates the session (touch, CSRF rotation) keeps the context
// copy current so handlers see the latest version.
func setSession(c *gin.Context, sess session.Session) {
	c.Set(KeySession, sess)
}

// ClientIPFromContext returns the IP extracted by the ClientIP
// middleware, or the empty string if it did not run.
func ClientIPFromContext(c *gin.Context) string {
	return c.GetString(KeyClientIP)
}

// RequestIDFromContext returns the request ID assigned by the
// RequestID middleware, or the empty string if it did not run.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(KeyRequestID)
}
