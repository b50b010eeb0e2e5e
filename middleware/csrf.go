package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrymomot/authgate/core/audit"
	"github.com/dmitrymomot/authgate/core/session"
)

// CSRFHeader carries the double-submit token: the client echoes the
// value it was last given, and the response returns the replacement.
const CSRFHeader = "X-CSRF-Token"

// CSRF enforces double-submit token validation on state-changing
// methods. Must run after Session or RequireSession.
//
// Safe methods pass through untouched. For unsafe methods the header
// token is compared against the session's current token in constant
// time; a mismatch is rejected with 403 and audited before any handler
// state changes, and the stored token is left as it was. A validated
// token is consumed immediately: it is rotated before the handler runs
// and the replacement returned in the response header, so a leaked
// token stops working after its first use. Handlers that replace the
// session wholesale (login, refresh) overwrite the header with the
// token of the session they issue.
func CSRF(manager *session.Manager, opts ...SessionOption) gin.HandlerFunc {
	cfg := newSessionConfig(opts)

	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		sess, ok := SessionFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "csrf_mismatch",
				"message": "csrf token required",
			})
			return
		}

		if !manager.ValidateCSRF(sess, c.GetHeader(CSRFHeader)) {
			if cfg.recorder != nil {
				entry := audit.NewEntry(actorFor(sess), audit.ActionCSRFReject, audit.OutcomeDenied)
				entry.ResourceType = "session"
				entry.ResourceID = sess.ID.String()
				entry.IPAddress = ClientIPFromContext(c)
				entry.UserAgent = c.Request.UserAgent()
				cfg.recorder.Record(entry)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "csrf_mismatch",
				"message": "csrf token mismatch",
			})
			return
		}

		rotated, err := manager.RotateCSRF(c.Request.Context(), sess)
		if err != nil {
			if session.IsConflict(err) {
				// A concurrent request consumed the token first; the
				// client retries with the token from that response.
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"code":    "concurrent_modification",
					"message": "concurrent session update, retry with the latest token",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "internal_error",
				"message": "csrf rotation failed",
			})
			return
		}

		setSession(c, rotated)
		c.Header(CSRFHeader, rotated.CSRFToken)
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func actorFor(sess session.Session) string {
	if sess.SubjectID != "" {
		return sess.SubjectID
	}
	return "anonymous"
}
