package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/authgate/core/audit"
	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/identity"
	"github.com/dmitrymomot/authgate/core/lockout"
	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/middleware"
)

type tokenRequest struct {
	IDToken string `json:"idToken"`
}

// handleInit bootstraps an anonymous session so the client's first
// state-changing request, the login itself, already carries a valid
// CSRF token. Always issues a fresh session; a dead cookie on the
// request is simply replaced.
func (g *Gateway) handleInit(c *gin.Context) {
	sess, err := g.sessions.Create(c.Request.Context(), session.NewSessionParams{
		IP:        clientIP(c),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		g.logger.Error("session init failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "failed to initialize session")
		return
	}

	if err := g.setSessionCookie(c, sess.Token); err != nil {
		g.logger.Error("session cookie write failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "failed to initialize session")
		return
	}

	entry := audit.NewEntry("anonymous", audit.ActionSessionInit, audit.OutcomeSuccess)
	entry.ResourceType = "session"
	entry.ResourceID = sess.ID.String()
	g.audit(c, entry)

	g.csrfResponse(c, sess.CSRFToken)
}

// handleLogin exchanges an identity assertion for an authenticated
// session. Check order is fixed: CSRF first (cheapest, no state),
// lockout second (so a locked identity never reaches verification),
// assertion verification last. Provider outages surface as 502 and
// never count toward the lockout threshold.
func (g *Gateway) handleLogin(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, CodeSessionNotFound, "no session, initialize first")
		return
	}
	if !g.requireCSRF(c, sess) {
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		abortError(c, http.StatusBadRequest, CodeInvalidAssertion, "idToken is required")
		return
	}

	key := lockout.Key(emailHint(req.IDToken), clientIP(c))

	decision, err := g.lockouts.CheckAllowed(c.Request.Context(), key)
	if err != nil {
		g.logger.Error("lockout check failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "login unavailable")
		return
	}
	if !decision.Allowed {
		entry := audit.NewEntry(key, audit.ActionLockoutReject, audit.OutcomeDenied)
		entry.ResourceType = "lockout"
		entry.ResourceID = key
		g.audit(c, entry)

		retryAfter := int(decision.RetryAfter.Seconds()) + 1
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":              CodeRateLimited,
			"message":           "too many failed attempts, try again later",
			"retryAfterSeconds": retryAfter,
		})
		return
	}

	vid, err := g.verifier.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		g.failLogin(c, key, err)
		return
	}

	if err := g.lockouts.RecordSuccess(c.Request.Context(), key); err != nil {
		g.logger.Warn("lockout reset failed", "error", err)
	}

	authed, err := g.sessions.Authenticate(c.Request.Context(), sess, vid.SubjectID)
	if err != nil {
		if session.IsConflict(err) {
			abortError(c, http.StatusConflict, CodeConcurrentModification, "concurrent session update, retry")
			return
		}
		g.logger.Error("session authenticate failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "failed to create session")
		return
	}

	if err := g.setSessionCookie(c, authed.Token); err != nil {
		g.logger.Error("session cookie write failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "failed to create session")
		return
	}

	entry := audit.NewEntry(vid.SubjectID, audit.ActionSessionCreate, audit.OutcomeSuccess)
	entry.ResourceType = "session"
	entry.ResourceID = authed.ID.String()
	g.audit(c, entry)

	g.publish(c, SessionEvent{
		Type:      EventLogin,
		SessionID: authed.ID,
		SubjectID: authed.SubjectID,
	})

	g.csrfResponse(c, authed.CSRFToken)
}

// failLogin maps a verification failure onto the client taxonomy and
// counts it against the lockout threshold. Provider outages are
// infrastructure failures, not rejected credentials, so they skip the
// counter entirely.
func (g *Gateway) failLogin(c *gin.Context, key string, verr error) {
	if errors.Is(verr, identity.ErrProviderUnreachable) {
		g.logger.Error("identity provider unreachable", "error", verr)
		abortError(c, http.StatusBadGateway, CodeProviderUnreachable, "identity provider unavailable, retry later")
		return
	}

	tripped, err := g.lockouts.RecordFailure(c.Request.Context(), key)
	if err != nil {
		g.logger.Error("lockout record failed", "error", err)
	}

	entry := audit.NewEntry(key, audit.ActionLoginFailure, audit.OutcomeFailure)
	entry.ResourceType = "lockout"
	entry.ResourceID = key
	g.audit(c, entry)

	if tripped {
		trip := audit.NewEntry(key, audit.ActionLockoutTrip, audit.OutcomeDenied)
		trip.ResourceType = "lockout"
		trip.ResourceID = key
		g.audit(c, trip)
	}

	if errors.Is(verr, identity.ErrExpiredAssertion) {
		abortError(c, http.StatusUnauthorized, CodeExpiredAssertion, "identity assertion has expired")
		return
	}
	abortError(c, http.StatusBadRequest, CodeInvalidAssertion, "identity assertion rejected")
}

// handleRefresh re-verifies identity and resets the proactive refresh
// clock. A rejected assertion is terminal: the session is revoked
// rather than silently kept alive on a stale identity. A provider
// outage keeps the session and asks the client to retry.
//
// Of two concurrent refreshes exactly one wins the version race. The
// loser sees 409 when its snapshot predates the winner's write, or 403
// when it resolved the session after the rotation already landed; in
// both cases the recovery is the same, fetch the current token and
// retry.
func (g *Gateway) handleRefresh(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok || !sess.IsAuthenticated() {
		abortError(c, http.StatusUnauthorized, CodeSessionNotFound, "no active session")
		return
	}
	if !g.requireCSRF(c, sess) {
		return
	}

	var req tokenRequest
	_ = c.ShouldBindJSON(&req)

	if req.IDToken != "" {
		vid, err := g.verifier.Verify(c.Request.Context(), req.IDToken)
		switch {
		case errors.Is(err, identity.ErrProviderUnreachable):
			g.logger.Error("identity provider unreachable on refresh", "error", err)
			abortError(c, http.StatusServiceUnavailable, CodeProviderUnreachable, "identity provider unavailable, retry later")
			return
		case err != nil, vid.SubjectID != sess.SubjectID:
			g.expireSession(c, sess)
			return
		}
	}

	refreshed, err := g.sessions.Refresh(c.Request.Context(), sess)
	if err != nil {
		if session.IsConflict(err) {
			abortError(c, http.StatusConflict, CodeConcurrentModification, "concurrent refresh, retry with the winner's token")
			return
		}
		g.logger.Error("session refresh failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "failed to refresh session")
		return
	}

	entry := audit.NewEntry(refreshed.SubjectID, audit.ActionSessionRefresh, audit.OutcomeSuccess)
	entry.ResourceType = "session"
	entry.ResourceID = refreshed.ID.String()
	g.audit(c, entry)

	g.publish(c, SessionEvent{
		Type:      EventRefresh,
		SessionID: refreshed.ID,
		SubjectID: refreshed.SubjectID,
	})

	g.csrfResponse(c, refreshed.CSRFToken)
}

// expireSession revokes a session whose identity re-verification was
// rejected and reports it as expired.
func (g *Gateway) expireSession(c *gin.Context, sess session.Session) {
	if err := g.sessions.Revoke(c.Request.Context(), sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		g.logger.Error("session revoke failed", "error", err)
	}
	g.cookies.Delete(c.Writer, g.cookieName)

	entry := audit.NewEntry(actorFor(sess), audit.ActionSessionExpire, audit.OutcomeDenied)
	entry.ResourceType = "session"
	entry.ResourceID = sess.ID.String()
	g.audit(c, entry)

	g.publish(c, SessionEvent{
		Type:      EventExpired,
		SessionID: sess.ID,
		SubjectID: sess.SubjectID,
	})

	abortError(c, http.StatusUnauthorized, CodeSessionExpired, "session expired, please authenticate again")
}

// handleLogout revokes the session. Idempotent from the client's view:
// the first call returns 204, a repeat returns 401 because the session
// no longer resolves.
func (g *Gateway) handleLogout(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, CodeSessionNotFound, "no session")
		return
	}
	if !g.requireCSRF(c, sess) {
		return
	}

	if err := g.sessions.Revoke(c.Request.Context(), sess.ID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			abortError(c, http.StatusUnauthorized, CodeSessionNotFound, "no session")
			return
		}
		g.logger.Error("session revoke failed", "error", err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "failed to log out")
		return
	}

	g.cookies.Delete(c.Writer, g.cookieName)

	entry := audit.NewEntry(actorFor(sess), audit.ActionSessionLogout, audit.OutcomeSuccess)
	entry.ResourceType = "session"
	entry.ResourceID = sess.ID.String()
	g.audit(c, entry)

	g.publish(c, SessionEvent{
		Type:      EventLogout,
		SessionID: sess.ID,
		SubjectID: sess.SubjectID,
	})

	c.Status(http.StatusNoContent)
}

// handleCSRFToken returns the current token without mutating the
// session, for clients recovering their token after a page reload.
func (g *Gateway) handleCSRFToken(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, CodeSessionNotFound, "no session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrfToken": sess.CSRFToken})
}

// requireCSRF validates the double-submit header against the session.
// A mismatch is audited and terminal for the request.
func (g *Gateway) requireCSRF(c *gin.Context, sess session.Session) bool {
	if g.sessions.ValidateCSRF(sess, c.GetHeader(middleware.CSRFHeader)) {
		return true
	}

	entry := audit.NewEntry(actorFor(sess), audit.ActionCSRFReject, audit.OutcomeDenied)
	entry.ResourceType = "session"
	entry.ResourceID = sess.ID.String()
	g.audit(c, entry)

	abortError(c, http.StatusForbidden, CodeCSRFMismatch, "csrf token mismatch")
	return false
}

// csrfResponse returns the rotated token in both header and body.
func (g *Gateway) csrfResponse(c *gin.Context, token string) {
	c.Header(middleware.CSRFHeader, token)
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

func (g *Gateway) setSessionCookie(c *gin.Context, token string) error {
	return g.cookies.SetSigned(c.Writer, g.cookieName, token,
		cookie.WithMaxAge(int(g.sessions.TTL().Seconds())))
}

// audit stamps request metadata on the entry and records it,
// fire-and-forget.
func (g *Gateway) audit(c *gin.Context, entry audit.Entry) {
	entry.IPAddress = clientIP(c)
	entry.UserAgent = c.Request.UserAgent()
	g.recorder.Record(entry)
}

// emailHint extracts the email claim without verifying the assertion.
// Used only to build the lockout key before verification runs; the
// claim is never trusted for anything else.
func emailHint(idToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

func actorFor(sess session.Session) string {
	if sess.SubjectID != "" {
		return sess.SubjectID
	}
	return "anonymous"
}
