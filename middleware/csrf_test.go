package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/middleware"
)

func TestCSRF_SafeMethodPassesWithoutToken(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	cookies := newTestCookies(t)

	r := gin.New()
	r.Use(middleware.Session(manager, cookies), middleware.CSRF(manager))
	r.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRF_RejectsMissingToken(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	cookies := newTestCookies(t)

	sess, err := manager.Create(t.Context(), session.NewSessionParams{IP: "203.0.113.7"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Session(manager, cookies), middleware.CSRF(manager))
	r.POST("/action", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/action", nil)
	req.AddCookie(sessionCookie(t, cookies, sess.Token))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "csrf token mismatch")
}

func TestCSRF_RejectsWithoutSession(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	cookies := newTestCookies(t)

	r := gin.New()
	r.Use(middleware.Session(manager, cookies), middleware.CSRF(manager))
	r.POST("/action", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/action", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRF_ValidTokenIsConsumedAndRotated(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	cookies := newTestCookies(t)

	sess, err := manager.Create(t.Context(), session.NewSessionParams{IP: "203.0.113.7"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Session(manager, cookies), middleware.CSRF(manager))
	r.POST("/action", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/action", nil)
	req.AddCookie(sessionCookie(t, cookies, sess.Token))
	req.Header.Set(middleware.CSRFHeader, sess.CSRFToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)

	next := w.Header().Get(middleware.CSRFHeader)
	require.NotEmpty(t, next)
	assert.NotEqual(t, sess.CSRFToken, next)

	// The old token must not validate again.
	replay := httptest.NewRequest(http.MethodPost, "/action", nil)
	replay.AddCookie(sessionCookie(t, cookies, sess.Token))
	replay.Header.Set(middleware.CSRFHeader, sess.CSRFToken)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, replay)
	assert.Equal(t, http.StatusForbidden, w2.Code)

	// The rotated one must.
	retry := httptest.NewRequest(http.MethodPost, "/action", nil)
	retry.AddCookie(sessionCookie(t, cookies, sess.Token))
	retry.Header.Set(middleware.CSRFHeader, next)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, retry)
	assert.Equal(t, http.StatusNoContent, w3.Code)
}

func TestCSRF_RejectionLeavesTokenIntact(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t)
	cookies := newTestCookies(t)

	sess, err := manager.Create(t.Context(), session.NewSessionParams{IP: "203.0.113.7"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Session(manager, cookies), middleware.CSRF(manager))
	r.POST("/action", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// A rejected request must not rotate the stored token.
	bad := httptest.NewRequest(http.MethodPost, "/action", nil)
	bad.AddCookie(sessionCookie(t, cookies, sess.Token))
	bad.Header.Set(middleware.CSRFHeader, "wrong-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, bad)
	require.Equal(t, http.StatusForbidden, w.Code)

	good := httptest.NewRequest(http.MethodPost, "/action", nil)
	good.AddCookie(sessionCookie(t, cookies, sess.Token))
	good.Header.Set(middleware.CSRFHeader, sess.CSRFToken)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, good)
	assert.Equal(t, http.StatusNoContent, w2.Code)
}
