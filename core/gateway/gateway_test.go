package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/core/audit"
	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/csrf"
	"github.com/dmitrymomot/authgate/core/gateway"
	"github.com/dmitrymomot/authgate/core/identity"
	"github.com/dmitrymomot/authgate/core/lockout"
	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/middleware"
	"github.com/dmitrymomot/authgate/pkg/broadcast"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubVerifier lets each test script the identity provider's answer
// and observe whether verification was consulted at all.
type stubVerifier struct {
	mu       sync.Mutex
	identity identity.VerifiedIdentity
	err      error
	calls    atomic.Int64
}

func (v *stubVerifier) Verify(ctx context.Context, assertion string) (identity.VerifiedIdentity, error) {
	v.calls.Add(1)
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return identity.VerifiedIdentity{}, v.err
	}
	return v.identity, nil
}

func (v *stubVerifier) set(id identity.VerifiedIdentity, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.identity = id
	v.err = err
}

// recordingStore captures audit entries for assertions.
type recordingStore struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingStore) Append(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingStore) actions() []audit.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]audit.Action, len(s.entries))
	for i, e := range s.entries {
		actions[i] = e.Action
	}
	return actions
}

type testEnv struct {
	router   *gin.Engine
	verifier *stubVerifier
	auditLog *recordingStore
	events   *broadcast.MemoryBroadcaster[gateway.SessionEvent]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cookies, err := cookie.New([]string{"test-secret-0123456789abcdefghijklmnop"})
	require.NoError(t, err)

	sessions := session.NewManager(session.NewMemoryStore(), csrf.New())
	lockouts := lockout.NewGuard(lockout.NewMemoryStore())
	verifier := &stubVerifier{identity: identity.VerifiedIdentity{SubjectID: "user-1", Email: "user@example.com"}}

	auditLog := &recordingStore{}
	recorder := audit.NewRecorder(auditLog)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = recorder.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	events := broadcast.NewMemoryBroadcaster[gateway.SessionEvent](16)
	t.Cleanup(func() { _ = events.Close() })

	gw := gateway.New(sessions, cookies, verifier, lockouts, recorder,
		gateway.WithBroadcaster(events))

	router := gin.New()
	router.Use(middleware.ClientIP())
	gw.Routes(router)

	return &testEnv{
		router:   router,
		verifier: verifier,
		auditLog: auditLog,
		events:   events,
	}
}

// client is a minimal cookie-jar HTTP client against the test router.
type client struct {
	t      *testing.T
	env    *testEnv
	jar    map[string]*http.Cookie
	lastIP string
}

func newClient(t *testing.T, env *testEnv) *client {
	return &client{t: t, env: env, jar: make(map[string]*http.Cookie)}
}

func (cl *client) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	cl.t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(cl.t, err)
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if cl.lastIP != "" {
		req.Header.Set("X-Real-IP", cl.lastIP)
	}
	for _, c := range cl.jar {
		req.AddCookie(c)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	cl.env.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(cl.jar, c.Name)
			continue
		}
		cl.jar[c.Name] = c
	}
	return w
}

func (cl *client) csrfToken(w *httptest.ResponseRecorder) string {
	cl.t.Helper()

	var resp struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(cl.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(cl.t, resp.CSRFToken)
	return resp.CSRFToken
}

func (cl *client) initSession() string {
	cl.t.Helper()

	w := cl.do(http.MethodPost, "/auth/session/init", nil, nil)
	require.Equal(cl.t, http.StatusOK, w.Code)
	return cl.csrfToken(w)
}

func (cl *client) login(csrfToken string) *httptest.ResponseRecorder {
	cl.t.Helper()
	return cl.do(http.MethodPost, "/auth/session", gin.H{"idToken": "assertion"}, map[string]string{
		middleware.CSRFHeader: csrfToken,
	})
}

func TestGateway_EndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	// init hands out T0 and the anonymous session cookie.
	t0 := cl.initSession()
	require.Contains(t, cl.jar, middleware.DefaultSessionCookie)
	anonCookie := cl.jar[middleware.DefaultSessionCookie].Value

	// login with T0 returns rotated T1 and a rotated session cookie.
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)
	assert.NotEqual(t, t0, t1)
	assert.NotEqual(t, anonCookie, cl.jar[middleware.DefaultSessionCookie].Value)

	// a read with the cookie needs no CSRF header.
	w = cl.do(http.MethodGet, "/auth/csrf-token", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, t1, cl.csrfToken(w))

	// the stale T0 is rejected on a state-changing request.
	w = cl.do(http.MethodPost, "/auth/session/refresh", nil, map[string]string{
		middleware.CSRFHeader: t0,
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "csrf_mismatch")

	// T1 succeeds and yields T2.
	w = cl.do(http.MethodPost, "/auth/session/refresh", nil, map[string]string{
		middleware.CSRFHeader: t1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	t2 := cl.csrfToken(w)
	assert.NotEqual(t, t1, t2)
}

func TestGateway_LoginWithoutInit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	w := cl.login("some-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session_not_found")
}

func TestGateway_LoginRejectsStaleCSRF(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	cl.initSession()
	w := cl.login("not-the-issued-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "csrf_mismatch")
}

func TestGateway_LockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.verifier.set(identity.VerifiedIdentity{}, identity.ErrInvalidSignature)

	cl := newClient(t, env)
	cl.lastIP = "203.0.113.50"
	t0 := cl.initSession()

	// Attempts 1-5 reach the verifier and fail.
	for i := 0; i < 5; i++ {
		w := cl.login(t0)
		require.Equal(t, http.StatusBadRequest, w.Code, "attempt %d", i+1)
	}
	require.EqualValues(t, 5, env.verifier.calls.Load())

	// Attempt 6 is rejected before verification.
	w := cl.login(t0)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retryAfterSeconds")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.EqualValues(t, 5, env.verifier.calls.Load())
}

func TestGateway_ProviderOutageDoesNotCountTowardLockout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.verifier.set(identity.VerifiedIdentity{}, identity.ErrProviderUnreachable)

	cl := newClient(t, env)
	cl.lastIP = "203.0.113.51"
	t0 := cl.initSession()

	for i := 0; i < 8; i++ {
		w := cl.login(t0)
		require.Equal(t, http.StatusBadGateway, w.Code)
	}

	// The provider recovers; login proceeds, no lockout accrued.
	env.verifier.set(identity.VerifiedIdentity{SubjectID: "user-1"}, nil)
	w := cl.login(t0)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGateway_SuccessResetsLockoutCounter(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.verifier.set(identity.VerifiedIdentity{}, identity.ErrInvalidSignature)

	cl := newClient(t, env)
	cl.lastIP = "203.0.113.52"
	t0 := cl.initSession()

	for i := 0; i < 4; i++ {
		w := cl.login(t0)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	env.verifier.set(identity.VerifiedIdentity{SubjectID: "user-1"}, nil)
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	// Counter was reset: four more failures still don't lock.
	env.verifier.set(identity.VerifiedIdentity{}, identity.ErrInvalidSignature)
	for i := 0; i < 4; i++ {
		w := cl.login(t1)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestGateway_IdempotentLogout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	w = cl.do(http.MethodPost, "/auth/logout", nil, map[string]string{
		middleware.CSRFHeader: t1,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	// The cookie is gone from the jar; a repeat has no session.
	w = cl.do(http.MethodPost, "/auth/logout", nil, map[string]string{
		middleware.CSRFHeader: t1,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session_not_found")
}

func TestGateway_RefreshFailureIsTerminal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	// Refresh presenting a rejected assertion revokes the session.
	env.verifier.set(identity.VerifiedIdentity{}, identity.ErrExpiredAssertion)
	w = cl.do(http.MethodPost, "/auth/session/refresh", gin.H{"idToken": "stale"}, map[string]string{
		middleware.CSRFHeader: t1,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session_expired")

	// Nothing resolves afterwards.
	w = cl.do(http.MethodGet, "/auth/csrf-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGateway_RefreshKeepsSessionOnProviderOutage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	env.verifier.set(identity.VerifiedIdentity{}, identity.ErrProviderUnreachable)
	w = cl.do(http.MethodPost, "/auth/session/refresh", gin.H{"idToken": "token"}, map[string]string{
		middleware.CSRFHeader: t1,
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The session survives the outage.
	w = cl.do(http.MethodGet, "/auth/csrf-token", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGateway_RefreshExtendsCookieLifetime(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	// Without a re-issued cookie the browser would discard the session
	// at login+TTL even while the server-side window keeps sliding.
	w = cl.do(http.MethodPost, "/auth/session/refresh", nil, map[string]string{
		middleware.CSRFHeader: t1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var reissued *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.DefaultSessionCookie {
			reissued = c
		}
	}
	require.NotNil(t, reissued, "refresh must re-issue the session cookie")
	assert.Equal(t, int((2 * time.Hour).Seconds()), reissued.MaxAge)
}

func TestGateway_ConcurrentRefreshSingleWinner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	sessCookie := cl.jar[middleware.DefaultSessionCookie]
	refresh := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/session/refresh", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.CSRFHeader, t1)
		req.AddCookie(sessCookie)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = refresh()
		}()
	}
	wg.Wait()

	winner, loser := results[0], results[1]
	if winner.Code != http.StatusOK {
		winner, loser = loser, winner
	}
	require.Equal(t, http.StatusOK, winner.Code, "exactly one refresh must win")
	// The loser's snapshot either predates the winner's write (conflict)
	// or postdates the rotation (stale token); never a second success.
	assert.Contains(t, []int{http.StatusConflict, http.StatusForbidden}, loser.Code)

	// Only the winner's token still validates.
	t2 := cl.csrfToken(winner)
	w = cl.do(http.MethodPost, "/auth/session/refresh", nil, map[string]string{
		middleware.CSRFHeader: t2,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGateway_AuditTrail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cl := newClient(t, env)

	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)
	t1 := cl.csrfToken(w)

	w = cl.do(http.MethodPost, "/auth/logout", nil, map[string]string{
		middleware.CSRFHeader: t1,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Eventually(t, func() bool {
		actions := env.auditLog.actions()
		return containsAction(actions, audit.ActionSessionInit) &&
			containsAction(actions, audit.ActionSessionCreate) &&
			containsAction(actions, audit.ActionSessionLogout)
	}, time.Second, 10*time.Millisecond)
}

func TestGateway_PublishesSessionEvents(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	sub := env.events.Subscribe(t.Context())
	defer sub.Close()

	cl := newClient(t, env)
	t0 := cl.initSession()
	w := cl.login(t0)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case msg := <-sub.Receive(t.Context()):
		assert.Equal(t, gateway.EventLogin, msg.Data.Type)
		assert.Equal(t, "user-1", msg.Data.SubjectID)
	case <-time.After(time.Second):
		t.Fatal("no session event received")
	}
}

func containsAction(actions []audit.Action, want audit.Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
