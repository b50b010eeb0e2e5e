package gateway

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/dmitrymomot/authgate/core/audit"
	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/identity"
	"github.com/dmitrymomot/authgate/core/lockout"
	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/middleware"
	"github.com/dmitrymomot/authgate/pkg/broadcast"
)

// Gateway composes the session, identity, lockout, and audit layers
// into the HTTP auth surface. Each handler drives one transition of
// the per-session lifecycle; a failed check is terminal for the
// request and leaves session state untouched.
type Gateway struct {
	sessions   *session.Manager
	cookies    *cookie.Manager
	verifier   identity.Verifier
	lockouts   *lockout.Guard
	recorder   *audit.Recorder
	events     broadcast.Broadcaster[SessionEvent]
	logger     *slog.Logger
	cookieName string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(g *Gateway) {
		if name != "" {
			g.cookieName = name
		}
	}
}

// WithBroadcaster wires a session event stream. Every lifecycle
// transition is published so downstream components can observe
// auth-state changes without callback registration.
func WithBroadcaster(events broadcast.Broadcaster[SessionEvent]) Option {
	return func(g *Gateway) {
		g.events = events
	}
}

// New creates a gateway over the given collaborators.
func New(
	sessions *session.Manager,
	cookies *cookie.Manager,
	verifier identity.Verifier,
	lockouts *lockout.Guard,
	recorder *audit.Recorder,
	opts ...Option,
) *Gateway {
	g := &Gateway{
		sessions:   sessions,
		cookies:    cookies,
		verifier:   verifier,
		lockouts:   lockouts,
		recorder:   recorder,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		cookieName: middleware.DefaultSessionCookie,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Routes registers the auth endpoints. Init runs without session
// resolution so a client holding a dead cookie can always bootstrap;
// everything else resolves the session cookie first.
func (g *Gateway) Routes(r gin.IRouter) {
	auth := r.Group("/auth")
	auth.POST("/session/init", g.handleInit)

	sessioned := auth.Group("", middleware.Session(
		g.sessions, g.cookies,
		middleware.WithSessionCookie(g.cookieName),
		middleware.WithAuditRecorder(g.recorder),
	))
	sessioned.POST("/session", g.handleLogin)
	sessioned.POST("/session/refresh", g.handleRefresh)
	sessioned.POST("/logout", g.handleLogout)
	sessioned.GET("/csrf-token", g.handleCSRFToken)
}

// clientIP prefers the extraction middleware's result and falls back
// to gin's own resolution when the middleware is not installed.
func clientIP(c *gin.Context) string {
	if ip := middleware.ClientIPFromContext(c); ip != "" {
		return ip
	}
	return c.ClientIP()
}
