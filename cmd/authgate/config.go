package main

import (
	"time"

	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/identity"
	"github.com/dmitrymomot/authgate/core/lockout"
	"github.com/dmitrymomot/authgate/core/session"
)

// Config aggregates all environment configuration for the gateway
// binary. Store backends are selected by name so a single instance can
// run on memory stores in development and shared stores in production
// without code changes.
type Config struct {
	AppName         string        `env:"APP_NAME" envDefault:"authgate"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	ListenAddr      string        `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// SessionStore selects the session and lockout backend: "memory"
	// or "redis". Multi-instance deployments need redis so all
	// instances share session and lockout truth.
	SessionStore string `env:"SESSION_STORE" envDefault:"memory"`

	// AuditStore selects the audit backend: "log" or "postgres".
	AuditStore string `env:"AUDIT_STORE" envDefault:"log"`

	Session  session.Config
	Cookie   cookie.Config
	Identity identity.Config
	Lockout  lockout.Config
}
