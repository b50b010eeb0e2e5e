package session

import "time"

// Config holds session manager configuration.
type Config struct {
	// TTL is the sliding inactivity timeout.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	// RefreshWindow is the proactive refresh interval. Must be shorter
	// than TTL so the provider token is renewed before it expires.
	RefreshWindow time.Duration `env:"SESSION_REFRESH_WINDOW" envDefault:"50m"`
	// TouchInterval throttles activity writes: the sliding window is
	// only persisted when this much time has passed since the last
	// update. Zero persists on every request.
	TouchInterval time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"0"`
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		TTL:           2 * time.Hour,
		RefreshWindow: 50 * time.Minute,
		TouchInterval: 0,
	}
}

// Option is a functional option for configuring the session manager.
type Option func(*Config)

// WithTTL sets the sliding inactivity timeout.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.TTL = ttl
		}
	}
}

// WithRefreshWindow sets the proactive refresh interval.
func WithRefreshWindow(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RefreshWindow = d
		}
	}
}

// WithTouchInterval sets the minimum time between persisted activity
// updates. Zero disables throttling.
func WithTouchInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.TouchInterval = d
		}
	}
}

// WithConfig replaces the whole configuration, for environment-driven setup.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		if cfg.TTL > 0 {
			c.TTL = cfg.TTL
		}
		if cfg.RefreshWindow > 0 {
			c.RefreshWindow = cfg.RefreshWindow
		}
		if cfg.TouchInterval >= 0 {
			c.TouchInterval = cfg.TouchInterval
		}
	}
}
