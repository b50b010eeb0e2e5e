package lockout

import "time"

// Config holds lockout guard configuration.
type Config struct {
	// MaxAttempts is the failure count that trips a lock.
	MaxAttempts int `env:"LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`
	// FailureWindow bounds the fixed counting window.
	FailureWindow time.Duration `env:"LOCKOUT_FAILURE_WINDOW" envDefault:"15m"`
	// CooldownPeriod is how long a tripped lock holds.
	CooldownPeriod time.Duration `env:"LOCKOUT_COOLDOWN" envDefault:"15m"`
}

func defaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		FailureWindow:  15 * time.Minute,
		CooldownPeriod: 15 * time.Minute,
	}
}

// Option is a functional option for configuring the guard.
type Option func(*Config)

// WithMaxAttempts sets the failure threshold.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithFailureWindow sets the fixed counting window.
func WithFailureWindow(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.FailureWindow = d
		}
	}
}

// WithCooldownPeriod sets the lock duration.
func WithCooldownPeriod(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CooldownPeriod = d
		}
	}
}

// WithConfig applies an environment-driven configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		if cfg.MaxAttempts > 0 {
			c.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.FailureWindow > 0 {
			c.FailureWindow = cfg.FailureWindow
		}
		if cfg.CooldownPeriod > 0 {
			c.CooldownPeriod = cfg.CooldownPeriod
		}
	}
}
