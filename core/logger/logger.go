package logger

import (
	"io"
	"log/slog"
	"os"
)

type config struct {
	writer  io.Writer
	level   slog.Level
	json    bool
	appName string
}

// Option configures the logger factory.
type Option func(*config)

// WithDevelopment configures human-readable text output at debug level.
func WithDevelopment(appName string) Option {
	return func(c *config) {
		c.appName = appName
		c.level = slog.LevelDebug
		c.json = false
	}
}

// WithProduction configures JSON output at info level.
func WithProduction(appName string) Option {
	return func(c *config) {
		c.appName = appName
		c.level = slog.LevelInfo
		c.json = true
	}
}

// WithLevel overrides the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithWriter overrides the output destination. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writer = w
		}
	}
}

// WithJSONFormatter forces JSON output regardless of environment.
func WithJSONFormatter() Option {
	return func(c *config) {
		c.json = true
	}
}

// New creates a structured logger. Without options it is a text logger
// at info level on stdout.
func New(opts ...Option) *slog.Logger {
	cfg := config{
		writer: os.Stdout,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}

	var handler slog.Handler
	if cfg.json {
		handler = slog.NewJSONHandler(cfg.writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(cfg.writer, handlerOpts)
	}

	log := slog.New(handler)
	if cfg.appName != "" {
		log = log.With(slog.String("app", cfg.appName))
	}
	return log
}
