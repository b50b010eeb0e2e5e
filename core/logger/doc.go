// Package logger builds structured slog loggers with environment
// presets and nil-safe attribute helpers.
//
//	log := logger.New(logger.WithDevelopment("authgate"))
//	log.Error("connect failed", logger.Component("redis"), logger.Error(err))
package logger
