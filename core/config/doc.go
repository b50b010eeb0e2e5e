// Package config provides type-safe environment variable loading with
// caching using Go generics. Each configuration type is loaded once and
// cached for subsequent calls, so independently wired subsystems share
// a consistent view of the environment.
//
// A .env file is loaded automatically on first use; parsing is handled
// by the caarlos0/env library.
//
//	type RedisConfig struct {
//		URL string `env:"REDIS_URL,required"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package config
