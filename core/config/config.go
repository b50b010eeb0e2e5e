package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cache   sync.Map // reflect.Type -> parsed config value
	loadEnv sync.Once
)

// Load parses environment variables into cfg, which must be a non-nil
// pointer to a struct. Each distinct struct type is parsed once per
// process; later calls return the cached value so every subsystem sees
// the same configuration.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	// Best-effort .env loading; absence of the file is not an error.
	loadEnv.Do(func() {
		_ = godotenv.Load()
	})

	typ := reflect.TypeOf(*cfg)
	if cached, ok := cache.Load(typ); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	actual, _ := cache.LoadOrStore(typ, *cfg)
	*cfg = actual.(T)
	return nil
}

// MustLoad is Load that panics on failure. Intended for application
// startup where a missing required variable should abort the process.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
