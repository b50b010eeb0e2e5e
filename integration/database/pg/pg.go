package pg

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config contains configuration for the PostgreSQL connection pool.
type Config struct {
	ConnectionURL   string        `env:"PG_CONN_URL,required"`
	MaxConns        int32         `env:"PG_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"PG_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	RetryAttempts   int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout  time.Duration `env:"PG_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect establishes a PostgreSQL connection pool with automatic
// retries and verifies it with a ping before returning. The caller
// owns the returned pool and must Close it.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnectionURL, err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(cfg.RetryInterval),
		uint64(cfg.RetryAttempts),
	), connectCtx)

	pool, err := backoff.RetryWithData(func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(connectCtx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}, policy)
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}

	return pool, nil
}

// Healthcheck returns a function suitable for readiness probes.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
