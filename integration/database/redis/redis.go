package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Config contains configuration for the Redis connection.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect establishes a Redis connection with automatic retries and
// verifies it with a ping before returning. The caller owns the
// returned client and must Close it.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnectionURL, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(cfg.RetryInterval),
		uint64(cfg.RetryAttempts),
	), connectCtx)

	client, err := backoff.RetryWithData(func() (*redis.Client, error) {
		client := redis.NewClient(opts)
		if err := client.Ping(connectCtx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	}, policy)
	if err != nil {
		return nil, errors.Join(ErrFailedToConnectToRedis, err)
	}

	return client, nil
}

// Healthcheck returns a function suitable for readiness probes.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
