package redis

import "errors"

var (
	ErrEmptyConnectionURL         = errors.New("empty connection URL")
	ErrFailedToParseConnectionURL = errors.New("failed to parse connection URL")
	ErrFailedToConnectToRedis     = errors.New("failed to connect to redis")
	ErrHealthcheckFailed          = errors.New("redis healthcheck failed")
)
