package pg

import "errors"

var (
	ErrEmptyConnectionURL         = errors.New("empty connection URL")
	ErrFailedToParseConnectionURL = errors.New("failed to parse connection URL")
	ErrFailedToConnect            = errors.New("failed to connect to postgres")
	ErrHealthcheckFailed          = errors.New("postgres healthcheck failed")
	ErrMigrationFailed            = errors.New("audit schema migration failed")
)
