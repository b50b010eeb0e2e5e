package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authgate/core/audit"
)

// AuditSchema is the DDL for the append-only audit table. Apply it
// once during deployment; there are no UPDATE or DELETE paths in code.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            UUID PRIMARY KEY,
	actor         TEXT        NOT NULL,
	action        TEXT        NOT NULL,
	resource_type TEXT        NOT NULL DEFAULT '',
	resource_id   TEXT        NOT NULL DEFAULT '',
	outcome       TEXT        NOT NULL,
	ip_address    TEXT        NOT NULL DEFAULT '',
	user_agent    TEXT        NOT NULL DEFAULT '',
	details       JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_actor_idx ON audit_log (actor, created_at);
CREATE INDEX IF NOT EXISTS audit_log_action_idx ON audit_log (action, created_at);
`

// AuditStore implements audit.Store on PostgreSQL. Append returns only
// after the row is committed, which is what makes the recorder's
// best-effort delivery meaningful.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a PostgreSQL-backed audit store.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Migrate applies the audit table schema.
func (s *AuditStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, AuditSchema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Append inserts one audit entry.
func (s *AuditStore) Append(ctx context.Context, entry audit.Entry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return err
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log
			(id, actor, action, resource_type, resource_id, outcome, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID,
		entry.Actor,
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		string(entry.Outcome),
		entry.IPAddress,
		entry.UserAgent,
		details,
		entry.CreatedAt,
	)
	return err
}
