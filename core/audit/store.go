package audit

import (
	"context"
	"log/slog"
)

// Store persists audit entries. Append must not return until the entry
// is durably written; the recorder's worker relies on that to make
// best-effort delivery meaningful.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// LogStore writes entries to a structured logger. The development and
// last-resort store: durable only as far as the log pipeline is.
type LogStore struct {
	logger *slog.Logger
}

// NewLogStore creates a logger-backed audit store.
func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

// Append logs the entry at info level.
func (s *LogStore) Append(ctx context.Context, entry Entry) error {
	s.logger.InfoContext(ctx, "audit",
		slog.String("id", entry.ID.String()),
		slog.String("actor", entry.Actor),
		slog.String("action", string(entry.Action)),
		slog.String("resource_type", entry.ResourceType),
		slog.String("resource_id", entry.ResourceID),
		slog.String("outcome", string(entry.Outcome)),
		slog.String("ip", entry.IPAddress),
		slog.String("user_agent", entry.UserAgent),
		slog.Time("created_at", entry.CreatedAt),
		slog.Any("details", entry.Details),
	)
	return nil
}
