package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sqlc-dev/pqtype"

	"github.com/buildgrid/siteops/backend/internal/logger"
)

// Schema is the DDL for the audit_events table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id          BIGSERIAL PRIMARY KEY,
    actor       TEXT NOT NULL,
    action      TEXT NOT NULL,
    resource    TEXT NOT NULL,
    metadata    JSONB,
    occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_occurred_at_idx ON audit_events (occurred_at);
CREATE INDEX IF NOT EXISTS audit_events_resource_idx ON audit_events (resource);
`

// PostgresSink writes audit events as rows.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink wraps an existing connection pool.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the audit_events table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *PostgresSink) Write(ctx context.Context, e Event) error {
	var meta pqtype.NullRawMessage
	if len(e.Metadata) > 0 {
		payload, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		meta = pqtype.NullRawMessage{RawMessage: payload, Valid: true}
	}

	const q = `
		INSERT INTO audit_events (actor, action, resource, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, q, e.Actor, e.Action, e.Resource, meta, e.OccurredAt); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// SlogSink writes audit events to the structured log. Useful in
// development and as a fallback when no database is configured.
type SlogSink struct {
	log *slog.Logger
}

// NewSlogSink creates a sink logging under the audit component.
func NewSlogSink() *SlogSink {
	return &SlogSink{log: logger.WithComponent("audit")}
}

func (s *SlogSink) Write(ctx context.Context, e Event) error {
	s.log.Info("audit event",
		"actor", e.Actor,
		"action", e.Action,
		"resource", e.Resource,
		"metadata", e.Metadata,
		"occurred_at", e.OccurredAt,
	)
	return nil
}
