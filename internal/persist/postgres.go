package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/buildgrid/siteops/backend/internal/metrics"
)

// Schema is the DDL for the cache_entries table. Applied by EnsureSchema;
// kept here so deployments without migration tooling can bootstrap.
const Schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cache_entries_expires_at_idx ON cache_entries (expires_at);
`

// PostgresStore persists cache entries as JSONB rows.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
// statementTimeout > 0 sets a server-side statement_timeout on every
// pooled connection so a runaway query cannot hold one indefinitely.
func Open(dsn string, statementTimeout time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", withStatementTimeout(dsn, statementTimeout))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// withStatementTimeout folds the timeout into the DSN's server options,
// handling both URL and keyword/value DSN forms. A DSN that already
// carries server options is left untouched.
func withStatementTimeout(dsn string, d time.Duration) string {
	if d <= 0 {
		return dsn
	}
	opt := fmt.Sprintf("-c statement_timeout=%d", d.Milliseconds())

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		if q.Get("options") != "" {
			return dsn
		}
		q.Set("options", opt)
		u.RawQuery = q.Encode()
		return u.String()
	}

	if strings.Contains(dsn, "options=") {
		return dsn
	}
	return fmt.Sprintf("%s options='%s'", dsn, opt)
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the cache_entries table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// DB exposes the underlying pool for health probes.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, key string, value any, expiresAt time.Time) error {
	defer observe("save", time.Now())

	payload, err := json.Marshal(value)
	if err != nil {
		metrics.PersistOperationErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}
	raw := pqtype.NullRawMessage{RawMessage: payload, Valid: true}

	const q = `
		INSERT INTO cache_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, q, key, raw, expiresAt); err != nil {
		metrics.PersistOperationErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) (json.RawMessage, bool, error) {
	defer observe("load", time.Now())

	var raw pqtype.NullRawMessage
	const q = `SELECT value FROM cache_entries WHERE key = $1 AND expires_at > now()`
	err := s.db.QueryRowContext(ctx, q, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		metrics.PersistOperationErrors.WithLabelValues("load").Inc()
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}
	if !raw.Valid {
		return nil, false, nil
	}
	return raw.RawMessage, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	defer observe("delete", time.Now())

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		metrics.PersistOperationErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	defer observe("purge", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, now)
	if err != nil {
		metrics.PersistOperationErrors.WithLabelValues("purge").Inc()
		return 0, fmt.Errorf("purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// The delete itself succeeded; only the count is unknown.
		metrics.PersistOperationErrors.WithLabelValues("purge").Inc()
		return 0, fmt.Errorf("purge row count: %w", err)
	}
	return n, nil
}

func observe(op string, start time.Time) {
	metrics.PersistOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
