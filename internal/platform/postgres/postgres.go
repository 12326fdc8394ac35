package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Schema creates the registry tables. Statements are idempotent so startup
// can run them unconditionally.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	address       TEXT PRIMARY KEY,
	role          TEXT NOT NULL,
	registered    BOOLEAN NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	department    TEXT NOT NULL DEFAULT '',
	badge_number  TEXT,
	email         TEXT,
	registered_at TIMESTAMPTZ NOT NULL,
	last_seen_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence (
	id           TEXT PRIMARY KEY,
	case_id      TEXT NOT NULL,
	submitted_by TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	content_id   TEXT NOT NULL,
	anchor_id    TEXT NOT NULL,
	status       TEXT NOT NULL,
	priority     TEXT NOT NULL,
	assigned_to  TEXT,
	reviewed_by  TEXT,
	reviewed_at  TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL,
	metadata     JSONB NOT NULL,
	tags         JSONB NOT NULL DEFAULT '[]',
	enrichment   JSONB
);

CREATE INDEX IF NOT EXISTS evidence_case_idx ON evidence (case_id);
CREATE INDEX IF NOT EXISTS evidence_submitter_idx ON evidence (submitted_by);
`

// Open connects through the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema applies the registry schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
