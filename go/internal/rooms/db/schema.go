package db

import (
	"context"
	"fmt"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rooms (
    id             UUID PRIMARY KEY,
    slug           TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL,
    created_by_id  UUID NOT NULL REFERENCES users(id),
    canvas_data    JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS rooms_updated_at_idx ON rooms (updated_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
    id             TEXT PRIMARY KEY,
    slug           TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL,
    created_by_id  TEXT NOT NULL REFERENCES users(id),
    canvas_data    BLOB,
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS rooms_updated_at_idx ON rooms (updated_at DESC);
`

// Schema returns the DDL for the dialect
func Schema(dialect Dialect) string {
	if dialect == SQLite {
		return sqliteSchema
	}
	return postgresSchema
}

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, conn DBTX, dialect Dialect) error {
	if _, err := conn.ExecContext(ctx, Schema(dialect)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
