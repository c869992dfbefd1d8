// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates the poll record table and its index.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// One statement per Exec
var schema = []string{
	`CREATE TABLE IF NOT EXISTS poll_record (
    record_key TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL,
    creator_id TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    version BIGINT NOT NULL DEFAULT 1,
    payload TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_record_creator ON poll_record(creator_id, created_at)`,
}
