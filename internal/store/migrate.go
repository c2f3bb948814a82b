package store

import (
	"context"
	"fmt"
)

// migrate runs database migrations.
func (s *Store) migrate(ctx context.Context) error {
	if err := s.createInteractionsTable(ctx); err != nil {
		return err
	}
	return s.createRegistryTables(ctx)
}

func (s *Store) createInteractionsTable(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS interactions (
		id           TEXT PRIMARY KEY,
		screen_id    TEXT NOT NULL,
		color        TEXT NOT NULL,
		user_name    TEXT,
		device_hash  TEXT NOT NULL,
		is_bonus     INTEGER NOT NULL DEFAULT 0,
		clicked_at   TEXT NOT NULL,
		displayed_at TEXT,
		lag_ms       INTEGER,
		created_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_screen ON interactions(screen_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_clicked ON interactions(clicked_at);
	CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create interactions table: %w", err)
	}
	return nil
}

// createRegistryTables creates the screen registry tables. The registry is
// owned by the external CRUD layer; this core only reads it (the write
// helpers exist for seeding and tests).
func (s *Store) createRegistryTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS screens (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		location   TEXT,
		live       INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS campaigns (
		id         TEXT PRIMARY KEY,
		screen_id  TEXT NOT NULL,
		brand_name TEXT NOT NULL,
		coupon     TEXT,
		starts_at  TEXT NOT NULL,
		ends_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_screen ON campaigns(screen_id, starts_at, ends_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create registry tables: %w", err)
	}
	return nil
}
