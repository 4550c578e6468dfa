package store

import (
	"context"
	"time"
)

// The partial unique index active_child_uq is what enforces the
// one-active-record-per-child invariant: a concurrent duplicate check-in
// fails with a unique violation instead of silently double-writing.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS children (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		guardian_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		child_id TEXT NOT NULL,
		guardian_id TEXT NOT NULL,
		course_id TEXT,
		check_in_staff_id TEXT NOT NULL,
		check_out_staff_id TEXT,
		check_in_at TIMESTAMPTZ NOT NULL,
		check_out_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'checked-in',
		notes TEXT,
		check_in_loc JSONB,
		check_out_loc JSONB,
		check_in_photo_url TEXT,
		check_out_photo_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS active_child_uq
		ON attendance_records (child_id) WHERE status = 'checked-in'`,
	`CREATE INDEX IF NOT EXISTS attendance_records_child_idx
		ON attendance_records (child_id, check_in_at DESC)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (d *DB) SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error {
	_, err := d.Client.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, device_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, deviceID, expiresAt)
	return err
}
