package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Reel store (SQLite).
//
// Timestamp columns are declared DATETIME: the driver only decodes a column
// into time.Time when its declared type is DATE, DATETIME or TIMESTAMP.
var Migrations = migrate.NewGroup("reel")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_reel_accounts",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reel_accounts (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS reel_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_reel_api_keys",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reel_api_keys (
    id          TEXT PRIMARY KEY,
    account_id  TEXT NOT NULL,
    key_hash    TEXT NOT NULL,
    hint        TEXT NOT NULL DEFAULT '',
    revoked_at  DATETIME,
    created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reel_api_keys_hash ON reel_api_keys (key_hash);
CREATE INDEX IF NOT EXISTS idx_reel_api_keys_account ON reel_api_keys (account_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS reel_api_keys`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_reel_quotas",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reel_quotas (
    account_id   TEXT PRIMARY KEY,
    used         INTEGER NOT NULL DEFAULT 0,
    max_units    INTEGER NOT NULL DEFAULT 0,
    period_start INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS reel_quotas`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_reel_assets",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS reel_assets (
    id            TEXT PRIMARY KEY,
    storage_key   TEXT NOT NULL,
    account_id    TEXT NOT NULL,
    content_type  TEXT NOT NULL DEFAULT '',
    analyzed      INTEGER NOT NULL DEFAULT 0,
    analyzed_at   DATETIME,
    created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reel_assets_key ON reel_assets (storage_key);
CREATE INDEX IF NOT EXISTS idx_reel_assets_account ON reel_assets (account_id, analyzed);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS reel_assets`)
				return err
			},
		},
	)
}
