package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Reel store.
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
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    account_id  TEXT NOT NULL REFERENCES reel_accounts (id) ON DELETE CASCADE,
    key_hash    TEXT NOT NULL,
    hint        TEXT NOT NULL DEFAULT '',
    revoked_at  TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    account_id   TEXT PRIMARY KEY REFERENCES reel_accounts (id) ON DELETE CASCADE,
    used         BIGINT NOT NULL DEFAULT 0 CHECK (used >= 0),
    max_units    BIGINT NOT NULL DEFAULT 0,
    period_start TIMESTAMPTZ NOT NULL DEFAULT date_trunc('month', NOW() AT TIME ZONE 'UTC'),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    account_id    TEXT NOT NULL REFERENCES reel_accounts (id) ON DELETE CASCADE,
    content_type  TEXT NOT NULL DEFAULT '',
    analyzed      BOOLEAN NOT NULL DEFAULT FALSE,
    analyzed_at   TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
