// Package plugin provides an extensible plugin system for Reel.
// Plugins hook into lifecycle and analysis events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. r is the *reel.Reel instance.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, r any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Provisioning hooks
// ──────────────────────────────────────────────────

// OnAccountProvisioned is called after an account and its quota are created.
type OnAccountProvisioned interface {
	Plugin
	OnAccountProvisioned(ctx context.Context, a *account.Account, limit int64) error
}

// OnKeyIssued is called after an API key is issued.
type OnKeyIssued interface {
	Plugin
	OnKeyIssued(ctx context.Context, k *account.APIKey) error
}

// OnKeyRevoked is called after an API key is revoked.
type OnKeyRevoked interface {
	Plugin
	OnKeyRevoked(ctx context.Context, keyID id.APIKeyID) error
}

// ──────────────────────────────────────────────────
// Upload and analysis hooks
// ──────────────────────────────────────────────────

// OnUploadIssued is called after an upload URL is issued and the asset
// record created.
type OnUploadIssued interface {
	Plugin
	OnUploadIssued(ctx context.Context, a *asset.Asset) error
}

// OnQuotaReserved is called after a unit of quota is charged for key.
type OnQuotaReserved interface {
	Plugin
	OnQuotaReserved(ctx context.Context, accountID id.AccountID, key string) error
}

// OnQuotaExceeded is called when a reservation or upload is refused.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, accountID id.AccountID, key string) error
}

// OnAnalysisCompleted is called after inference succeeds.
type OnAnalysisCompleted interface {
	Plugin
	OnAnalysisCompleted(ctx context.Context, accountID id.AccountID, key string, elapsed time.Duration) error
}

// OnAnalysisFailed is called when Analyze returns an error. accountID is
// Nil when the caller could not be authenticated.
type OnAnalysisFailed interface {
	Plugin
	OnAnalysisFailed(ctx context.Context, accountID id.AccountID, key string, err error) error
}

// OnAssetMarkFailed is called when inference succeeded but the asset could
// not be flagged as analyzed.
type OnAssetMarkFailed interface {
	Plugin
	OnAssetMarkFailed(ctx context.Context, key string, err error) error
}
