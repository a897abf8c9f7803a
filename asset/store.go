package asset

import (
	"context"

	"github.com/xraph/reel/id"
)

// Store is the asset registry.
type Store interface {
	CreateAsset(ctx context.Context, a *Asset) error
	// GetAsset returns ErrNotFound when no asset has the key.
	GetAsset(ctx context.Context, key string) (*Asset, error)
	// MarkAnalyzed sets the analyzed flag. It is idempotent and only stamps
	// AnalyzedAt on the first transition.
	MarkAnalyzed(ctx context.Context, key string) error
	ListAssets(ctx context.Context, accountID id.AccountID, opts ListOpts) ([]*Asset, error)
}
