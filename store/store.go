// Package store defines the aggregate persistence interface for Reel.
package store

import (
	"context"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/quota"
)

// Store is the unified storage interface for all Reel entities. The
// sub-interfaces use distinct method names so they can be embedded.
type Store interface {
	account.Store
	quota.Store
	asset.Store

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	// Close releases the backend connection.
	Close() error
}
