package account

import (
	"context"
	"time"

	"github.com/xraph/reel/id"
)

// Store persists accounts and their API keys.
type Store interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error)
	CreateAPIKey(ctx context.Context, k *APIKey) error
	// GetAPIKeyByHash returns ErrKeyNotFound for unknown or revoked keys.
	GetAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error)
	ListAPIKeys(ctx context.Context, accountID id.AccountID) ([]*APIKey, error)
	RevokeAPIKey(ctx context.Context, keyID id.APIKeyID, at time.Time) error
}
