// Package account models callers of the analysis API and the opaque
// credentials they authenticate with.
package account

import (
	"errors"
	"time"

	"github.com/xraph/reel/id"
	"github.com/xraph/reel/types"
)

// Store errors returned by account.Store implementations.
var (
	ErrNotFound    = errors.New("account: not found")
	ErrKeyNotFound = errors.New("account: api key not found")
)

// HintLength is the number of leading secret characters kept for display.
const HintLength = 6

// Account is the owner of assets and of a quota record.
type Account struct {
	types.Entity
	ID   id.AccountID `json:"id"`
	Name string       `json:"name"`
}

// APIKey is a stored credential. Only the keyed hash of the secret is kept;
// the plaintext is handed out once at issuance.
type APIKey struct {
	types.Entity
	ID        id.APIKeyID  `json:"id"`
	AccountID id.AccountID `json:"account_id"`
	Hash      string       `json:"-"`
	Hint      string       `json:"hint"`
	RevokedAt *time.Time   `json:"revoked_at,omitempty"`
}

// Revoked reports whether the key has been revoked.
func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

// Hint returns the display prefix of a plaintext secret.
func Hint(secret string) string {
	if len(secret) <= HintLength {
		return secret
	}
	return secret[:HintLength]
}
