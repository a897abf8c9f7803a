package quota

import (
	"context"

	"github.com/xraph/reel/id"
)

// Store is the quota ledger.
type Store interface {
	// Reserve atomically adds unit to the account's usage if the result stays
	// within the limit. A stored period older than the current month is
	// rolled over inside the same step. It returns (false, nil) when the
	// limit would be exceeded and (false, ErrNoRecord) when the account has
	// no record.
	Reserve(ctx context.Context, accountID id.AccountID, unit int64) (bool, error)
	GetQuota(ctx context.Context, accountID id.AccountID) (*Record, error)
	// SetQuota creates the record or updates its limit. Used is left
	// untouched on existing records.
	SetQuota(ctx context.Context, r *Record) error
	ResetQuota(ctx context.Context, accountID id.AccountID) error
}
