package reel

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/types"
)

// ProvisionAccount creates an account with a monthly limit and issues its
// first API key. The plaintext secret is returned once and never stored.
//
// The three writes are not transactional. If the quota or key step fails the
// account already exists; it is returned together with the error so the
// caller can complete it with SetQuota and IssueKey. Until then the account
// has no quota record and its uploads fail as internal errors.
func (r *Reel) ProvisionAccount(ctx context.Context, name string, limit int64) (*account.Account, string, error) {
	if name == "" {
		return nil, "", ValidationError{Field: "name", Message: "Name is required"}
	}
	if limit < quota.Unlimited {
		return nil, "", ValidationError{Field: "limit", Message: "Limit must be -1 or greater"}
	}

	now := r.now()
	a := &account.Account{
		Entity: types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:     id.NewAccountID(),
		Name:   name,
	}
	if err := r.store.CreateAccount(ctx, a); err != nil {
		return nil, "", fmt.Errorf("reel: create account: %w", err)
	}

	if err := r.SetQuota(ctx, a.ID, limit); err != nil {
		r.logger.Warn("account created without quota", "account_id", a.ID.String(), "error", err)
		return a, "", err
	}

	_, secret, err := r.IssueKey(ctx, a.ID)
	if err != nil {
		r.logger.Warn("account created without key", "account_id", a.ID.String(), "error", err)
		return a, "", err
	}

	r.logger.Info("account provisioned", "account_id", a.ID.String(), "name", name, "limit", limit)
	r.plugins.EmitAccountProvisioned(ctx, a, limit)

	return a, secret, nil
}

// IssueKey creates a new API key for an existing account.
func (r *Reel) IssueKey(ctx context.Context, accountID id.AccountID) (*account.APIKey, string, error) {
	if _, err := r.store.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, "", fmt.Errorf("reel: get account: %w", err)
	}

	secret := account.NewSecret()
	now := r.now()
	k := &account.APIKey{
		Entity:    types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:        id.NewAPIKeyID(),
		AccountID: accountID,
		Hash:      r.hasher.Hash(secret),
		Hint:      account.Hint(secret),
	}
	if err := r.store.CreateAPIKey(ctx, k); err != nil {
		return nil, "", fmt.Errorf("reel: create api key: %w", err)
	}

	r.plugins.EmitKeyIssued(ctx, k)
	return k, secret, nil
}

// RevokeKey disables an API key. Revoking an already revoked key is a no-op.
func (r *Reel) RevokeKey(ctx context.Context, keyID id.APIKeyID) error {
	if err := r.store.RevokeAPIKey(ctx, keyID, r.now()); err != nil {
		if errors.Is(err, account.ErrKeyNotFound) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("reel: revoke api key: %w", err)
	}

	r.logger.Info("api key revoked", "key_id", keyID.String())
	r.plugins.EmitKeyRevoked(ctx, keyID)
	return nil
}

// ListKeys returns the account's API keys, revoked ones included.
func (r *Reel) ListKeys(ctx context.Context, accountID id.AccountID) ([]*account.APIKey, error) {
	return r.store.ListAPIKeys(ctx, accountID)
}

// SetQuota sets the monthly limit for an account. Usage in the current
// period is kept.
func (r *Reel) SetQuota(ctx context.Context, accountID id.AccountID, limit int64) error {
	if limit < quota.Unlimited {
		return ValidationError{Field: "limit", Message: "Limit must be -1 or greater"}
	}

	now := r.now()
	rec := &quota.Record{
		Entity:      types.Entity{CreatedAt: now, UpdatedAt: now},
		AccountID:   accountID,
		Limit:       limit,
		PeriodStart: quota.PeriodStart(now),
	}
	if err := r.quotas.SetQuota(ctx, rec); err != nil {
		return fmt.Errorf("reel: set quota: %w", err)
	}
	return nil
}

// Quota returns the account's usage as of now, with any pending monthly
// rollover applied.
func (r *Reel) Quota(ctx context.Context, accountID id.AccountID) (*quota.Record, error) {
	rec, err := r.quotas.GetQuota(ctx, accountID)
	if err != nil {
		if errors.Is(err, quota.ErrNoRecord) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("reel: get quota: %w", err)
	}
	eff := rec.Effective(r.now())
	return &eff, nil
}

// ResetQuota zeroes the account's usage for the current period.
func (r *Reel) ResetQuota(ctx context.Context, accountID id.AccountID) error {
	if err := r.quotas.ResetQuota(ctx, accountID); err != nil {
		if errors.Is(err, quota.ErrNoRecord) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("reel: reset quota: %w", err)
	}
	return nil
}

// Assets lists the account's uploads.
func (r *Reel) Assets(ctx context.Context, accountID id.AccountID, opts asset.ListOpts) ([]*asset.Asset, error) {
	return r.store.ListAssets(ctx, accountID, opts)
}
