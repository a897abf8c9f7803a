package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:reel_accounts"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:        a.ID.String(),
		Name:      a.Name,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		Entity: types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:     accountID,
		Name:   m.Name,
	}, nil
}

type apiKeyModel struct {
	grove.BaseModel `grove:"table:reel_api_keys"`

	ID        string     `grove:"id,pk"`
	AccountID string     `grove:"account_id"`
	Hash      string     `grove:"key_hash"`
	Hint      string     `grove:"hint"`
	RevokedAt *time.Time `grove:"revoked_at"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toAPIKeyModel(k *account.APIKey) *apiKeyModel {
	return &apiKeyModel{
		ID:        k.ID.String(),
		AccountID: k.AccountID.String(),
		Hash:      k.Hash,
		Hint:      k.Hint,
		RevokedAt: k.RevokedAt,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

func fromAPIKeyModel(m *apiKeyModel) (*account.APIKey, error) {
	keyID, err := id.ParseAPIKeyID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &account.APIKey{
		Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:        keyID,
		AccountID: accountID,
		Hash:      m.Hash,
		Hint:      m.Hint,
		RevokedAt: m.RevokedAt,
	}, nil
}

// ==================== Quota models ====================

type quotaModel struct {
	grove.BaseModel `grove:"table:reel_quotas"`

	AccountID   string    `grove:"account_id,pk"`
	Used        int64     `grove:"used"`
	Limit       int64     `grove:"max_units"`
	PeriodStart time.Time `grove:"period_start"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toQuotaModel(r *quota.Record) *quotaModel {
	return &quotaModel{
		AccountID:   r.AccountID.String(),
		Used:        r.Used,
		Limit:       r.Limit,
		PeriodStart: r.PeriodStart,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromQuotaModel(m *quotaModel) (*quota.Record, error) {
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &quota.Record{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		AccountID:   accountID,
		Used:        m.Used,
		Limit:       m.Limit,
		PeriodStart: m.PeriodStart.UTC(),
	}, nil
}

// ==================== Asset models ====================

type assetModel struct {
	grove.BaseModel `grove:"table:reel_assets"`

	ID          string     `grove:"id,pk"`
	Key         string     `grove:"storage_key"`
	AccountID   string     `grove:"account_id"`
	ContentType string     `grove:"content_type"`
	Analyzed    bool       `grove:"analyzed"`
	AnalyzedAt  *time.Time `grove:"analyzed_at"`
	CreatedAt   time.Time  `grove:"created_at"`
	UpdatedAt   time.Time  `grove:"updated_at"`
}

func toAssetModel(a *asset.Asset) *assetModel {
	return &assetModel{
		ID:          a.ID.String(),
		Key:         a.Key,
		AccountID:   a.AccountID.String(),
		ContentType: a.ContentType,
		Analyzed:    a.Analyzed,
		AnalyzedAt:  a.AnalyzedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func fromAssetModel(m *assetModel) (*asset.Asset, error) {
	assetID, err := id.ParseAssetID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &asset.Asset{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          assetID,
		Key:         m.Key,
		AccountID:   accountID,
		ContentType: m.ContentType,
		Analyzed:    m.Analyzed,
		AnalyzedAt:  m.AnalyzedAt,
	}, nil
}
