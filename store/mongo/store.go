package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	reelstore "github.com/xraph/reel/store"
)

// Collection name constants.
const (
	colAccounts = "reel_accounts"
	colAPIKeys  = "reel_api_keys"
	colQuotas   = "reel_quotas"
	colAssets   = "reel_assets"
)

// compile-time interface check
var _ reelstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and period
// rollover.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all reel collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("reel/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	if _, err := s.mdb.NewInsert(toAccountModel(a)).Exec(ctx); err != nil {
		return fmt.Errorf("reel/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("reel/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) CreateAPIKey(ctx context.Context, k *account.APIKey) error {
	if _, err := s.mdb.NewInsert(toAPIKeyModel(k)).Exec(ctx); err != nil {
		return fmt.Errorf("reel/mongo: create api key: %w", err)
	}
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*account.APIKey, error) {
	var m apiKeyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"key_hash": hash, "revoked_at": nil}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, account.ErrKeyNotFound
		}
		return nil, fmt.Errorf("reel/mongo: get api key: %w", err)
	}
	return fromAPIKeyModel(&m)
}

func (s *Store) ListAPIKeys(ctx context.Context, accountID id.AccountID) ([]*account.APIKey, error) {
	var models []apiKeyModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"account_id": accountID.String()}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("reel/mongo: list api keys: %w", err)
	}

	result := make([]*account.APIKey, len(models))
	for i := range models {
		k, err := fromAPIKeyModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = k
	}
	return result, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, keyID id.APIKeyID, at time.Time) error {
	res, err := s.mdb.NewUpdate((*apiKeyModel)(nil)).
		Filter(bson.M{"_id": keyID.String(), "revoked_at": nil}).
		Set("revoked_at", at.UTC()).
		Set("updated_at", s.timestamp()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reel/mongo: revoke api key: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}

	// Already revoked keys keep their first revocation time.
	n, err := s.mdb.Collection(colAPIKeys).CountDocuments(ctx, bson.M{"_id": keyID.String()})
	if err != nil {
		return fmt.Errorf("reel/mongo: revoke api key: %w", err)
	}
	if n == 0 {
		return account.ErrKeyNotFound
	}
	return nil
}

// ==================== Quota Store ====================

// Reserve applies the rollover, limit check and increment as one
// findAndModify with an aggregation-pipeline update.
func (s *Store) Reserve(ctx context.Context, accountID id.AccountID, unit int64) (bool, error) {
	now := s.timestamp()
	cur := quota.PeriodStart(now)
	stale := bson.M{"$lt": bson.A{"$period_start", cur}}

	filter := bson.M{
		"_id": accountID.String(),
		"$expr": bson.M{"$or": bson.A{
			bson.M{"$lt": bson.A{"$max_units", 0}},
			bson.M{"$lte": bson.A{
				bson.M{"$add": bson.A{bson.M{"$cond": bson.A{stale, 0, "$used"}}, unit}},
				"$max_units",
			}},
		}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "used", Value: bson.M{"$cond": bson.A{stale, unit, bson.M{"$add": bson.A{"$used", unit}}}}},
			{Key: "period_start", Value: bson.M{"$max": bson.A{"$period_start", cur}}},
			{Key: "updated_at", Value: now},
		}}},
	}

	err := s.mdb.Collection(colQuotas).FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return true, nil
	}
	if !isNoDocuments(err) {
		return false, fmt.Errorf("reel/mongo: reserve: %w", err)
	}

	n, err := s.mdb.Collection(colQuotas).CountDocuments(ctx, bson.M{"_id": accountID.String()})
	if err != nil {
		return false, fmt.Errorf("reel/mongo: reserve: %w", err)
	}
	if n == 0 {
		return false, quota.ErrNoRecord
	}
	return false, nil
}

func (s *Store) GetQuota(ctx context.Context, accountID id.AccountID) (*quota.Record, error) {
	var m quotaModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, quota.ErrNoRecord
		}
		return nil, fmt.Errorf("reel/mongo: get quota: %w", err)
	}
	return fromQuotaModel(&m)
}

func (s *Store) SetQuota(ctx context.Context, r *quota.Record) error {
	now := s.timestamp()
	ps := r.PeriodStart
	if ps.IsZero() {
		ps = quota.PeriodStart(now)
	}

	_, err := s.mdb.NewUpdate((*quotaModel)(nil)).
		Filter(bson.M{"_id": r.AccountID.String()}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"max_units":  r.Limit,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"used":         r.Used,
				"period_start": ps,
				"created_at":   now,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reel/mongo: set quota: %w", err)
	}
	return nil
}

func (s *Store) ResetQuota(ctx context.Context, accountID id.AccountID) error {
	now := s.timestamp()
	res, err := s.mdb.NewUpdate((*quotaModel)(nil)).
		Filter(bson.M{"_id": accountID.String()}).
		Set("used", int64(0)).
		Set("period_start", quota.PeriodStart(now)).
		Set("updated_at", now).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reel/mongo: reset quota: %w", err)
	}
	if res.MatchedCount() == 0 {
		return quota.ErrNoRecord
	}
	return nil
}

// ==================== Asset Store ====================

func (s *Store) CreateAsset(ctx context.Context, a *asset.Asset) error {
	_, err := s.mdb.NewInsert(toAssetModel(a)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return asset.ErrExists
		}
		return fmt.Errorf("reel/mongo: create asset: %w", err)
	}
	return nil
}

func (s *Store) GetAsset(ctx context.Context, key string) (*asset.Asset, error) {
	var m assetModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"storage_key": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, asset.ErrNotFound
		}
		return nil, fmt.Errorf("reel/mongo: get asset: %w", err)
	}
	return fromAssetModel(&m)
}

func (s *Store) MarkAnalyzed(ctx context.Context, key string) error {
	now := s.timestamp()
	res, err := s.mdb.NewUpdate((*assetModel)(nil)).
		Filter(bson.M{"storage_key": key, "analyzed": false}).
		Set("analyzed", true).
		Set("analyzed_at", now).
		Set("updated_at", now).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reel/mongo: mark analyzed: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}

	n, err := s.mdb.Collection(colAssets).CountDocuments(ctx, bson.M{"storage_key": key})
	if err != nil {
		return fmt.Errorf("reel/mongo: mark analyzed: %w", err)
	}
	if n == 0 {
		return asset.ErrNotFound
	}
	return nil
}

func (s *Store) ListAssets(ctx context.Context, accountID id.AccountID, opts asset.ListOpts) ([]*asset.Asset, error) {
	var models []assetModel

	filter := bson.M{"account_id": accountID.String()}
	if opts.Analyzed != nil {
		filter["analyzed"] = *opts.Analyzed
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("reel/mongo: list assets: %w", err)
	}

	result := make([]*asset.Asset, len(models))
	for i := range models {
		a, err := fromAssetModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all reel collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colAPIKeys: {
			{
				Keys:    bson.D{{Key: "key_hash", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colAssets: {
			{
				Keys:    bson.D{{Key: "storage_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "analyzed", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
