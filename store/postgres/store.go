package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	reelstore "github.com/xraph/reel/store"
)

// compile-time interface check
var _ reelstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db  *grove.DB
	pg  *pgdriver.PgDB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and period
// rollover.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		pg:  pgdriver.Unwrap(db),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("reel/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("reel/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(toAccountModel(a)).Exec(ctx)
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) CreateAPIKey(ctx context.Context, k *account.APIKey) error {
	_, err := s.pg.NewInsert(toAPIKeyModel(k)).Exec(ctx)
	return err
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*account.APIKey, error) {
	m := new(apiKeyModel)
	err := s.pg.NewSelect(m).
		Where("key_hash = $1", hash).
		Where("revoked_at IS NULL").
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, account.ErrKeyNotFound
		}
		return nil, err
	}
	return fromAPIKeyModel(m)
}

func (s *Store) ListAPIKeys(ctx context.Context, accountID id.AccountID) ([]*account.APIKey, error) {
	var models []apiKeyModel
	err := s.pg.NewSelect(&models).
		Where("account_id = $1", accountID.String()).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	res, err := s.pg.NewUpdate((*apiKeyModel)(nil)).
		Set("revoked_at = COALESCE(revoked_at, $1)", at.UTC()).
		Set("updated_at = $2", s.timestamp()).
		Where("id = $3", keyID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return account.ErrKeyNotFound
	}
	return nil
}

// ==================== Quota Store ====================

// Reserve rolls the period over, checks the limit and increments in a single
// conditional UPDATE. A row lock serializes concurrent reservations.
func (s *Store) Reserve(ctx context.Context, accountID id.AccountID, unit int64) (bool, error) {
	now := s.timestamp()
	var used int64
	err := s.pg.NewRaw(`
		UPDATE reel_quotas SET
			used = CASE WHEN period_start < $2 THEN $3 ELSE used + $3 END,
			period_start = GREATEST(period_start, $2),
			updated_at = $4
		WHERE account_id = $1
		  AND (max_units < 0 OR (CASE WHEN period_start < $2 THEN 0 ELSE used END) + $3 <= max_units)
		RETURNING used
	`, accountID.String(), quota.PeriodStart(now), unit, now).Scan(ctx, &used)
	if err == nil {
		return true, nil
	}
	if !isNoRows(err) {
		return false, err
	}

	exists, err := s.quotaExists(ctx, accountID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, quota.ErrNoRecord
	}
	return false, nil
}

func (s *Store) quotaExists(ctx context.Context, accountID id.AccountID) (bool, error) {
	var n int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM reel_quotas WHERE account_id = $1`, accountID.String()).Scan(ctx, &n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetQuota(ctx context.Context, accountID id.AccountID) (*quota.Record, error) {
	m := new(quotaModel)
	err := s.pg.NewSelect(m).
		Where("account_id = $1", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, quota.ErrNoRecord
		}
		return nil, err
	}
	return fromQuotaModel(m)
}

func (s *Store) SetQuota(ctx context.Context, r *quota.Record) error {
	now := s.timestamp()
	m := toQuotaModel(r)
	if m.PeriodStart.IsZero() {
		m.PeriodStart = quota.PeriodStart(now)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err := s.pg.NewInsert(m).
		OnConflict("(account_id) DO UPDATE").
		Set("max_units = EXCLUDED.max_units").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ResetQuota(ctx context.Context, accountID id.AccountID) error {
	now := s.timestamp()
	res, err := s.pg.NewUpdate((*quotaModel)(nil)).
		Set("used = $1", 0).
		Set("period_start = $2", quota.PeriodStart(now)).
		Set("updated_at = $3", now).
		Where("account_id = $4", accountID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quota.ErrNoRecord
	}
	return nil
}

// ==================== Asset Store ====================

func (s *Store) CreateAsset(ctx context.Context, a *asset.Asset) error {
	_, err := s.pg.NewInsert(toAssetModel(a)).Exec(ctx)
	return err
}

func (s *Store) GetAsset(ctx context.Context, key string) (*asset.Asset, error) {
	m := new(assetModel)
	err := s.pg.NewSelect(m).
		Where("storage_key = $1", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, asset.ErrNotFound
		}
		return nil, err
	}
	return fromAssetModel(m)
}

func (s *Store) MarkAnalyzed(ctx context.Context, key string) error {
	now := s.timestamp()
	res, err := s.pg.NewUpdate((*assetModel)(nil)).
		Set("analyzed = $1", true).
		Set("analyzed_at = COALESCE(analyzed_at, $2)", now).
		Set("updated_at = $3", now).
		Where("storage_key = $4", key).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return asset.ErrNotFound
	}
	return nil
}

func (s *Store) ListAssets(ctx context.Context, accountID id.AccountID, opts asset.ListOpts) ([]*asset.Asset, error) {
	var models []assetModel
	q := s.pg.NewSelect(&models).Where("account_id = $1", accountID.String())

	argIdx := 1
	if opts.Analyzed != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("analyzed = $%d", argIdx), *opts.Analyzed)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
