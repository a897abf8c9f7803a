// Package memory is an in-process store.Store for tests and single-node
// development. Every method is safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	reelstore "github.com/xraph/reel/store"
)

var _ reelstore.Store = (*Store)(nil)

// Store keeps all records in maps guarded by one mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	accounts map[string]*account.Account
	keys     map[string]*account.APIKey // by key ID
	quotas   map[string]*quota.Record   // by account ID
	assets   map[string]*asset.Asset    // by storage key
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for period rollover and
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		accounts: make(map[string]*account.Account),
		keys:     make(map[string]*account.APIKey),
		quotas:   make(map[string]*quota.Record),
		assets:   make(map[string]*asset.Asset),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate is a no-op.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ==================== Account Store ====================

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.accounts[a.ID.String()] = &cp
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID.String()]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) CreateAPIKey(_ context.Context, k *account.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *k
	s.keys[k.ID.String()] = &cp
	return nil
}

func (s *Store) GetAPIKeyByHash(_ context.Context, hash string) (*account.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.Hash == hash && !k.Revoked() {
			cp := *k
			return &cp, nil
		}
	}
	return nil, account.ErrKeyNotFound
}

func (s *Store) ListAPIKeys(_ context.Context, accountID id.AccountID) ([]*account.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.APIKey, 0)
	for _, k := range s.keys {
		if k.AccountID.String() == accountID.String() {
			cp := *k
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) RevokeAPIKey(_ context.Context, keyID id.APIKeyID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[keyID.String()]
	if !ok {
		return account.ErrKeyNotFound
	}
	if k.RevokedAt == nil {
		t := at.UTC()
		k.RevokedAt = &t
		k.UpdatedAt = t
	}
	return nil
}

// ==================== Quota Store ====================

func (s *Store) Reserve(_ context.Context, accountID id.AccountID, unit int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.quotas[accountID.String()]
	if !ok {
		return false, quota.ErrNoRecord
	}

	now := s.now().UTC()
	eff := r.Effective(now)
	if eff.Limit >= 0 && eff.Used+unit > eff.Limit {
		return false, nil
	}

	r.Used = eff.Used + unit
	r.PeriodStart = eff.PeriodStart
	r.UpdatedAt = now
	return true, nil
}

func (s *Store) GetQuota(_ context.Context, accountID id.AccountID) (*quota.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.quotas[accountID.String()]
	if !ok {
		return nil, quota.ErrNoRecord
	}
	cp := *r
	return &cp, nil
}

func (s *Store) SetQuota(_ context.Context, r *quota.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.quotas[r.AccountID.String()]; ok {
		existing.Limit = r.Limit
		existing.UpdatedAt = now
		return nil
	}

	cp := *r
	if cp.PeriodStart.IsZero() {
		cp.PeriodStart = quota.PeriodStart(now)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.quotas[r.AccountID.String()] = &cp
	return nil
}

func (s *Store) ResetQuota(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.quotas[accountID.String()]
	if !ok {
		return quota.ErrNoRecord
	}
	now := s.now().UTC()
	r.Used = 0
	r.PeriodStart = quota.PeriodStart(now)
	r.UpdatedAt = now
	return nil
}

// ==================== Asset Store ====================

func (s *Store) CreateAsset(_ context.Context, a *asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[a.Key]; exists {
		return asset.ErrExists
	}
	cp := *a
	s.assets[a.Key] = &cp
	return nil
}

func (s *Store) GetAsset(_ context.Context, key string) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[key]
	if !ok {
		return nil, asset.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) MarkAnalyzed(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[key]
	if !ok {
		return asset.ErrNotFound
	}
	if !a.Analyzed {
		t := s.now().UTC()
		a.Analyzed = true
		a.AnalyzedAt = &t
		a.UpdatedAt = t
	}
	return nil
}

func (s *Store) ListAssets(_ context.Context, accountID id.AccountID, opts asset.ListOpts) ([]*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*asset.Asset, 0)
	for _, a := range s.assets {
		if a.AccountID.String() != accountID.String() {
			continue
		}
		if opts.Analyzed != nil && a.Analyzed != *opts.Analyzed {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}
