// Package storetest holds behavioral checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/types"
)

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a clock fixed at t.
func NewClock(t time.Time) *Clock { return &Clock{t: t} }

// Now returns the current fixed time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// QuotaFactory builds a fresh quota store reading time from clock.
type QuotaFactory func(t *testing.T, clock *Clock) quota.Store

// RunQuota exercises a quota.Store implementation.
func RunQuota(t *testing.T, newStore QuotaFactory) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("missing record", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		ok, err := s.Reserve(ctx, id.NewAccountID(), 1)
		if ok || !errors.Is(err, quota.ErrNoRecord) {
			t.Fatalf("expected (false, ErrNoRecord), got (%v, %v)", ok, err)
		}
		if _, err := s.GetQuota(ctx, id.NewAccountID()); !errors.Is(err, quota.ErrNoRecord) {
			t.Fatalf("expected ErrNoRecord, got %v", err)
		}
	})

	t.Run("reserve up to limit", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		acct := newAccount(t, s)
		mustSet(t, s, acct, 2)

		for i := 0; i < 2; i++ {
			ok, err := s.Reserve(ctx, acct, 1)
			if err != nil || !ok {
				t.Fatalf("reserve %d: got (%v, %v)", i, ok, err)
			}
		}
		ok, err := s.Reserve(ctx, acct, 1)
		if err != nil || ok {
			t.Fatalf("expected denial at limit, got (%v, %v)", ok, err)
		}

		r, err := s.GetQuota(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		if r.Used != 2 {
			t.Errorf("denied reservation must not write, used=%d", r.Used)
		}
	})

	t.Run("zero limit", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		acct := newAccount(t, s)
		mustSet(t, s, acct, 0)
		if ok, err := s.Reserve(ctx, acct, 1); err != nil || ok {
			t.Fatalf("expected denial, got (%v, %v)", ok, err)
		}
	})

	t.Run("unlimited", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		acct := newAccount(t, s)
		mustSet(t, s, acct, quota.Unlimited)
		for i := 0; i < 25; i++ {
			if ok, err := s.Reserve(ctx, acct, 1); err != nil || !ok {
				t.Fatalf("reserve %d: got (%v, %v)", i, ok, err)
			}
		}
	})

	t.Run("monthly rollover", func(t *testing.T) {
		clock := NewClock(start)
		s := newStore(t, clock)
		acct := newAccount(t, s)
		mustSet(t, s, acct, 1)

		if ok, _ := s.Reserve(ctx, acct, 1); !ok {
			t.Fatal("first reservation should succeed")
		}
		if ok, _ := s.Reserve(ctx, acct, 1); ok {
			t.Fatal("second reservation in same month should fail")
		}

		clock.Set(start.AddDate(0, 1, 0))
		ok, err := s.Reserve(ctx, acct, 1)
		if err != nil || !ok {
			t.Fatalf("reservation after rollover: got (%v, %v)", ok, err)
		}
		r, err := s.GetQuota(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		if r.Used != 1 {
			t.Errorf("expected used=1 after rollover, got %d", r.Used)
		}
		if !r.PeriodStart.Equal(quota.PeriodStart(clock.Now())) {
			t.Errorf("expected period start %v, got %v", quota.PeriodStart(clock.Now()), r.PeriodStart)
		}
	})

	t.Run("set keeps used", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		acct := newAccount(t, s)
		mustSet(t, s, acct, 1)
		if ok, _ := s.Reserve(ctx, acct, 1); !ok {
			t.Fatal("reserve should succeed")
		}
		mustSet(t, s, acct, 5)

		r, err := s.GetQuota(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		if r.Used != 1 || r.Limit != 5 {
			t.Errorf("expected used=1 limit=5, got used=%d limit=%d", r.Used, r.Limit)
		}
	})

	t.Run("reset", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		acct := newAccount(t, s)
		mustSet(t, s, acct, 1)
		if ok, _ := s.Reserve(ctx, acct, 1); !ok {
			t.Fatal("reserve should succeed")
		}
		if err := s.ResetQuota(ctx, acct); err != nil {
			t.Fatal(err)
		}
		if ok, _ := s.Reserve(ctx, acct, 1); !ok {
			t.Error("reserve after reset should succeed")
		}
		if err := s.ResetQuota(ctx, id.NewAccountID()); !errors.Is(err, quota.ErrNoRecord) {
			t.Errorf("expected ErrNoRecord, got %v", err)
		}
	})

	t.Run("concurrent reservations never exceed limit", func(t *testing.T) {
		s := newStore(t, NewClock(start))
		acct := newAccount(t, s)
		const limit, callers = 5, 40
		mustSet(t, s, acct, limit)

		var granted atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Reserve(ctx, acct, 1)
				if err != nil {
					t.Errorf("reserve: %v", err)
					return
				}
				if ok {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := granted.Load(); got != limit {
			t.Errorf("expected exactly %d grants, got %d", limit, got)
		}
		r, err := s.GetQuota(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		if r.Used != limit {
			t.Errorf("expected used=%d, got %d", limit, r.Used)
		}
	})
}

// newAccount returns a fresh account ID, first persisting the account when s
// also stores accounts so foreign keys from quotas and assets hold.
func newAccount(t *testing.T, s any) id.AccountID {
	t.Helper()
	acct := id.NewAccountID()
	if as, ok := s.(account.Store); ok {
		a := &account.Account{Entity: types.NewEntity(), ID: acct, Name: "storetest"}
		if err := as.CreateAccount(context.Background(), a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
	}
	return acct
}

func mustSet(t *testing.T, s quota.Store, acct id.AccountID, limit int64) {
	t.Helper()
	if err := s.SetQuota(context.Background(), &quota.Record{AccountID: acct, Limit: limit}); err != nil {
		t.Fatalf("SetQuota: %v", err)
	}
}

// RunAsset exercises an asset.Store implementation.
func RunAsset(t *testing.T, s asset.Store) {
	t.Helper()
	ctx := context.Background()
	owner := newAccount(t, s)
	keyA := "inference/" + owner.String() + "-a.mp4"
	keyB := "inference/" + owner.String() + "-b.mp4"

	newAsset := func(key string) *asset.Asset {
		return &asset.Asset{
			Entity:      types.NewEntity(),
			ID:          id.NewAssetID(),
			Key:         key,
			AccountID:   owner,
			ContentType: "video/mp4",
		}
	}

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.GetAsset(ctx, "inference/missing.mp4"); !errors.Is(err, asset.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.MarkAnalyzed(ctx, "inference/missing.mp4"); !errors.Is(err, asset.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("create and get", func(t *testing.T) {
		if err := s.CreateAsset(ctx, newAsset(keyA)); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetAsset(ctx, keyA)
		if err != nil {
			t.Fatal(err)
		}
		if got.AccountID.String() != owner.String() || got.Analyzed || got.AnalyzedAt != nil {
			t.Errorf("unexpected asset %+v", got)
		}
	})

	t.Run("mark analyzed is idempotent", func(t *testing.T) {
		if err := s.CreateAsset(ctx, newAsset(keyB)); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkAnalyzed(ctx, keyB); err != nil {
			t.Fatal(err)
		}
		first, err := s.GetAsset(ctx, keyB)
		if err != nil {
			t.Fatal(err)
		}
		if !first.Analyzed || first.AnalyzedAt == nil {
			t.Fatalf("expected analyzed asset, got %+v", first)
		}

		if err := s.MarkAnalyzed(ctx, keyB); err != nil {
			t.Fatal(err)
		}
		second, err := s.GetAsset(ctx, keyB)
		if err != nil {
			t.Fatal(err)
		}
		if !second.AnalyzedAt.Equal(*first.AnalyzedAt) {
			t.Errorf("analyzed_at moved from %v to %v", first.AnalyzedAt, second.AnalyzedAt)
		}
	})

	t.Run("list", func(t *testing.T) {
		analyzed := true
		got, err := s.ListAssets(ctx, owner, asset.ListOpts{Analyzed: &analyzed})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Key != keyB {
			t.Errorf("unexpected analyzed list %+v", got)
		}

		all, err := s.ListAssets(ctx, owner, asset.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 assets, got %d", len(all))
		}

		none, err := s.ListAssets(ctx, id.NewAccountID(), asset.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(none) != 0 {
			t.Errorf("expected no assets for another account, got %d", len(none))
		}
	})
}

// RunAccount exercises an account.Store implementation.
func RunAccount(t *testing.T, s account.Store) {
	t.Helper()
	ctx := context.Background()

	acct := &account.Account{Entity: types.NewEntity(), ID: id.NewAccountID(), Name: "studio"}
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	t.Run("get account", func(t *testing.T) {
		got, err := s.GetAccount(ctx, acct.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "studio" {
			t.Errorf("unexpected name %q", got.Name)
		}
		if _, err := s.GetAccount(ctx, id.NewAccountID()); !errors.Is(err, account.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("key lookup and revoke", func(t *testing.T) {
		hash := "hash-" + acct.ID.String()
		key := &account.APIKey{
			Entity:    types.NewEntity(),
			ID:        id.NewAPIKeyID(),
			AccountID: acct.ID,
			Hash:      hash,
			Hint:      "rk_abc",
		}
		if err := s.CreateAPIKey(ctx, key); err != nil {
			t.Fatal(err)
		}

		got, err := s.GetAPIKeyByHash(ctx, hash)
		if err != nil {
			t.Fatal(err)
		}
		if got.AccountID.String() != acct.ID.String() {
			t.Errorf("unexpected account %s", got.AccountID)
		}

		if _, err := s.GetAPIKeyByHash(ctx, "unknown"); !errors.Is(err, account.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}

		if err := s.RevokeAPIKey(ctx, key.ID, time.Now()); err != nil {
			t.Fatal(err)
		}
		if _, err := s.GetAPIKeyByHash(ctx, hash); !errors.Is(err, account.ErrKeyNotFound) {
			t.Errorf("revoked key must not resolve, got %v", err)
		}

		keys, err := s.ListAPIKeys(ctx, acct.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 1 || !keys[0].Revoked() {
			t.Errorf("expected one revoked key, got %+v", keys)
		}

		if err := s.RevokeAPIKey(ctx, id.NewAPIKeyID(), time.Now()); !errors.Is(err, account.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})
}
