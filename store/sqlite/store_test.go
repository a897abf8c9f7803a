package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/store/sqlite"
	"github.com/xraph/reel/store/storetest"
	"github.com/xraph/reel/types"
)

func newStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	drv := sqlitedriver.New()
	dsn := filepath.Join(t.TempDir(), "reel.db") + "?_pragma=busy_timeout(5000)"
	if err := drv.Open(ctx, dsn); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatalf("grove open: %v", err)
	}

	s := sqlite.New(db, opts...)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestMigrate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestQuota(t *testing.T) {
	storetest.RunQuota(t, func(t *testing.T, clock *storetest.Clock) quota.Store {
		return newStore(t, sqlite.WithClock(clock.Now))
	})
}

func TestAsset(t *testing.T) {
	storetest.RunAsset(t, newStore(t))
}

func TestAccount(t *testing.T) {
	storetest.RunAccount(t, newStore(t))
}

func TestTimestampsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 15, 12, 30, 45, 123456789, time.UTC)
	acct := &account.Account{
		Entity: types.Entity{CreatedAt: created, UpdatedAt: created},
		ID:     id.NewAccountID(),
		Name:   "studio",
	}
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created) {
		t.Errorf("timestamps = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, created)
	}
}
