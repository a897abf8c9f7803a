// Package redis implements quota.Store on Redis. Reservations run as a Lua
// script so the period rollover, limit check and increment are one atomic
// step on the server.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/types"
)

var _ quota.Store = (*Store)(nil)

// DefaultPrefix namespaces quota hashes.
const DefaultPrefix = "reel:quota:"

// Hash fields.
const (
	fieldLimit       = "limit"
	fieldUsed        = "used"
	fieldPeriodStart = "period_start"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// reserveScript returns -1 for a missing record, 0 when denied, 1 when granted.
var reserveScript = goredis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'limit', 'used', 'period_start')
if not h[1] then
  return -1
end
local limit = tonumber(h[1])
local used = tonumber(h[2]) or 0
local ps = tonumber(h[3]) or 0
local unit = tonumber(ARGV[1])
local cur = tonumber(ARGV[2])
if ps < cur then
  used = 0
  ps = cur
end
if limit >= 0 and used + unit > limit then
  return 0
end
redis.call('HSET', KEYS[1], 'used', used + unit, 'period_start', ps, 'updated_at', ARGV[3])
return 1
`)

var setScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('HSET', KEYS[1], 'limit', ARGV[1], 'updated_at', ARGV[4])
else
  redis.call('HSET', KEYS[1], 'limit', ARGV[1], 'used', 0, 'period_start', ARGV[2], 'created_at', ARGV[3], 'updated_at', ARGV[4])
end
return 1
`)

var resetScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
redis.call('HSET', KEYS[1], 'used', 0, 'period_start', ARGV[1], 'updated_at', ARGV[2])
return 1
`)

// Store is a Redis-backed quota ledger.
type Store struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithClock overrides the time source used for period rollover.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps an existing client.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses a redis:// URL, connects, and verifies the connection.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	ropts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("reel/redis: parse url: %w", err)
	}
	client := goredis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("reel/redis: connect: %w", err)
	}
	return New(client, opts...), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(accountID id.AccountID) string {
	return s.prefix + accountID.String()
}

// Reserve implements quota.Store.
func (s *Store) Reserve(ctx context.Context, accountID id.AccountID, unit int64) (bool, error) {
	now := s.now().UTC()
	res, err := reserveScript.Run(ctx, s.client, []string{s.key(accountID)},
		unit, quota.PeriodStart(now).Unix(), now.Unix(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("reel/redis: reserve: %w", err)
	}

	switch res {
	case -1:
		return false, quota.ErrNoRecord
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

// GetQuota implements quota.Store.
func (s *Store) GetQuota(ctx context.Context, accountID id.AccountID) (*quota.Record, error) {
	h, err := s.client.HGetAll(ctx, s.key(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reel/redis: get quota: %w", err)
	}
	if len(h) == 0 {
		return nil, quota.ErrNoRecord
	}

	ints := make(map[string]int64, len(h))
	for _, f := range []string{fieldLimit, fieldUsed, fieldPeriodStart, fieldCreatedAt, fieldUpdatedAt} {
		v, ok := h[f]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reel/redis: field %s: %w", f, err)
		}
		ints[f] = n
	}

	return &quota.Record{
		Entity: types.Entity{
			CreatedAt: time.Unix(ints[fieldCreatedAt], 0).UTC(),
			UpdatedAt: time.Unix(ints[fieldUpdatedAt], 0).UTC(),
		},
		AccountID:   accountID,
		Used:        ints[fieldUsed],
		Limit:       ints[fieldLimit],
		PeriodStart: time.Unix(ints[fieldPeriodStart], 0).UTC(),
	}, nil
}

// SetQuota implements quota.Store.
func (s *Store) SetQuota(ctx context.Context, r *quota.Record) error {
	now := s.now().UTC()
	ps := r.PeriodStart
	if ps.IsZero() {
		ps = quota.PeriodStart(now)
	}
	err := setScript.Run(ctx, s.client, []string{s.key(r.AccountID)},
		r.Limit, ps.Unix(), now.Unix(), now.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("reel/redis: set quota: %w", err)
	}
	return nil
}

// ResetQuota implements quota.Store.
func (s *Store) ResetQuota(ctx context.Context, accountID id.AccountID) error {
	now := s.now().UTC()
	res, err := resetScript.Run(ctx, s.client, []string{s.key(accountID)},
		quota.PeriodStart(now).Unix(), now.Unix(),
	).Int64()
	if err != nil {
		return fmt.Errorf("reel/redis: reset quota: %w", err)
	}
	if res == -1 {
		return quota.ErrNoRecord
	}
	return nil
}
