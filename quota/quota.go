// Package quota tracks how many analysis units each account has consumed in
// the current calendar month.
package quota

import (
	"errors"
	"time"

	"github.com/xraph/reel/id"
	"github.com/xraph/reel/types"
)

// ErrNoRecord is returned when an account has no quota record.
var ErrNoRecord = errors.New("quota: no record for account")

// Unlimited is the Limit value that disables the ceiling.
const Unlimited int64 = -1

// Record is the per-account usage counter.
//
// Limit < 0 means unlimited. Limit == 0 means nothing may be reserved.
type Record struct {
	types.Entity
	AccountID   id.AccountID `json:"account_id"`
	Used        int64        `json:"used"`
	Limit       int64        `json:"limit"`
	PeriodStart time.Time    `json:"period_start"`
}

// Exhausted reports whether no further unit can be reserved. It does not
// account for a pending monthly rollover; use Effective first.
func (r *Record) Exhausted() bool {
	return r.Limit >= 0 && r.Used >= r.Limit
}

// Remaining returns the units left in the period, or -1 when unlimited.
func (r *Record) Remaining() int64 {
	if r.Limit < 0 {
		return -1
	}
	return max(0, r.Limit-r.Used)
}

// Effective returns a copy of r as it would look at now, with Used reset
// when the stored period has ended.
func (r *Record) Effective(now time.Time) Record {
	out := *r
	start := PeriodStart(now)
	if r.PeriodStart.Before(start) {
		out.Used = 0
		out.PeriodStart = start
	}
	return out
}

// PeriodStart returns the first instant of the calendar month containing t,
// in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the first instant of the month after t.
func PeriodEnd(t time.Time) time.Time {
	return PeriodStart(t).AddDate(0, 1, 0)
}
