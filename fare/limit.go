/*
limit.go - Daily top-up limit ledger

PURPOSE:
  Tracks the cumulative top-up amount per account per calendar day and
  enforces the cap (default 100.00). The recharge flow calls
  CheckAndReserve BEFORE any balance mutation; this ordering is
  mandatory, not incidental - a rejected top-up must never leave the
  account half-mutated.

STALENESS:
  The record is keyed by account and stamped with a date. When the
  stored date is not "today", the prior total counts as zero; the next
  accepted reservation overwrites the record wholesale with the new
  date and a fresh accumulation. Stale records are replaced, never
  merged with.

ATOMICITY:
  Read-check-write on the record is delegated to the store's
  ReserveDailyAllowance, which performs the whole thing as one atomic
  operation. Two racing top-ups cannot both squeeze under the cap.

SEE ALSO:
  - recharge.go: the only caller
  - store.go: ReserveDailyAllowance contract
*/
package fare

import "context"

// DefaultDailyCap is the cumulative top-up cap per account per day.
const DefaultDailyCap = Money(100_00)

// DailyLimitLedger gates top-ups against the per-day cap.
type DailyLimitLedger struct {
	store Store
	cap   Money
}

// NewDailyLimitLedger builds a ledger with the given cap. A zero or
// negative cap falls back to DefaultDailyCap.
func NewDailyLimitLedger(store Store, cap Money) *DailyLimitLedger {
	if !cap.IsPositive() {
		cap = DefaultDailyCap
	}
	return &DailyLimitLedger{store: store, cap: cap}
}

// Cap returns the configured daily cap.
func (l *DailyLimitLedger) Cap() Money { return l.cap }

// CheckAndReserve accumulates amount into today's record and returns
// the new total. A record dated before today counts as zero. If the
// new total would exceed the cap it fails with a DailyCapError and
// performs no write - the caller must not proceed to the balance.
func (l *DailyLimitLedger) CheckAndReserve(ctx context.Context, account AccountID, amount Money, today Day) (Money, error) {
	if !amount.IsPositive() {
		return 0, &InvalidAmountError{Input: amount.Format(), Reason: "top-up must be positive"}
	}
	return l.store.ReserveDailyAllowance(ctx, account, today, amount, l.cap)
}

// AcceptedToday returns how much has been accepted for the given day.
// A stale record reads as zero.
func (l *DailyLimitLedger) AcceptedToday(ctx context.Context, account AccountID, today Day) (Money, error) {
	rec, err := l.store.GetDailyLimit(ctx, account)
	if err != nil {
		return 0, err
	}
	if !rec.Date.Equal(today) {
		return 0, nil
	}
	return rec.TotalToppedUp, nil
}
