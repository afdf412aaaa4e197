/*
recharge.go - Balance top-up flow

PURPOSE:
  Mirrors the fare authorization shape on the credit side:

  Idle -> LimitCheck -> Rejected                    (cap, no mutation)
                     -> Reserved -> Credit -> LogAppend -> Committed
                                                        -> PartialFailure

  Initiate parses the requested amount, reserves it against the daily
  cap, and hands back a display-only payment code. Confirm - the user
  reporting "paid" before the countdown runs out - credits the balance
  and appends the matching log entry.

ORDERING:
  The daily-cap reservation happens BEFORE any balance mutation, so a
  rejected top-up never leaves the account half-mutated. Mandatory, not
  incidental.

EXPIRY IS COOPERATIVE:
  The code's countdown is a client-local timer, not a server lease. An
  expired code is simply abandoned: Confirm refuses it, and the daily
  allowance already reserved for it is not released. Nothing already
  committed is rolled back.

COMMIT ORDER:
  Credit first, then log append; a failed append after a committed
  credit surfaces as PartialFailureError (same policy as the fare side).

SEE ALSO:
  - limit.go: the cap gate
  - authorize.go: the debit-side twin and the ordering rationale
*/
package fare

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults for the payment code token.
const (
	DefaultCodePrefix = "PAY"
	DefaultCodeTTL    = 60 * time.Second

	topUpLabel     = "Balance top-up"
	codeNonceLen   = 10
)

// RechargeFlow runs top-up attempts for one store.
type RechargeFlow struct {
	limits  *DailyLimitLedger
	balance *BalanceStore
	log     *TransactionLog
	prefix  string
	ttl     time.Duration
	now     Clock
	nonce   func() string
}

// NewRechargeFlow wires the flow. Zero values fall back to defaults
// (DefaultDailyCap, DefaultCodePrefix, DefaultCodeTTL).
func NewRechargeFlow(store Store, cap Money, prefix string, ttl time.Duration, now Clock) *RechargeFlow {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RechargeFlow{
		limits:  NewDailyLimitLedger(store, cap),
		balance: NewBalanceStore(store),
		log:     NewTransactionLog(store),
		prefix:  prefix,
		ttl:     ttl,
		now:     now,
		nonce:   newCodeNonce,
	}
}

// DailyCap returns the configured cap, for display ("X left today").
func (r *RechargeFlow) DailyCap() Money { return r.limits.Cap() }

// Initiate parses rawAmount, reserves it against today's cap, and
// returns the payment code to show the user. A cap rejection performs
// no write at all; the balance is untouched either way.
func (r *RechargeFlow) Initiate(ctx context.Context, sess Session, rawAmount string) (PaymentCode, error) {
	amount, err := ParsePositiveMoney(rawAmount)
	if err != nil {
		return PaymentCode{}, err
	}

	issuedAt := r.now()
	if _, err := r.limits.CheckAndReserve(ctx, sess.Account, amount, DayOf(issuedAt)); err != nil {
		return PaymentCode{}, err
	}

	return PaymentCode{
		Value:     FormatPaymentCode(r.prefix, r.nonce(), amount),
		Amount:    amount,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(r.ttl),
	}, nil
}

// Confirm completes an initiated top-up: credit, then log append.
// An expired code is refused with ErrPaymentCodeExpired and the attempt
// is abandoned - the reserved daily allowance stays consumed, and any
// mutation committed before abandonment is not rolled back.
//
// The code is client-held: the amount and deadlines come back from the
// caller and are trusted as issued. The daily cap is gated at Initiate
// only; Confirm does not re-reserve, so a caller fabricating a code
// bypasses the cap. Acceptable while the caller is the app itself; a
// server-side code registry is the upgrade path if that changes.
func (r *RechargeFlow) Confirm(ctx context.Context, sess Session, code PaymentCode) (AuthResult, error) {
	if code.Expired(r.now()) {
		return AuthResult{State: AuthRejected}, ErrPaymentCodeExpired
	}

	newBalance, err := r.balance.Credit(ctx, sess.Account, code.Amount)
	if err != nil {
		return AuthResult{State: AuthRejected}, err
	}

	entry := NewCredit(code.Amount, topUpLabel, r.now())
	if err := r.log.Append(ctx, sess.Account, entry); err != nil {
		return AuthResult{State: AuthPartialFailure, NewBalance: newBalance}, &PartialFailureError{
			Account:   sess.Account,
			Op:        "topup_credit",
			Committed: newBalance,
			Cause:     err,
		}
	}

	return AuthResult{State: AuthCommitted, NewBalance: newBalance, Entry: entry}, nil
}

// newCodeNonce derives a short alphanumeric nonce from a random UUID.
func newCodeNonce() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeNonceLen])
}
