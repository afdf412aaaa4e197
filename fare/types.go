/*
Package fare provides the balance/ledger core of a transit-fare
companion service.

PURPOSE:
  Users register a virtual card, load balance under a daily cap,
  authorize fixed-tariff fare deductions from a contactless tag read or
  a scanned code, and review an append-only transaction history. This
  package owns every rule about how a balance may change; everything
  else (HTTP, rendering, readers and scanners) is a collaborator that
  calls in.

KEY CONCEPTS IN THIS FILE (types.go):
  - AccountID / Session: explicit identity, passed into every operation.
    There is no ambient "current user" anywhere in this package - the
    session is an argument, which also keeps the core testable without
    live auth.
  - Profile: the registered user record. Its existence is a
    precondition for card registration.
  - Card: the payment credential bound to one physical tag identifier.
  - DailyLimitRecord: per-account, per-day top-up accumulator.
  - Transaction: one immutable ledger entry.
  - PaymentCode: the display-only top-up reference token.

DESIGN PRINCIPLES:
  1. Immutability: ledger entries are never modified after append.
  2. Precision: Money (integer cents) everywhere, floats nowhere.
  3. Explicitness: identity and time are arguments, not globals.

SEE ALSO:
  - store.go: persistence contract over these types
  - authorize.go / recharge.go: the flows that mutate them
*/
package fare

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// IDENTITY
// =============================================================================

// AccountID is the stable, opaque per-user identifier. Accounts, cards,
// daily-limit records, and transaction logs are all partitioned by it;
// nothing ever crosses accounts.
type AccountID string

// Session carries the authenticated identity into core operations.
// Constructed at the API boundary, never read from global state.
type Session struct {
	Account AccountID
}

// NewSession builds a session for an account.
func NewSession(account AccountID) Session {
	return Session{Account: account}
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile is the registered user record. A profile must exist before a
// card can be registered against the same account.
type Profile struct {
	Account   AccountID
	Name      string
	Email     string
	CreatedAt time.Time
}

// =============================================================================
// CARD
// =============================================================================

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardActive  CardStatus = "active"
	CardBlocked CardStatus = "blocked"
)

// Card is the user-facing payment credential. One per account, keyed by
// the same AccountID as the owning profile.
type Card struct {
	Account    AccountID
	HolderName string
	Number     string // digits only, up to 8
	Expiry     string // MM/YYYY
	TagID      string // bound physical tag identifier (token UID)
	Status     CardStatus
	UpdatedAt  time.Time
}

// MaskedNumber renders the card number for display: "**** " plus the
// last four digits. Short numbers are fully masked.
func (c Card) MaskedNumber() string {
	if len(c.Number) < 4 {
		return "****"
	}
	return "**** " + c.Number[len(c.Number)-4:]
}

// Merge overlays non-empty fields of in onto c. Partial updates never
// clobber fields the caller did not specify.
func (c Card) Merge(in Card) Card {
	out := c
	if in.HolderName != "" {
		out.HolderName = in.HolderName
	}
	if in.Number != "" {
		out.Number = in.Number
	}
	if in.Expiry != "" {
		out.Expiry = in.Expiry
	}
	if in.TagID != "" {
		out.TagID = in.TagID
	}
	if in.Status != "" {
		out.Status = in.Status
	}
	return out
}

// =============================================================================
// DAILY LIMIT RECORD
// =============================================================================

// DailyLimitRecord accumulates accepted top-ups for one account on one
// calendar day. A record dated before today is stale: its total counts
// as zero and the next accepted top-up overwrites it wholesale with the
// new day - stale records are replaced, never merged with.
type DailyLimitRecord struct {
	Account       AccountID
	Date          Day
	TotalToppedUp Money
}

// =============================================================================
// TRANSACTION - Immutable ledger entry
// =============================================================================

// TransactionType tags the direction of a ledger entry.
type TransactionType string

const (
	TxCredit TransactionType = "credit"
	TxDebit  TransactionType = "debit"
)

// Transaction is one immutable monetary event. Once appended to the
// log, no component ever rewrites its amount, label, or timestamp.
type Transaction struct {
	ID        string
	Type      TransactionType
	Amount    Money // always positive; Type carries the sign
	Label     string
	CreatedAt time.Time
}

// NewTransactionID derives an id from the event time (unix millis).
// Unique within an account under single-session issuance; concurrent
// sessions are the store's problem, not the id scheme's.
func NewTransactionID(at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10)
}

// =============================================================================
// PAYMENT CODE - Display-only top-up reference
// =============================================================================

// PaymentCode is the token shown to the user for an initiated top-up:
// fixed prefix + random alphanumeric nonce + requested amount. It is a
// reference string only - no party verifies it cryptographically. Its
// countdown is a client-local timer: expiry is cooperative, not a
// server lease.
type PaymentCode struct {
	Value     string
	Amount    Money
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the local countdown has elapsed.
func (p PaymentCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Remaining returns the countdown left on the code, floored at zero.
func (p PaymentCode) Remaining(now time.Time) time.Duration {
	if p.Expired(now) {
		return 0
	}
	return p.ExpiresAt.Sub(now)
}

// FormatPaymentCode composes the display token, e.g.
// "PAY-9F3K2M7Q1X-AMT:25.00".
func FormatPaymentCode(prefix, nonce string, amount Money) string {
	return fmt.Sprintf("%s-%s-AMT:%s", prefix, strings.ToUpper(nonce), amount)
}
