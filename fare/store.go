/*
store.go - Persistence interface for accounts, cards, limits, and the log

PURPOSE:
  Defines the contract between the fare core and whatever holds the
  documents: one balance document, one card document, one daily-limit
  document, and one transaction list per account, each keyed by
  AccountID and owned exclusively by it.

CONCURRENCY CONTRACT (read this before implementing):
  Multiple sessions can act on the same account at once - two devices
  on one login, or a retry after a dropped response. A plain
  read-then-write against these documents is therefore UNSAFE: two
  writers can both read the same prior state and each persist their own
  result, losing an update (a double top-up where only one credit
  survives, or a silently dropped log entry).

  The interface is shaped to make that bug unimplementable at the call
  site: every mutation is an atomic apply-delta or guarded upsert, with
  the invariant check INSIDE the operation. Implementations must make
  each method atomic - a single guarded UPDATE in SQL, a mutex in
  memory. There is no read-modify-write method to misuse.

  No cross-document guarantee is assumed: a balance delta and its
  paired log append are two separate atomic operations, and the flows
  above this interface surface PartialFailureError when only one lands.

ERROR MAPPING:
  Invariant violations come back as domain errors (ErrInsufficientFunds,
  ErrDailyCapExceeded, ErrCardNotFound, ...). Backend faults come back
  wrapping ErrStorageUnavailable.

IMPLEMENTATIONS:
  - store/memory.go (package fare/store): in-memory, for tests and dev
  - store/sqlite:                        production SQLite

SEE ALSO:
  - balance.go, limit.go, ledger.go: domain wrappers over this interface
*/
package fare

import "context"

// Store persists all per-account documents.
//
// Every mutation is atomic on its own document. Absence of a balance
// document reads as zero - at first-read time only, never synthesized
// silently during an update.
type Store interface {
	// --- profile ---

	// GetProfile returns the profile, or ErrProfileNotFound.
	GetProfile(ctx context.Context, account AccountID) (Profile, error)

	// PutProfile creates or replaces the profile.
	PutProfile(ctx context.Context, p Profile) error

	// --- balance ---

	// GetBalance returns the committed balance. A missing balance
	// document reads as zero.
	GetBalance(ctx context.Context, account AccountID) (Money, error)

	// ApplyBalanceDelta atomically adds delta (negative for debits) to
	// the balance and returns the new value. If the result would be
	// negative it fails with ErrInsufficientFunds and writes nothing.
	ApplyBalanceDelta(ctx context.Context, account AccountID, delta Money) (Money, error)

	// --- card ---

	// GetCard returns the registered card, or ErrCardNotFound.
	GetCard(ctx context.Context, account AccountID) (Card, error)

	// SaveCard upserts the card wholesale. Merge semantics live in the
	// card service; the store writes what it is given.
	SaveCard(ctx context.Context, c Card) error

	// DeleteCard removes the card. The profile, balance, and
	// transaction log survive. Deleting an absent card is a no-op.
	DeleteCard(ctx context.Context, account AccountID) error

	// --- daily limit ---

	// ReserveDailyAllowance atomically accumulates amount into the
	// account's record for day and returns the new total. A record
	// dated other than day counts as zero and is overwritten with a
	// fresh accumulation. If prior+amount would exceed cap it fails
	// with ErrDailyCapExceeded and writes nothing.
	ReserveDailyAllowance(ctx context.Context, account AccountID, day Day, amount, cap Money) (Money, error)

	// GetDailyLimit returns the stored record as-is (possibly stale),
	// or a zero-value record if none exists.
	GetDailyLimit(ctx context.Context, account AccountID) (DailyLimitRecord, error)

	// --- transaction log ---

	// AppendTransaction atomically prepends tx to the account's log.
	// Append-only: there is no update or delete for log entries. Ever.
	AppendTransaction(ctx context.Context, account AccountID, tx Transaction) error

	// Transactions returns the log newest-first. Empty if none.
	Transactions(ctx context.Context, account AccountID) ([]Transaction, error)
}
