/*
ledger.go - Append-only transaction log

PURPOSE:
  The per-account history of monetary events, newest first. Every
  committed credit and debit is recorded here so the user can review
  exactly how the balance got to where it is.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: no update, no delete. Ever.
  2. PREPEND ORDER: the newest entry is always element 0. The log is
     never reordered after insertion.
  3. IMMUTABLE ENTRIES: once appended, no component rewrites an entry's
     amount, label, or timestamp.
  4. GROW-ONLY: no pagination, dedup, or trimming in the core.

COUPLING:
  The log and the balance are logically paired - a debit should always
  have a matching entry - but they are physically independent documents
  with no cross-document transaction. The flows that write both report
  PartialFailureError when only one side lands; this package never
  papers over the gap.

SEE ALSO:
  - authorize.go, recharge.go: produce the entries
  - store.go: AppendTransaction / Transactions contract
*/
package fare

import (
	"context"
	"time"
)

// TransactionLog is the append-only, reverse-chronological event log.
type TransactionLog struct {
	store Store
}

func NewTransactionLog(store Store) *TransactionLog {
	return &TransactionLog{store: store}
}

// Append prepends entry to the account's log. This is the only write.
func (l *TransactionLog) Append(ctx context.Context, account AccountID, entry Transaction) error {
	return l.store.AppendTransaction(ctx, account, entry)
}

// List returns the log newest-first. Empty slice if nothing yet.
func (l *TransactionLog) List(ctx context.Context, account AccountID) ([]Transaction, error) {
	return l.store.Transactions(ctx, account)
}

// NewDebit builds a debit entry for the given amount and label.
func NewDebit(amount Money, label string, at time.Time) Transaction {
	return Transaction{
		ID:        NewTransactionID(at),
		Type:      TxDebit,
		Amount:    amount,
		Label:     label,
		CreatedAt: at,
	}
}

// NewCredit builds a credit entry for the given amount and label.
func NewCredit(amount Money, label string, at time.Time) Transaction {
	return Transaction{
		ID:        NewTransactionID(at),
		Type:      TxCredit,
		Amount:    amount,
		Label:     label,
		CreatedAt: at,
	}
}
