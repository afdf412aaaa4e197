/*
balance.go - Balance store: validated credit/debit over atomic deltas

PURPOSE:
  The only two ways a balance changes are Credit and Debit, and both
  live here. The store provides the atomic apply-delta primitive; this
  wrapper owns the business validation around it.

INVARIANTS:
  1. balance >= 0 always. Debit never drives it below zero; the
     insufficiency check and the write are one atomic store operation,
     so a racing debit cannot sneak past a stale snapshot.
  2. Credit never decreases the balance (amount must be > 0).
  3. Absence is zero only at first read. An update against a missing
     document starts from zero explicitly, never from a guess.

  The daily top-up cap is NOT checked here - the recharge flow gates on
  the daily-limit ledger BEFORE touching the balance, so a rejected
  top-up never partially mutates account state.

SEE ALSO:
  - store.go: ApplyBalanceDelta contract
  - limit.go: the gate that runs before Credit on top-ups
*/
package fare

import "context"

// BalanceStore exposes validated balance mutations for one store.
type BalanceStore struct {
	store Store
}

func NewBalanceStore(store Store) *BalanceStore {
	return &BalanceStore{store: store}
}

// Balance returns the most recently committed balance visible to the
// caller. Missing documents read as zero.
func (b *BalanceStore) Balance(ctx context.Context, account AccountID) (Money, error) {
	return b.store.GetBalance(ctx, account)
}

// Credit adds amount to the balance and returns the new value.
// Fails with ErrInvalidAmount when amount <= 0. There is no upper
// bound on the balance itself; the daily cap is the caller's gate.
func (b *BalanceStore) Credit(ctx context.Context, account AccountID, amount Money) (Money, error) {
	if !amount.IsPositive() {
		return 0, &InvalidAmountError{Input: amount.Format(), Reason: "credit must be positive"}
	}
	return b.store.ApplyBalanceDelta(ctx, account, amount)
}

// Debit subtracts amount from the balance and returns the new value,
// guaranteed >= 0. Fails with ErrInsufficientFunds (balance untouched)
// when the current balance cannot cover the amount.
func (b *BalanceStore) Debit(ctx context.Context, account AccountID, amount Money) (Money, error) {
	if !amount.IsPositive() {
		return 0, &InvalidAmountError{Input: amount.Format(), Reason: "debit must be positive"}
	}
	return b.store.ApplyBalanceDelta(ctx, account, amount.Neg())
}
