/*
authorize.go - Fare authorization flow

PURPOSE:
  Turns an external trigger - a contactless tag read or a scanned code -
  into an atomic "debit the fare and record it" attempt. One attempt per
  trigger, no retries inside the flow.

STATE MACHINE (one attempt):
  Idle -> Validating -> Rejected            (terminal, no mutation)
                     -> Authorized -> Committed        (terminal success)
                                   -> PartialFailure   (terminal, surfaced)

  Validating compares the trigger against the account: tag identifier
  must match the card's bound tag exactly (mismatch is a refusal, not an
  error), and the balance snapshot must cover the fare.

COMMIT ORDER:
  Debit first, then log append. The debit is the atomic store
  operation that enforces non-negativity; the append records it. If the
  append fails after a committed debit, the flow returns
  PartialFailureError carrying the committed balance so the caller can
  retry the append alone instead of re-debiting. The reverse order
  (log-first) would instead risk a logged-but-never-charged ride; we
  prefer the money side to be the source of truth.

TRIGGERS:
  - Tag read: opaque identifier, exact string match against the bound
    tag. No protocol handling here - the read already happened.
  - Code scan: opaque payload, no structural validation; it only feeds
    the entry label.

SEE ALSO:
  - balance.go: the debit primitive
  - ledger.go: the entry it pairs with
  - recharge.go: the mirrored credit-side flow
*/
package fare

import (
	"context"
	"fmt"
	"time"
)

// Clock supplies "now" so flows are testable without sleeping.
type Clock func() time.Time

// AuthState is the terminal state of one authorization attempt.
type AuthState string

const (
	AuthRejected       AuthState = "rejected"
	AuthCommitted      AuthState = "committed"
	AuthPartialFailure AuthState = "partial_failure"
)

// AuthResult is what a finished attempt reports back to the caller.
type AuthResult struct {
	State      AuthState
	NewBalance Money
	Entry      Transaction // zero-value unless an entry was appended
}

// FareAuthorizer runs fare authorization attempts at a fixed tariff.
type FareAuthorizer struct {
	store   Store
	balance *BalanceStore
	log     *TransactionLog
	fare    Money
	now     Clock
}

// NewFareAuthorizer wires the flow. fare is the fixed tariff debited
// per authorized ride.
func NewFareAuthorizer(store Store, fare Money, now Clock) *FareAuthorizer {
	if now == nil {
		now = time.Now
	}
	return &FareAuthorizer{
		store:   store,
		balance: NewBalanceStore(store),
		log:     NewTransactionLog(store),
		fare:    fare,
		now:     now,
	}
}

// Fare returns the fixed tariff.
func (a *FareAuthorizer) Fare() Money { return a.fare }

// AuthorizeTag handles a tag-read trigger. The delivered identifier
// must exactly match the bound tag on the account's card; a mismatch is
// a terminal refusal with no mutation. An account without a card
// refuses with ErrCardNotFound.
func (a *FareAuthorizer) AuthorizeTag(ctx context.Context, sess Session, tagID string) (AuthResult, error) {
	card, err := a.store.GetCard(ctx, sess.Account)
	if err != nil {
		return AuthResult{State: AuthRejected}, err
	}
	if card.TagID != tagID {
		return AuthResult{State: AuthRejected}, &TagMismatchError{Account: sess.Account, Read: tagID}
	}
	return a.authorize(ctx, sess, fmt.Sprintf("Fare - tag %s", tagID))
}

// AuthorizeScan handles a scanned-code trigger. The payload is opaque:
// it is not validated, it only becomes the entry's label context.
func (a *FareAuthorizer) AuthorizeScan(ctx context.Context, sess Session, payload string) (AuthResult, error) {
	return a.authorize(ctx, sess, fmt.Sprintf("Fare - code %s", payload))
}

// authorize runs Validating -> Authorized -> Committed/PartialFailure.
func (a *FareAuthorizer) authorize(ctx context.Context, sess Session, label string) (AuthResult, error) {
	// Validating: sufficiency against a snapshot. The atomic debit
	// below re-checks, so a racing session cannot slip past this.
	snapshot, err := a.balance.Balance(ctx, sess.Account)
	if err != nil {
		return AuthResult{State: AuthRejected}, err
	}
	if snapshot.LessThan(a.fare) {
		return AuthResult{State: AuthRejected}, &InsufficientFundsError{
			Account:   sess.Account,
			Balance:   snapshot,
			Requested: a.fare,
		}
	}

	// Authorized: debit first, then log.
	newBalance, err := a.balance.Debit(ctx, sess.Account, a.fare)
	if err != nil {
		return AuthResult{State: AuthRejected}, err
	}

	entry := NewDebit(a.fare, label, a.now())
	if err := a.log.Append(ctx, sess.Account, entry); err != nil {
		// The debit committed; never dress this up as plain success or
		// plain failure.
		return AuthResult{State: AuthPartialFailure, NewBalance: newBalance}, &PartialFailureError{
			Account:   sess.Account,
			Op:        "fare_debit",
			Committed: newBalance,
			Cause:     err,
		}
	}

	return AuthResult{State: AuthCommitted, NewBalance: newBalance, Entry: entry}, nil
}
