/*
errors.go - Centralized error types for the fare engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on sentinels with errors.Is and pull details out of the
  structured variants with errors.As.

ERROR CATEGORIES:
  1. Refusals  - business rules said no (invalid amount, insufficient
     funds, daily cap, tag mismatch, expired code). Reported to the user
     with a specific reason. Never retried automatically.
  2. Storage   - the backing store was unreachable or failed mid-call.
     Surfaced for a user-initiated retry.
  3. Partial   - one half of a paired mutation committed and the other
     did not. The most severe category: it must never be coerced into a
     plain success or plain failure, because blind compensation
     (re-credit, re-debit) risks double-mutation under concurrent
     sessions.

USAGE:
    if errors.Is(err, fare.ErrInsufficientFunds) { ... }

    var pf *fare.PartialFailureError
    if errors.As(err, &pf) {
        // pf.Committed holds the balance that DID commit
    }

SEE ALSO:
  - authorize.go: produces PartialFailureError on fare debits
  - recharge.go: produces PartialFailureError on top-up credits
*/
package fare

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when user input does not parse to a
	// usable monetary amount, or a non-positive amount was supplied
	// where a positive one is required.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds is returned when a debit exceeds the current
	// balance. The balance is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDailyCapExceeded is returned when a top-up would push the
	// day's accumulated total past the daily cap. Nothing is written.
	ErrDailyCapExceeded = errors.New("daily top-up cap exceeded")

	// ErrTagMismatch is returned when a tag read delivers an identifier
	// that does not match the card's bound tag. Terminal refusal, not a
	// system error.
	ErrTagMismatch = errors.New("tag not recognized")

	// ErrProfileNotFound is returned when an operation requires an
	// existing profile (card registration precondition).
	ErrProfileNotFound = errors.New("profile not found")

	// ErrCardNotFound is returned when the account has no registered card.
	ErrCardNotFound = errors.New("card not found")

	// ErrIncompleteCard is returned when a first-time card registration
	// is missing holder name, number, or expiry.
	ErrIncompleteCard = errors.New("card registration requires holder name, number, and expiry")

	// ErrPaymentCodeExpired is returned when a payment code is confirmed
	// after its local countdown elapsed. The pending top-up is abandoned;
	// nothing that already committed is rolled back.
	ErrPaymentCodeExpired = errors.New("payment code expired")

	// ErrStorageUnavailable is returned when the backing store failed.
	// The engine does not auto-retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPartialFailure is returned when a balance mutation committed
	// but its paired transaction-log append did not (or vice versa).
	ErrPartialFailure = errors.New("partial failure: paired write incomplete")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError reports why a raw input was rejected.
type InvalidAmountError struct {
	Input  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// InsufficientFundsError reports the shortfall on a refused debit.
type InsufficientFundsError struct {
	Account   AccountID
	Balance   Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, requested %s",
		e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// DailyCapError reports how a top-up collided with the daily cap.
type DailyCapError struct {
	Account   AccountID
	Day       Day
	Accrued   Money // accepted so far today
	Requested Money
	Cap       Money
}

func (e *DailyCapError) Error() string {
	return fmt.Sprintf("daily cap exceeded: %s accepted today, %s requested, cap %s",
		e.Accrued, e.Requested, e.Cap)
}

func (e *DailyCapError) Unwrap() error { return ErrDailyCapExceeded }

// TagMismatchError reports a rejected tag read.
type TagMismatchError struct {
	Account AccountID
	Read    string
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("tag %q does not match the registered card", e.Read)
}

func (e *TagMismatchError) Unwrap() error { return ErrTagMismatch }

// PartialFailureError reports a half-committed paired mutation.
//
// Committed is the balance as of the mutation that DID land, so the
// caller can decide whether to retry the log append alone rather than
// re-apply the balance delta.
type PartialFailureError struct {
	Account   AccountID
	Op        string // "fare_debit", "topup_credit"
	Committed Money  // balance after the committed half
	Cause     error  // why the second half failed
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s committed (balance %s) but log append failed: %v",
		e.Op, e.Committed, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return ErrPartialFailure }

// StorageError wraps a backend failure with the operation that hit it.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return ErrStorageUnavailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRefusal returns true for business-rule rejections that should be
// reported to the user with a reason and never retried automatically.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrDailyCapExceeded) ||
		errors.Is(err, ErrTagMismatch) ||
		errors.Is(err, ErrIncompleteCard) ||
		errors.Is(err, ErrPaymentCodeExpired)
}

// IsRetryable returns true if the error might succeed on a user retry.
// Partial failures are deliberately NOT retryable as a whole operation;
// only the missing half should be replayed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrCardNotFound)
}
