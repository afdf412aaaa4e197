package fare_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busspass/fare-engine/fare"
	"github.com/busspass/fare-engine/fare/store"
)

func newTestRecharge(s fare.Store) *fare.RechargeFlow {
	return fare.NewRechargeFlow(s, fare.DefaultDailyCap, fare.DefaultCodePrefix, fare.DefaultCodeTTL, fixedClock())
}

// =============================================================================
// INITIATE
// =============================================================================

func TestRecharge_InitiateIssuesPaymentCode(t *testing.T) {
	mem := store.NewMemory()
	flow := newTestRecharge(mem)
	ctx := context.Background()

	code, err := flow.Initiate(ctx, fare.NewSession("acc-1"), "25,00")
	require.NoError(t, err)

	assert.Equal(t, money("25.00"), code.Amount)
	assert.True(t, strings.HasPrefix(code.Value, "PAY-"))
	assert.True(t, strings.HasSuffix(code.Value, "-AMT:25.00"), "amount rides in the token: %s", code.Value)
	assert.Equal(t, 60*time.Second, code.ExpiresAt.Sub(code.IssuedAt))
	assert.False(t, code.Expired(code.IssuedAt))
}

func TestRecharge_InitiateRejectsUnparsableAmount(t *testing.T) {
	flow := newTestRecharge(store.NewMemory())

	_, err := flow.Initiate(context.Background(), fare.NewSession("acc-1"), "abc")
	assert.ErrorIs(t, err, fare.ErrInvalidAmount)

	_, err = flow.Initiate(context.Background(), fare.NewSession("acc-1"), "0")
	assert.ErrorIs(t, err, fare.ErrInvalidAmount)
}

func TestRecharge_InitiateEnforcesDailyCap(t *testing.T) {
	// GIVEN: 96.00 already accepted today
	// WHEN: 10.00 more is requested
	// THEN: refused, no code issued, balance untouched

	mem := store.NewMemory()
	flow := newTestRecharge(mem)
	ctx := context.Background()
	sess := fare.NewSession("acc-1")

	_, err := flow.Initiate(ctx, sess, "96.00")
	require.NoError(t, err)

	_, err = flow.Initiate(ctx, sess, "10.00")
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrDailyCapExceeded)

	bal, err := mem.GetBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "initiation alone never credits")
}

func TestRecharge_InitiateReservesBeforeAnyCredit(t *testing.T) {
	mem := store.NewMemory()
	flow := newTestRecharge(mem)
	ctx := context.Background()

	_, err := flow.Initiate(ctx, fare.NewSession("acc-1"), "40.00")
	require.NoError(t, err)

	rec, err := mem.GetDailyLimit(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, money("40.00"), rec.TotalToppedUp, "allowance is consumed at initiation")
}

// =============================================================================
// CONFIRM
// =============================================================================

func TestRecharge_ConfirmCreditsAndLogs(t *testing.T) {
	mem := store.NewMemory()
	flow := newTestRecharge(mem)
	ctx := context.Background()
	sess := fare.NewSession("acc-1")

	code, err := flow.Initiate(ctx, sess, "25.00")
	require.NoError(t, err)

	result, err := flow.Confirm(ctx, sess, code)
	require.NoError(t, err)
	assert.Equal(t, fare.AuthCommitted, result.State)
	assert.Equal(t, money("25.00"), result.NewBalance)

	entries, err := mem.Transactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fare.TxCredit, entries[0].Type)
	assert.Equal(t, money("25.00"), entries[0].Amount)
	assert.Equal(t, "Balance top-up", entries[0].Label)
}

func TestRecharge_ConfirmRefusesExpiredCode(t *testing.T) {
	// The countdown is client-local; once it has elapsed the code is
	// abandoned and nothing is credited.
	mem := store.NewMemory()
	flow := newTestRecharge(mem)
	ctx := context.Background()
	sess := fare.NewSession("acc-1")

	issued := fixedClock()().Add(-2 * time.Minute)
	stale := fare.PaymentCode{
		Value:     fare.FormatPaymentCode("PAY", "ABCDEF1234", money("25.00")),
		Amount:    money("25.00"),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(fare.DefaultCodeTTL),
	}

	result, err := flow.Confirm(ctx, sess, stale)
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrPaymentCodeExpired)
	assert.Equal(t, fare.AuthRejected, result.State)

	bal, _ := mem.GetBalance(ctx, "acc-1")
	assert.True(t, bal.IsZero())
	entries, _ := mem.Transactions(ctx, "acc-1")
	assert.Empty(t, entries)
}

func TestRecharge_ExpiryDoesNotReleaseAllowance(t *testing.T) {
	// An abandoned code keeps its slice of the daily cap. Re-initiating
	// the same amount counts again.
	mem := store.NewMemory()
	flow := newTestRecharge(mem)
	ctx := context.Background()
	sess := fare.NewSession("acc-1")

	_, err := flow.Initiate(ctx, sess, "60.00")
	require.NoError(t, err)

	_, err = flow.Initiate(ctx, sess, "60.00")
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrDailyCapExceeded)
}

func TestRecharge_ConfirmLogAppendFails_PartialFailure(t *testing.T) {
	mem := store.NewMemory()
	broken := &appendFailStore{Store: mem}
	flow := newTestRecharge(broken)
	ctx := context.Background()
	sess := fare.NewSession("acc-1")

	code, err := flow.Initiate(ctx, sess, "25.00")
	require.NoError(t, err)

	result, err := flow.Confirm(ctx, sess, code)
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrPartialFailure)
	assert.Equal(t, fare.AuthPartialFailure, result.State)

	var pf *fare.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "topup_credit", pf.Op)
	assert.Equal(t, money("25.00"), pf.Committed)

	// The credit landed even though the log entry did not.
	bal, _ := mem.GetBalance(ctx, "acc-1")
	assert.Equal(t, money("25.00"), bal)
}
