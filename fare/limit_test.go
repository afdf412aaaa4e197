package fare_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busspass/fare-engine/fare"
	"github.com/busspass/fare-engine/fare/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLimitLedger() (*fare.DailyLimitLedger, *store.Memory) {
	mem := store.NewMemory()
	return fare.NewDailyLimitLedger(mem, fare.DefaultDailyCap), mem
}

func money(s string) fare.Money { return fare.MustParseMoney(s) }

// =============================================================================
// DAILY CAP TESTS
// =============================================================================

func TestDailyLimit_AccumulatesWithinCap(t *testing.T) {
	ledger, _ := newTestLimitLedger()
	ctx := context.Background()
	today := fare.Day("2026-08-28")

	total, err := ledger.CheckAndReserve(ctx, "acc-1", money("40.00"), today)
	require.NoError(t, err)
	assert.Equal(t, money("40.00"), total)

	total, err = ledger.CheckAndReserve(ctx, "acc-1", money("60.00"), today)
	require.NoError(t, err)
	assert.Equal(t, money("100.00"), total, "exactly at the cap is accepted")
}

func TestDailyLimit_RejectsOverCap_RecordUnchanged(t *testing.T) {
	// GIVEN: 96.00 already accepted today
	// WHEN: a 10.00 top-up is requested
	// THEN: rejected with DailyCapExceeded, record untouched

	ledger, mem := newTestLimitLedger()
	ctx := context.Background()
	today := fare.Day("2026-08-28")

	_, err := ledger.CheckAndReserve(ctx, "acc-1", money("96.00"), today)
	require.NoError(t, err)

	_, err = ledger.CheckAndReserve(ctx, "acc-1", money("10.00"), today)
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrDailyCapExceeded)

	var capErr *fare.DailyCapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, money("96.00"), capErr.Accrued)
	assert.Equal(t, money("10.00"), capErr.Requested)
	assert.Equal(t, money("100.00"), capErr.Cap)

	rec, err := mem.GetDailyLimit(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, money("96.00"), rec.TotalToppedUp, "rejection performs no write")
	assert.Equal(t, today, rec.Date)
}

func TestDailyLimit_SumAcceptedNeverExceedsCap(t *testing.T) {
	ledger, _ := newTestLimitLedger()
	ctx := context.Background()
	today := fare.Day("2026-08-28")

	accepted := fare.Money(0)
	for _, raw := range []string{"30.00", "30.00", "30.00", "30.00", "30.00"} {
		amount := money(raw)
		if _, err := ledger.CheckAndReserve(ctx, "acc-1", amount, today); err == nil {
			accepted = accepted.Add(amount)
		}
	}

	assert.False(t, accepted.GreaterThan(money("100.00")),
		"sum accepted in one day must never exceed the cap, got %s", accepted)
}

func TestDailyLimit_StaleRecordResetsToToday(t *testing.T) {
	// GIVEN: 50.00 accepted yesterday
	// WHEN: 60.00 is requested today
	// THEN: accepted; record overwritten with {today, 60.00}

	ledger, mem := newTestLimitLedger()
	ctx := context.Background()
	yesterday := fare.Day("2026-08-27")
	today := fare.Day("2026-08-28")

	_, err := ledger.CheckAndReserve(ctx, "acc-1", money("50.00"), yesterday)
	require.NoError(t, err)

	total, err := ledger.CheckAndReserve(ctx, "acc-1", money("60.00"), today)
	require.NoError(t, err)
	assert.Equal(t, money("60.00"), total, "yesterday's 50.00 counts as zero")

	rec, err := mem.GetDailyLimit(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, today, rec.Date)
	assert.Equal(t, money("60.00"), rec.TotalToppedUp)
}

func TestDailyLimit_AcceptedTodayTreatsStaleAsZero(t *testing.T) {
	ledger, _ := newTestLimitLedger()
	ctx := context.Background()

	_, err := ledger.CheckAndReserve(ctx, "acc-1", money("25.00"), fare.Day("2026-08-27"))
	require.NoError(t, err)

	got, err := ledger.AcceptedToday(ctx, "acc-1", fare.Day("2026-08-28"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDailyLimit_RejectsNonPositiveAmount(t *testing.T) {
	ledger, _ := newTestLimitLedger()

	_, err := ledger.CheckAndReserve(context.Background(), "acc-1", fare.Money(0), fare.Day("2026-08-28"))
	assert.ErrorIs(t, err, fare.ErrInvalidAmount)
}

func TestDailyLimit_AccountsAreIndependent(t *testing.T) {
	ledger, _ := newTestLimitLedger()
	ctx := context.Background()
	today := fare.Day("2026-08-28")

	_, err := ledger.CheckAndReserve(ctx, "acc-1", money("100.00"), today)
	require.NoError(t, err)

	// acc-1 being capped out says nothing about acc-2
	total, err := ledger.CheckAndReserve(ctx, "acc-2", money("100.00"), today)
	require.NoError(t, err)
	assert.Equal(t, money("100.00"), total)
}
