package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busspass/fare-engine/fare"
	"github.com/busspass/fare-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func cents(n int64) fare.Money { return fare.Cents(n) }

// =============================================================================
// PROFILE
// =============================================================================

func TestSQLite_ProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutProfile(ctx, fare.Profile{
		Account:   "acc-1",
		Name:      "Ana Souza",
		Email:     "ana@example.com",
		CreatedAt: created,
	}))

	p, err := s.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, fare.AccountID("acc-1"), p.Account)
	assert.Equal(t, "Ana Souza", p.Name)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.True(t, p.CreatedAt.Equal(created))
}

func TestSQLite_ProfileNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, fare.ErrProfileNotFound)
}

func TestSQLite_PutProfileUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutProfile(ctx, fare.Profile{Account: "acc-1", Name: "Ana"}))
	require.NoError(t, s.PutProfile(ctx, fare.Profile{Account: "acc-1", Name: "Ana Souza"}))

	p, err := s.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", p.Name)
}

// =============================================================================
// BALANCE
// =============================================================================

func TestSQLite_BalanceAbsenceReadsAsZero(t *testing.T) {
	s := newTestStore(t)

	bal, err := s.GetBalance(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestSQLite_FirstDeltaStartsFromZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	next, err := s.ApplyBalanceDelta(ctx, "acc-1", cents(1000))
	require.NoError(t, err)
	assert.Equal(t, cents(1000), next)
}

func TestSQLite_GuardedDebitRefusesOverdraw(t *testing.T) {
	// GIVEN: balance 2.00
	// WHEN: a -4.60 delta is applied
	// THEN: zero rows match the guard; InsufficientFundsError with the
	//       actual balance, and the row is untouched

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyBalanceDelta(ctx, "acc-1", cents(200))
	require.NoError(t, err)

	_, err = s.ApplyBalanceDelta(ctx, "acc-1", cents(460).Neg())
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrInsufficientFunds)

	var detail *fare.InsufficientFundsError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, cents(200), detail.Balance)
	assert.Equal(t, cents(460), detail.Requested)

	bal, err := s.GetBalance(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, cents(200), bal)
}

func TestSQLite_DebitToExactlyZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyBalanceDelta(ctx, "acc-1", cents(460))
	require.NoError(t, err)

	next, err := s.ApplyBalanceDelta(ctx, "acc-1", cents(460).Neg())
	require.NoError(t, err)
	assert.True(t, next.IsZero())
}

// =============================================================================
// CARD
// =============================================================================

func TestSQLite_CardSaveGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := fare.Card{
		Account:    "acc-1",
		HolderName: "Ana Souza",
		Number:     "12345678",
		Expiry:     "12/2027",
		TagID:      "A3D2",
		Status:     fare.CardActive,
		UpdatedAt:  time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveCard(ctx, card))

	got, err := s.GetCard(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, card.HolderName, got.HolderName)
	assert.Equal(t, card.Number, got.Number)
	assert.Equal(t, card.TagID, got.TagID)
	assert.Equal(t, fare.CardActive, got.Status)

	require.NoError(t, s.DeleteCard(ctx, "acc-1"))
	_, err = s.GetCard(ctx, "acc-1")
	assert.ErrorIs(t, err, fare.ErrCardNotFound)
}

func TestSQLite_SaveCardUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := fare.Card{Account: "acc-1", HolderName: "Ana", Number: "12345678", Expiry: "12/2027"}
	require.NoError(t, s.SaveCard(ctx, base))

	base.TagID = "A3D2"
	require.NoError(t, s.SaveCard(ctx, base))

	got, err := s.GetCard(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "A3D2", got.TagID)
}

func TestSQLite_DeleteAbsentCardSucceeds(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.DeleteCard(context.Background(), "ghost"))
}

// =============================================================================
// DAILY LIMIT
// =============================================================================

func TestSQLite_ReserveAccumulatesUpToCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := fare.Day("2026-08-28")
	cap := cents(100_00)

	total, err := s.ReserveDailyAllowance(ctx, "acc-1", day, cents(96_00), cap)
	require.NoError(t, err)
	assert.Equal(t, cents(96_00), total)

	_, err = s.ReserveDailyAllowance(ctx, "acc-1", day, cents(10_00), cap)
	require.Error(t, err)
	assert.ErrorIs(t, err, fare.ErrDailyCapExceeded)

	// The rejection wrote nothing.
	rec, err := s.GetDailyLimit(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, cents(96_00), rec.TotalToppedUp)
	assert.Equal(t, day, rec.Date)

	// Exactly reaching the cap still goes through.
	total, err = s.ReserveDailyAllowance(ctx, "acc-1", day, cents(4_00), cap)
	require.NoError(t, err)
	assert.Equal(t, cents(100_00), total)
}

func TestSQLite_StaleDayRecordOverwritten(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cap := cents(100_00)

	_, err := s.ReserveDailyAllowance(ctx, "acc-1", fare.Day("2026-08-27"), cents(50_00), cap)
	require.NoError(t, err)

	total, err := s.ReserveDailyAllowance(ctx, "acc-1", fare.Day("2026-08-28"), cents(60_00), cap)
	require.NoError(t, err)
	assert.Equal(t, cents(60_00), total, "yesterday's total counts as zero")

	rec, err := s.GetDailyLimit(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, fare.Day("2026-08-28"), rec.Date)
	assert.Equal(t, cents(60_00), rec.TotalToppedUp)
}

func TestSQLite_DailyLimitAbsenceIsEmptyRecord(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.GetDailyLimit(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.True(t, rec.TotalToppedUp.IsZero())
	assert.True(t, rec.Date.IsZero())
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func TestSQLite_TransactionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

	const n = 5
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		tx := fare.Transaction{
			ID:        fmt.Sprintf("tx-%d", i),
			Type:      fare.TxCredit,
			Amount:    cents(100),
			Label:     fmt.Sprintf("top-up %d", i),
			CreatedAt: at,
		}
		require.NoError(t, s.AppendTransaction(ctx, "acc-1", tx))
	}

	entries, err := s.Transactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("tx-%d", n-1-i), entries[i].ID, "insertion order reversed")
	}
}

func TestSQLite_TransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, time.August, 28, 12, 0, 0, 123456000, time.UTC)
	tx := fare.NewDebit(cents(460), "Fare - tag A3D2", at)
	require.NoError(t, s.AppendTransaction(ctx, "acc-1", tx))

	entries, err := s.Transactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, tx.ID, entries[0].ID)
	assert.Equal(t, fare.TxDebit, entries[0].Type)
	assert.Equal(t, cents(460), entries[0].Amount)
	assert.Equal(t, "Fare - tag A3D2", entries[0].Label)
	assert.True(t, entries[0].CreatedAt.Equal(at))
}

func TestSQLite_TransactionsPartitionedByAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTransaction(ctx, "acc-1", fare.NewCredit(cents(1000), "Balance top-up", time.Now())))

	entries, err := s.Transactions(ctx, "acc-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
