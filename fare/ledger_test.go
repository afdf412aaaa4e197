package fare_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busspass/fare-engine/fare"
	"github.com/busspass/fare-engine/fare/store"
)

// =============================================================================
// APPEND / ORDER
// =============================================================================

func TestTransactionLog_LengthEqualsAppendCount(t *testing.T) {
	log := fare.NewTransactionLog(store.NewMemory())
	ctx := context.Background()

	const n = 7
	base := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		entry := fare.NewCredit(money("1.00"), fmt.Sprintf("top-up %d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, log.Append(ctx, "acc-1", entry))
	}

	entries, err := log.List(ctx, "acc-1")
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestTransactionLog_NewestFirst(t *testing.T) {
	log := fare.NewTransactionLog(store.NewMemory())
	ctx := context.Background()
	base := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

	first := fare.NewCredit(money("15.00"), "Balance top-up", base)
	second := fare.NewDebit(money("4.60"), "Fare - tag A3D2", base.Add(time.Minute))

	require.NoError(t, log.Append(ctx, "acc-1", first))
	require.NoError(t, log.Append(ctx, "acc-1", second))

	entries, err := log.List(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID, "element 0 is always the most recent")
	assert.Equal(t, first.ID, entries[1].ID)
}

func TestTransactionLog_EmptyForUnknownAccount(t *testing.T) {
	log := fare.NewTransactionLog(store.NewMemory())

	entries, err := log.List(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// IMMUTABILITY
// =============================================================================

func TestTransactionLog_ReadsAreCopies(t *testing.T) {
	log := fare.NewTransactionLog(store.NewMemory())
	ctx := context.Background()

	entry := fare.NewDebit(money("4.60"), "Fare - tag A3D2", time.Now())
	require.NoError(t, log.Append(ctx, "acc-1", entry))

	entries, err := log.List(ctx, "acc-1")
	require.NoError(t, err)
	entries[0].Label = "tampered"
	entries[0].Amount = money("0.01")

	again, err := log.List(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Fare - tag A3D2", again[0].Label, "stored entries are immutable")
	assert.Equal(t, money("4.60"), again[0].Amount)
}

func TestNewTransactionID_TimeDerived(t *testing.T) {
	at := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fmt.Sprintf("%d", at.UnixMilli()), fare.NewTransactionID(at))
}
