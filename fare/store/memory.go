// Package store provides an in-memory fare.Store implementation for
// tests and development.
package store

import (
	"context"
	"sync"

	"github.com/busspass/fare-engine/fare"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds every per-account document under one mutex. Each method
// is atomic, which is exactly the contract fare.Store demands: the
// invariant check and the write happen under the same lock, so two
// racing sessions cannot both read the same prior state and each
// persist their own result.
type Memory struct {
	mu           sync.RWMutex
	profiles     map[fare.AccountID]fare.Profile
	balances     map[fare.AccountID]fare.Money
	cards        map[fare.AccountID]fare.Card
	dailyLimits  map[fare.AccountID]fare.DailyLimitRecord
	transactions map[fare.AccountID][]fare.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		profiles:     make(map[fare.AccountID]fare.Profile),
		balances:     make(map[fare.AccountID]fare.Money),
		cards:        make(map[fare.AccountID]fare.Card),
		dailyLimits:  make(map[fare.AccountID]fare.DailyLimitRecord),
		transactions: make(map[fare.AccountID][]fare.Transaction),
	}
}

// --- profile ---

func (m *Memory) GetProfile(_ context.Context, account fare.AccountID) (fare.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[account]
	if !ok {
		return fare.Profile{}, fare.ErrProfileNotFound
	}
	return p, nil
}

func (m *Memory) PutProfile(_ context.Context, p fare.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.Account] = p
	return nil
}

// --- balance ---

func (m *Memory) GetBalance(_ context.Context, account fare.AccountID) (fare.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Absence reads as zero; nothing is written until a delta lands.
	return m.balances[account], nil
}

func (m *Memory) ApplyBalanceDelta(_ context.Context, account fare.AccountID, delta fare.Money) (fare.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.balances[account]
	next := current.Add(delta)
	if next.IsNegative() {
		return 0, &fare.InsufficientFundsError{
			Account:   account,
			Balance:   current,
			Requested: delta.Neg(),
		}
	}
	m.balances[account] = next
	return next, nil
}

// --- card ---

func (m *Memory) GetCard(_ context.Context, account fare.AccountID) (fare.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cards[account]
	if !ok {
		return fare.Card{}, fare.ErrCardNotFound
	}
	return c, nil
}

func (m *Memory) SaveCard(_ context.Context, c fare.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cards[c.Account] = c
	return nil
}

func (m *Memory) DeleteCard(_ context.Context, account fare.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cards, account)
	return nil
}

// --- daily limit ---

func (m *Memory) ReserveDailyAllowance(_ context.Context, account fare.AccountID, day fare.Day, amount, cap fare.Money) (fare.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.dailyLimits[account]

	// A record dated other than today is stale: prior total counts as
	// zero. The record is overwritten on acceptance, not merged with.
	prior := fare.Money(0)
	if rec.Date.Equal(day) {
		prior = rec.TotalToppedUp
	}

	next := prior.Add(amount)
	if next.GreaterThan(cap) {
		return 0, &fare.DailyCapError{
			Account:   account,
			Day:       day,
			Accrued:   prior,
			Requested: amount,
			Cap:       cap,
		}
	}

	m.dailyLimits[account] = fare.DailyLimitRecord{
		Account:       account,
		Date:          day,
		TotalToppedUp: next,
	}
	return next, nil
}

func (m *Memory) GetDailyLimit(_ context.Context, account fare.AccountID) (fare.DailyLimitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.dailyLimits[account], nil
}

// --- transaction log ---

func (m *Memory) AppendTransaction(_ context.Context, account fare.AccountID, tx fare.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Prepend: element 0 is always the newest entry.
	log := m.transactions[account]
	next := make([]fare.Transaction, 0, len(log)+1)
	next = append(next, tx)
	next = append(next, log...)
	m.transactions[account] = next
	return nil
}

func (m *Memory) Transactions(_ context.Context, account fare.AccountID) ([]fare.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.transactions[account]
	result := make([]fare.Transaction, len(log))
	copy(result, log)
	return result, nil
}
