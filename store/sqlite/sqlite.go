/*
Package sqlite provides the SQLite-backed implementation of fare.Store.

PURPOSE:
  Persists the per-account documents (profile, balance, card, daily
  limit, transaction log) in SQLite. The same patterns carry to
  PostgreSQL with only dialect changes.

ATOMICITY:
  The fare.Store contract requires every mutation to be atomic with its
  invariant check, because concurrent sessions on one account are
  expected. Here that means:

  - Balance deltas are a single guarded UPDATE:
        SET balance_cents = balance_cents + ?
        WHERE account_id = ? AND balance_cents + ? >= 0
    Zero rows affected means the guard refused the debit. There is no
    read-compute-write anywhere in the balance path.

  - Daily allowance reservation runs read-check-write inside one SQL
    transaction, overwriting stale-day records wholesale.

  - Log appends are single INSERTs into an append-only table with a
    monotonic seq; newest-first reads are ORDER BY seq DESC. No UPDATE
    or DELETE statements exist for this table.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool instead.

SEE ALSO:
  - fare/store.go: the contract, including the concurrency note
  - fare/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/busspass/fare-engine/fare"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements fare.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		account_id TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		account_id    TEXT PRIMARY KEY,
		balance_cents INTEGER NOT NULL DEFAULT 0 CHECK (balance_cents >= 0)
	);

	CREATE TABLE IF NOT EXISTS cards (
		account_id  TEXT PRIMARY KEY,
		holder_name TEXT NOT NULL,
		number      TEXT NOT NULL,
		expiry      TEXT NOT NULL,
		tag_id      TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'active',
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_limits (
		account_id  TEXT PRIMARY KEY,
		date        TEXT NOT NULL,
		total_cents INTEGER NOT NULL DEFAULT 0
	);

	-- Append-only transaction log. seq gives stable insertion order;
	-- reads go newest-first. No UPDATE or DELETE against this table.
	CREATE TABLE IF NOT EXISTS transactions (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id   TEXT NOT NULL,
		tx_id        TEXT NOT NULL,
		tx_type      TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		label        TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_id, seq DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROFILE
// =============================================================================

func (s *Store) GetProfile(ctx context.Context, account fare.AccountID) (fare.Profile, error) {
	var p fare.Profile
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, name, email, created_at FROM profiles WHERE account_id = ?`,
		string(account),
	).Scan(&p.Account, &p.Name, &p.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fare.Profile{}, fare.ErrProfileNotFound
	}
	if err != nil {
		return fare.Profile{}, &fare.StorageError{Op: "get_profile", Cause: err}
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

func (s *Store) PutProfile(ctx context.Context, p fare.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (account_id, name, email, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		string(p.Account), p.Name, p.Email, p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &fare.StorageError{Op: "put_profile", Cause: err}
	}
	return nil
}

// =============================================================================
// BALANCE
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, account fare.AccountID) (fare.Money, error) {
	var cents int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM balances WHERE account_id = ?`, string(account),
	).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		// Absence is zero at first read; no row is created.
		return 0, nil
	}
	if err != nil {
		return 0, &fare.StorageError{Op: "get_balance", Cause: err}
	}
	return fare.Cents(cents), nil
}

// ApplyBalanceDelta adds delta atomically. The non-negativity guard is
// part of the UPDATE itself, so a racing session cannot overdraw past a
// stale snapshot.
func (s *Store) ApplyBalanceDelta(ctx context.Context, account fare.AccountID, delta fare.Money) (fare.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
	}
	defer tx.Rollback()

	// First write against a missing document starts from an explicit
	// zero row.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO balances (account_id, balance_cents) VALUES (?, 0)`,
		string(account),
	); err != nil {
		return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE balances
		 SET balance_cents = balance_cents + ?
		 WHERE account_id = ? AND balance_cents + ? >= 0`,
		delta.Cents(), string(account), delta.Cents(),
	)
	if err != nil {
		return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
	}
	if affected == 0 {
		var current int64
		if err := tx.QueryRowContext(ctx,
			`SELECT balance_cents FROM balances WHERE account_id = ?`, string(account),
		).Scan(&current); err != nil {
			return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
		}
		return 0, &fare.InsufficientFundsError{
			Account:   account,
			Balance:   fare.Cents(current),
			Requested: delta.Neg(),
		}
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM balances WHERE account_id = ?`, string(account),
	).Scan(&next); err != nil {
		return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &fare.StorageError{Op: "apply_balance_delta", Cause: err}
	}
	return fare.Cents(next), nil
}

// =============================================================================
// CARD
// =============================================================================

func (s *Store) GetCard(ctx context.Context, account fare.AccountID) (fare.Card, error) {
	var c fare.Card
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, holder_name, number, expiry, tag_id, status, updated_at
		 FROM cards WHERE account_id = ?`, string(account),
	).Scan(&c.Account, &c.HolderName, &c.Number, &c.Expiry, &c.TagID, &c.Status, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fare.Card{}, fare.ErrCardNotFound
	}
	if err != nil {
		return fare.Card{}, &fare.StorageError{Op: "get_card", Cause: err}
	}
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}

func (s *Store) SaveCard(ctx context.Context, c fare.Card) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (account_id, holder_name, number, expiry, tag_id, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   holder_name = excluded.holder_name,
		   number      = excluded.number,
		   expiry      = excluded.expiry,
		   tag_id      = excluded.tag_id,
		   status      = excluded.status,
		   updated_at  = excluded.updated_at`,
		string(c.Account), c.HolderName, c.Number, c.Expiry, c.TagID, string(c.Status),
		c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &fare.StorageError{Op: "save_card", Cause: err}
	}
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, account fare.AccountID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cards WHERE account_id = ?`, string(account),
	)
	if err != nil {
		return &fare.StorageError{Op: "delete_card", Cause: err}
	}
	return nil
}

// =============================================================================
// DAILY LIMIT
// =============================================================================

// ReserveDailyAllowance runs the read-check-write inside one SQL
// transaction under the store mutex, so two racing top-ups cannot both
// squeeze under the cap.
func (s *Store) ReserveDailyAllowance(ctx context.Context, account fare.AccountID, day fare.Day, amount, cap fare.Money) (fare.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &fare.StorageError{Op: "reserve_daily_allowance", Cause: err}
	}
	defer tx.Rollback()

	var storedDay string
	var priorCents int64
	err = tx.QueryRowContext(ctx,
		`SELECT date, total_cents FROM daily_limits WHERE account_id = ?`, string(account),
	).Scan(&storedDay, &priorCents)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		priorCents = 0
	case err != nil:
		return 0, &fare.StorageError{Op: "reserve_daily_allowance", Cause: err}
	case storedDay != day.String():
		// Stale record: prior total counts as zero, the row gets
		// overwritten with the new day below.
		priorCents = 0
	}

	prior := fare.Cents(priorCents)
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

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO daily_limits (account_id, date, total_cents)
		 VALUES (?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET date = excluded.date, total_cents = excluded.total_cents`,
		string(account), day.String(), next.Cents(),
	); err != nil {
		return 0, &fare.StorageError{Op: "reserve_daily_allowance", Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &fare.StorageError{Op: "reserve_daily_allowance", Cause: err}
	}
	return next, nil
}

func (s *Store) GetDailyLimit(ctx context.Context, account fare.AccountID) (fare.DailyLimitRecord, error) {
	var rec fare.DailyLimitRecord
	var day string
	var cents int64
	err := s.db.QueryRowContext(ctx,
		`SELECT date, total_cents FROM daily_limits WHERE account_id = ?`, string(account),
	).Scan(&day, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return fare.DailyLimitRecord{Account: account}, nil
	}
	if err != nil {
		return fare.DailyLimitRecord{}, &fare.StorageError{Op: "get_daily_limit", Cause: err}
	}

	// The column is only ever written from a Day, so a row that does not
	// parse back is corruption, not a domain state.
	parsed, err := fare.ParseDay(day)
	if err != nil {
		return fare.DailyLimitRecord{}, &fare.StorageError{Op: "get_daily_limit", Cause: err}
	}
	rec.Account = account
	rec.Date = parsed
	rec.TotalToppedUp = fare.Cents(cents)
	return rec, nil
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, account fare.AccountID, tx fare.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, tx_id, tx_type, amount_cents, label, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(account), tx.ID, string(tx.Type), tx.Amount.Cents(), tx.Label,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &fare.StorageError{Op: "append_transaction", Cause: err}
	}
	return nil
}

func (s *Store) Transactions(ctx context.Context, account fare.AccountID) ([]fare.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_id, tx_type, amount_cents, label, created_at
		 FROM transactions WHERE account_id = ? ORDER BY seq DESC`,
		string(account),
	)
	if err != nil {
		return nil, &fare.StorageError{Op: "transactions", Cause: err}
	}
	defer rows.Close()

	var result []fare.Transaction
	for rows.Next() {
		var t fare.Transaction
		var cents int64
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Type, &cents, &t.Label, &createdAt); err != nil {
			return nil, &fare.StorageError{Op: "transactions", Cause: err}
		}
		t.Amount = fare.Cents(cents)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &fare.StorageError{Op: "transactions", Cause: err}
	}
	return result, nil
}
