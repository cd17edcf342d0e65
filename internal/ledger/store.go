// Package ledger is the system of record for time-off balances. All grants
// go through a single transactional code path so the balance column and the
// history table can never drift apart.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"hr-agents/internal/domain"
)

// Store wraps the SQLite ledger database.
//
// The pool is capped at one connection: every write runs on the same
// connection, which serializes concurrent requests at the database level
// rather than relying on callers to lock.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex
	frozen   map[string]bool // employees failing the consistency check
	verified map[string]bool // employees checked since open
}

// NewStore opens (or creates) the ledger database at dbPath and runs the
// schema migration. Use ":memory:" for an ephemeral store.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}

	return &Store{
		db:       db,
		logger:   logger,
		frozen:   make(map[string]bool),
		verified: make(map[string]bool),
	}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS employee (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL UNIQUE,
			allowed_days  INTEGER NOT NULL,
			consumed_days INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS timeoff_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id INTEGER NOT NULL REFERENCES employee(id),
			start_day   TEXT NOT NULL,
			total_days  INTEGER NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DefaultSeed is the roster provisioned on first run.
func DefaultSeed() []domain.Employee {
	return []domain.Employee{
		{Name: "Alice", AllowedDays: 20, ConsumedDays: 5},
		{Name: "Bob", AllowedDays: 15, ConsumedDays: 3},
		{Name: "Charlie", AllowedDays: 25, ConsumedDays: 10},
	}
}

// Seed inserts employees that are not already present. Existing rows are
// left untouched, so reseeding on startup is safe.
func (s *Store) Seed(ctx context.Context, employees []domain.Employee) error {
	for _, e := range employees {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO employee (name, allowed_days, consumed_days) VALUES (?, ?, ?)",
			e.Name, e.AllowedDays, e.ConsumedDays,
		)
		if err != nil {
			return fmt.Errorf("seed employee %q: %w", e.Name, err)
		}
	}
	return nil
}

// Balance returns the employee's remaining time-off days.
func (s *Store) Balance(ctx context.Context, name string) (int, error) {
	var allowed, consumed int
	err := s.db.QueryRowContext(ctx,
		"SELECT allowed_days, consumed_days FROM employee WHERE name = ?", name,
	).Scan(&allowed, &consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownEmployee, name)
	}
	if err != nil {
		return 0, domain.WrapOp("query balance", err)
	}
	return allowed - consumed, nil
}

// Employee returns a full employee row by name.
func (s *Store) Employee(ctx context.Context, name string) (*domain.Employee, error) {
	var e domain.Employee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, allowed_days, consumed_days FROM employee WHERE name = ?", name,
	).Scan(&e.ID, &e.Name, &e.AllowedDays, &e.ConsumedDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEmployee, name)
	}
	if err != nil {
		return nil, domain.WrapOp("query employee", err)
	}
	return &e, nil
}

// Employees lists the full roster ordered by id.
func (s *Store) Employees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, allowed_days, consumed_days FROM employee ORDER BY id")
	if err != nil {
		return nil, domain.WrapOp("list employees", err)
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.AllowedDays, &e.ConsumedDays); err != nil {
			return nil, domain.WrapOp("scan employee", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddRequest grants totalDays of time off starting startDay. The balance
// check, history insert, and balance update happen in one transaction:
// either both tables change or neither does. Concurrent requests racing for
// the last remaining days resolve to exactly one winner.
func (s *Store) AddRequest(ctx context.Context, name, startDay string, totalDays int) error {
	if totalDays < 1 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidAmount, totalDays)
	}

	if err := s.checkEmployee(ctx, name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapOp("begin tx", err)
	}
	defer tx.Rollback()

	var id int64
	var allowed, consumed int
	err = tx.QueryRowContext(ctx,
		"SELECT id, allowed_days, consumed_days FROM employee WHERE name = ?", name,
	).Scan(&id, &allowed, &consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEmployee, name)
	}
	if err != nil {
		return domain.WrapOp("query employee", err)
	}

	remaining := allowed - consumed
	if totalDays > remaining {
		return fmt.Errorf("%w: requested %d, %d remaining", domain.ErrInsufficientBalance, totalDays, remaining)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO timeoff_history (employee_id, start_day, total_days) VALUES (?, ?, ?)",
		id, startDay, totalDays,
	); err != nil {
		return domain.WrapOp("insert history", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE employee SET consumed_days = consumed_days + ? WHERE id = ?",
		totalDays, id,
	); err != nil {
		return domain.WrapOp("update balance", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapOp("commit", err)
	}

	s.logger.Info("time off granted",
		"employee", name,
		"start_day", startDay,
		"total_days", totalDays,
		"remaining", remaining-totalDays,
	)
	return nil
}

// RequestsFor returns the employee's granted requests in insertion order.
func (s *Store) RequestsFor(ctx context.Context, name string) ([]domain.TimeoffRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.employee_id, h.start_day, h.total_days
		FROM timeoff_history h
		JOIN employee e ON e.id = h.employee_id
		WHERE e.name = ?
		ORDER BY h.id`, name)
	if err != nil {
		return nil, domain.WrapOp("query history", err)
	}
	defer rows.Close()

	var out []domain.TimeoffRequest
	for rows.Next() {
		var r domain.TimeoffRequest
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.StartDay, &r.TotalDays); err != nil {
			return nil, domain.WrapOp("scan history", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// VerifyConsistency checks that consumed_days is explainable by the history
// table plus the seeded baseline. consumed_days may exceed the history sum
// by the amount consumed before the ledger started recording (the seed), but
// it can never be less: that would mean a grant bypassed the history table.
// A failing employee is frozen for writes until operator intervention.
func (s *Store) VerifyConsistency(ctx context.Context, name string) error {
	var consumed int
	var historySum sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT e.consumed_days, SUM(h.total_days)
		FROM employee e
		LEFT JOIN timeoff_history h ON h.employee_id = e.id
		WHERE e.name = ?
		GROUP BY e.id`, name,
	).Scan(&consumed, &historySum)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEmployee, name)
	}
	if err != nil {
		return domain.WrapOp("verify consistency", err)
	}

	if consumed < int(historySum.Int64) {
		s.freeze(name)
		s.logger.Error("ledger inconsistency detected",
			"employee", name,
			"consumed_days", consumed,
			"history_sum", historySum.Int64,
		)
		return fmt.Errorf("%w: %s: consumed %d < history sum %d",
			domain.ErrLedgerCorrupt, name, consumed, historySum.Int64)
	}
	return nil
}

// checkEmployee enforces the freeze and runs the lazy per-employee
// consistency check on the first write since open.
func (s *Store) checkEmployee(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.frozen[name] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is frozen", domain.ErrLedgerCorrupt, name)
	}
	needsVerify := !s.verified[name]
	s.mu.Unlock()

	if !needsVerify {
		return nil
	}
	if err := s.VerifyConsistency(ctx, name); err != nil {
		if errors.Is(err, domain.ErrUnknownEmployee) {
			// Let AddRequest report the missing employee itself.
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.verified[name] = true
	s.mu.Unlock()
	return nil
}

func (s *Store) freeze(name string) {
	s.mu.Lock()
	s.frozen[name] = true
	s.mu.Unlock()
}

// Unfreeze clears a freeze after the operator has repaired the rows.
func (s *Store) Unfreeze(name string) {
	s.mu.Lock()
	delete(s.frozen, name)
	delete(s.verified, name)
	s.mu.Unlock()
}
