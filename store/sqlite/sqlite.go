/*
Package sqlite provides the SQLite-backed loan.Store.

PURPOSE:
  Durable persistence for loans and payments. In production the same
  patterns apply to PostgreSQL, only minor SQL dialect differences.

KEY TABLES:
  loans:    Mutable loan state; terms plus current balances and checkpoint.
  payments: Immutable payment history with the recorded waterfall split.
            No UPDATE or DELETE statements touch this table.

MONEY COLUMNS:
  All decimal amounts are stored as TEXT in decimal string form, never as
  REAL. Scanning goes through decimal.NewFromString so no float ever enters
  the money path.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery is cleaner.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - loan/store.go: Interface definition
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
)

// Store implements loan.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
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
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		client_name TEXT NOT NULL,
		client_ref TEXT,
		principal TEXT NOT NULL,
		rate_percent TEXT NOT NULL,
		period_type TEXT NOT NULL,
		term_periods INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL,
		principal_balance TEXT NOT NULL,
		pending_interest TEXT NOT NULL,
		penalty_balance TEXT NOT NULL,
		last_accrual_at TEXT NOT NULL,
		next_due_at TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);
	CREATE INDEX IF NOT EXISTS idx_loans_client_ref ON loans(client_ref);

	-- Sweep hot path: every non-finalized loan, oldest checkpoint first
	CREATE INDEX IF NOT EXISTS idx_loans_status_accrual
		ON loans(status, last_accrual_at);

	-- Payments (append-only history)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		number TEXT NOT NULL UNIQUE,
		amount TEXT NOT NULL,
		penalty_portion TEXT NOT NULL,
		interest_portion TEXT NOT NULL,
		principal_portion TEXT NOT NULL,
		overflow TEXT NOT NULL,
		method TEXT,
		reference TEXT,
		applied_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_loan
		ON payments(loan_id, applied_at ASC, created_at ASC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOANS
// =============================================================================

func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO loans
		(id, number, client_name, client_ref, principal, rate_percent, period_type,
		 term_periods, start_date, principal_balance, pending_interest, penalty_balance,
		 last_accrual_at, next_due_at, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		l.ID.String(),
		l.Number,
		l.ClientName,
		l.ClientRef,
		l.Principal.String(),
		l.RatePercent.String(),
		string(l.PeriodType),
		l.TermPeriods,
		l.StartDate.String(),
		l.PrincipalBalance.String(),
		l.PendingInterest.String(),
		l.PenaltyBalance.String(),
		l.LastAccrualAt.String(),
		timePointOrNull(l.NextDueAt),
		string(l.Status),
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLoan(ctx, loanColumns+" FROM loans WHERE id = ?", id.String())
}

func (s *Store) GetLoanByNumber(ctx context.Context, number string) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLoan(ctx, loanColumns+" FROM loans WHERE number = ?", number)
}

func (s *Store) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE loans SET
			principal_balance = ?,
			pending_interest = ?,
			penalty_balance = ?,
			last_accrual_at = ?,
			next_due_at = ?,
			status = ?,
			updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		l.PrincipalBalance.String(),
		l.PendingInterest.String(),
		l.PenaltyBalance.String(),
		l.LastAccrualAt.String(),
		timePointOrNull(l.NextDueAt),
		string(l.Status),
		l.UpdatedAt.UTC().Format(time.RFC3339),
		l.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return engine.ErrLoanNotFound
	}
	return nil
}

func (s *Store) ListLoans(ctx context.Context, f loan.ListFilter) ([]*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := loanColumns + " FROM loans"
	var conds []string
	var args []any

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.ClientRef != "" {
		conds = append(conds, "client_ref = ?")
		args = append(args, f.ClientRef)
	}
	if f.OnlyUnpaid {
		conds = append(conds, "status != ?")
		args = append(args, string(engine.StatusFinalized))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at ASC, number ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []*loan.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

const loanColumns = `
	SELECT id, number, client_name, client_ref, principal, rate_percent, period_type,
	       term_periods, start_date, principal_balance, pending_interest, penalty_balance,
	       last_accrual_at, next_due_at, status, created_at, updated_at`

func (s *Store) queryLoan(ctx context.Context, query string, args ...any) (*loan.Loan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loan: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, engine.ErrLoanNotFound
	}
	return scanLoan(rows)
}

func scanLoan(rows *sql.Rows) (*loan.Loan, error) {
	var (
		l                loan.Loan
		id               string
		clientRef        sql.NullString
		principal        string
		rate             string
		periodType       string
		startDate        string
		principalBalance string
		pendingInterest  string
		penaltyBalance   string
		lastAccrualAt    string
		nextDueAt        sql.NullString
		status           string
		createdAt        string
		updatedAt        string
	)

	err := rows.Scan(
		&id, &l.Number, &l.ClientName, &clientRef, &principal, &rate, &periodType,
		&l.TermPeriods, &startDate, &principalBalance, &pendingInterest, &penaltyBalance,
		&lastAccrualAt, &nextDueAt, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan loan: %w", err)
	}

	if l.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse loan id %q: %w", id, err)
	}
	l.ClientRef = clientRef.String
	if l.Principal, err = parseMoney("principal", principal); err != nil {
		return nil, err
	}
	if l.RatePercent, err = parseMoney("rate_percent", rate); err != nil {
		return nil, err
	}
	l.PeriodType = engine.PeriodType(periodType)
	if l.StartDate, err = engine.ParseTimePoint(startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date %q: %w", startDate, err)
	}
	if l.PrincipalBalance, err = parseMoney("principal_balance", principalBalance); err != nil {
		return nil, err
	}
	if l.PendingInterest, err = parseMoney("pending_interest", pendingInterest); err != nil {
		return nil, err
	}
	if l.PenaltyBalance, err = parseMoney("penalty_balance", penaltyBalance); err != nil {
		return nil, err
	}
	if l.LastAccrualAt, err = engine.ParseTimePoint(lastAccrualAt); err != nil {
		return nil, fmt.Errorf("failed to parse last_accrual_at %q: %w", lastAccrualAt, err)
	}
	if nextDueAt.Valid && nextDueAt.String != "" {
		if l.NextDueAt, err = engine.ParseTimePoint(nextDueAt.String); err != nil {
			return nil, fmt.Errorf("failed to parse next_due_at %q: %w", nextDueAt.String, err)
		}
	}
	l.Status = engine.Status(status)
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &l, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) CreatePayment(ctx context.Context, p *loan.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments
		(id, loan_id, number, amount, penalty_portion, interest_portion,
		 principal_portion, overflow, method, reference, applied_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID.String(),
		p.LoanID.String(),
		p.Number,
		p.Amount.String(),
		p.PenaltyPortion.String(),
		p.InterestPortion.String(),
		p.PrincipalPortion.String(),
		p.Overflow.String(),
		p.Method,
		p.Reference,
		p.AppliedAt.String(),
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*loan.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, loan_id, number, amount, penalty_portion, interest_portion,
		       principal_portion, overflow, method, reference, applied_at, created_at
		FROM payments
		WHERE loan_id = ?
		ORDER BY applied_at ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, loanID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*loan.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (*loan.Payment, error) {
	var (
		p         loan.Payment
		id        string
		loanID    string
		amount    string
		penalty   string
		interest  string
		principal string
		overflow  string
		method    sql.NullString
		reference sql.NullString
		appliedAt string
		createdAt string
	)

	err := rows.Scan(
		&id, &loanID, &p.Number, &amount, &penalty, &interest,
		&principal, &overflow, &method, &reference, &appliedAt, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse payment id %q: %w", id, err)
	}
	if p.LoanID, err = uuid.Parse(loanID); err != nil {
		return nil, fmt.Errorf("failed to parse payment loan_id %q: %w", loanID, err)
	}
	if p.Amount, err = parseMoney("amount", amount); err != nil {
		return nil, err
	}
	if p.PenaltyPortion, err = parseMoney("penalty_portion", penalty); err != nil {
		return nil, err
	}
	if p.InterestPortion, err = parseMoney("interest_portion", interest); err != nil {
		return nil, err
	}
	if p.PrincipalPortion, err = parseMoney("principal_portion", principal); err != nil {
		return nil, err
	}
	if p.Overflow, err = parseMoney("overflow", overflow); err != nil {
		return nil, err
	}
	p.Method = method.String
	p.Reference = reference.String
	if p.AppliedAt, err = engine.ParseTimePoint(appliedAt); err != nil {
		return nil, fmt.Errorf("failed to parse applied_at %q: %w", appliedAt, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &p, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payments", "loans"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func parseMoney(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse %s %q: %w", column, value, err)
	}
	return d, nil
}

func timePointOrNull(tp engine.TimePoint) sql.NullString {
	if tp.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}
