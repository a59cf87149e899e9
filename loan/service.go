/*
service.go - Loan lifecycle operations

PURPOSE:
  Single entry point for every event that touches a loan: creation, interest
  accrual, payment application, schedule projection, and the portfolio-wide
  recalculation sweep. Each operation loads the loan, runs the pure engine,
  derives the new status, and persists the result.

ORDERING RULE:
  RecordPayment always accrues first. A payment applied to a stale loan
  would split against yesterday's interest, so the accrual checkpoint is
  brought up to the payment date before the waterfall runs. Both mutations
  land in one UpdateLoan write.

IDEMPOTENCE:
  Accrue is safe to repeat: the engine counts boundaries between the stored
  checkpoint and now, and advancing the checkpoint after each accrual makes
  the next call within the same period a no-op.

SEE ALSO:
  - engine/accrual.go, engine/waterfall.go: the pure calculations
  - store.go: persistence and cache boundaries
*/
package loan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solventa/lending-engine/engine"
)

// scheduleTTL bounds how long a cached projection can outlive its loan.
// Writes invalidate eagerly; the TTL only covers missed invalidations.
const scheduleTTL = 15 * time.Minute

// Service owns all loan state transitions. One instance per process; the
// write mutex serializes mutations so read-modify-write cycles against the
// store never interleave.
type Service struct {
	store  Store
	cache  Cache
	logger *slog.Logger

	mu sync.Mutex // guards all loan mutations
}

// NewService wires the service. The cache may be a no-op implementation.
func NewService(store Store, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// =============================================================================
// CREATION AND READS
// =============================================================================

// CreateLoan validates the terms, builds the loan, and persists it.
func (s *Service) CreateLoan(ctx context.Context, in CreateLoanInput) (*Loan, error) {
	l, err := NewLoan(in, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.CreateLoan(ctx, l); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	s.logger.Info("loan created",
		"loan", l.Number,
		"client", l.ClientName,
		"principal", l.Principal.String(),
		"rate", l.RatePercent.String(),
		"period", string(l.PeriodType))
	return l, nil
}

// GetLoan loads one loan by id.
func (s *Service) GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error) {
	return s.store.GetLoan(ctx, id)
}

// GetLoanByNumber resolves a human-facing loan reference.
func (s *Service) GetLoanByNumber(ctx context.Context, number string) (*Loan, error) {
	return s.store.GetLoanByNumber(ctx, number)
}

// ListLoans lists loans matching the filter.
func (s *Service) ListLoans(ctx context.Context, f ListFilter) ([]*Loan, error) {
	return s.store.ListLoans(ctx, f)
}

// ListPayments lists the payment history for a loan, newest last.
func (s *Service) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*Payment, error) {
	if _, err := s.store.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, loanID)
}

// =============================================================================
// ACCRUAL
// =============================================================================

// AccrualOutcome reports what one accrual pass did to a loan.
type AccrualOutcome struct {
	Loan           *Loan
	NewInterest    decimal.Decimal
	PeriodsElapsed int
}

// Accrue brings a loan's interest up to date as of now, advances the
// checkpoint and due date, and re-derives the status. Calling it again for
// the same period accrues nothing.
func (s *Service) Accrue(ctx context.Context, id uuid.UUID, now engine.TimePoint) (*AccrualOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accrueLocked(ctx, id, now)
}

func (s *Service) accrueLocked(ctx context.Context, id uuid.UUID, now engine.TimePoint) (*AccrualOutcome, error) {
	l, err := s.store.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == engine.StatusFinalized {
		return nil, engine.ErrLoanFinalized
	}

	prevStatus := l.Status
	outcome, err := s.applyAccrual(l, now)
	if err != nil {
		return nil, err
	}
	// A zero-period accrual can still flip the status (slipping overdue), so
	// persistence keys off either change.
	if outcome.PeriodsElapsed > 0 || l.Status != prevStatus {
		if err := s.persistLoan(ctx, l); err != nil {
			return nil, err
		}
		s.logger.Info("interest accrued",
			"loan", l.Number,
			"periods", outcome.PeriodsElapsed,
			"newInterest", outcome.NewInterest.String(),
			"pendingInterest", l.PendingInterest.String(),
			"status", string(l.Status))
	}
	return outcome, nil
}

// applyAccrual mutates the loan in memory; the caller persists. Zero-period
// accruals still refresh the status (a loan can slip into overdue without
// any new interest).
func (s *Service) applyAccrual(l *Loan, now engine.TimePoint) (*AccrualOutcome, error) {
	if err := l.checkConsistency(); err != nil {
		return nil, err
	}

	res, err := engine.Accrue(engine.AccrualInput{
		PrincipalBalance: l.PrincipalBalance,
		RatePercent:      l.RatePercent,
		LastAccrualAt:    l.LastAccrualAt,
		Now:              now,
		PendingInterest:  l.PendingInterest,
		PeriodType:       l.PeriodType,
	})
	if err != nil {
		return nil, err
	}

	// Overdue entry is judged against the due date the borrower actually
	// missed, before accrual advances it.
	l.Status = engine.Transition(l.Status, engine.StatusSnapshot{
		PrincipalBalance: l.PrincipalBalance,
		PendingInterest:  l.PendingInterest,
		PenaltyBalance:   l.PenaltyBalance,
		NextDueDate:      l.NextDueAt,
		Now:              now,
	})

	if res.PeriodsElapsed > 0 {
		l.PendingInterest = res.TotalPendingInterest
		l.LastAccrualAt = now
		l.NextDueAt = res.NextDueDate
	}

	// Re-derive with the advanced due date: an overdue loan stays overdue
	// while arrears remain even though the next due date is ahead again.
	l.Status = engine.Transition(l.Status, engine.StatusSnapshot{
		PrincipalBalance: l.PrincipalBalance,
		PendingInterest:  l.PendingInterest,
		PenaltyBalance:   l.PenaltyBalance,
		NextDueDate:      l.NextDueAt,
		Now:              now,
	})

	return &AccrualOutcome{
		Loan:           l,
		NewInterest:    res.NewInterest,
		PeriodsElapsed: res.PeriodsElapsed,
	}, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPaymentInput carries one incoming payment.
type RecordPaymentInput struct {
	LoanID    uuid.UUID
	Amount    decimal.Decimal
	Method    string
	Reference string
	AppliedAt engine.TimePoint // defaults to today when zero
}

// PaymentOutcome reports the waterfall split and the loan after it.
type PaymentOutcome struct {
	Loan    *Loan
	Payment *Payment
}

// RecordPayment accrues the loan up to the payment date, splits the amount
// through the waterfall, writes the payment record, and re-derives status.
// Overflow beyond all balances is surfaced on the payment, never kept.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentOutcome, error) {
	if !in.Amount.IsPositive() {
		return nil, &engine.AmountError{Field: "amount", Value: in.Amount, Reason: "must be positive"}
	}
	at := in.AppliedAt
	if at.IsZero() {
		at = engine.Today()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if l.Status == engine.StatusFinalized {
		return nil, engine.ErrLoanFinalized
	}

	// Interest first, so the split sees today's arrears.
	if _, err := s.applyAccrual(l, at); err != nil {
		return nil, err
	}

	alloc, err := engine.Allocate(in.Amount, l.PrincipalBalance, l.PendingInterest, l.PenaltyBalance)
	if err != nil {
		return nil, err
	}

	l.PenaltyBalance = l.PenaltyBalance.Sub(alloc.PenaltyPortion)
	l.PendingInterest = l.PendingInterest.Sub(alloc.InterestPortion)
	l.PrincipalBalance = l.PrincipalBalance.Sub(alloc.PrincipalPortion)
	l.Status = engine.Transition(l.Status, engine.StatusSnapshot{
		PrincipalBalance: l.PrincipalBalance,
		PendingInterest:  l.PendingInterest,
		PenaltyBalance:   l.PenaltyBalance,
		NextDueDate:      l.NextDueAt,
		Now:              at,
	})

	id := uuid.New()
	p := &Payment{
		ID:               id,
		LoanID:           l.ID,
		Number:           paymentNumber(at, id),
		Amount:           in.Amount,
		PenaltyPortion:   alloc.PenaltyPortion,
		InterestPortion:  alloc.InterestPortion,
		PrincipalPortion: alloc.PrincipalPortion,
		Overflow:         alloc.Overflow,
		Method:           in.Method,
		Reference:        in.Reference,
		AppliedAt:        at,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if err := s.persistLoan(ctx, l); err != nil {
		return nil, err
	}

	s.logger.Info("payment applied",
		"loan", l.Number,
		"payment", p.Number,
		"amount", p.Amount.String(),
		"penalty", p.PenaltyPortion.String(),
		"interest", p.InterestPortion.String(),
		"principal", p.PrincipalPortion.String(),
		"overflow", p.Overflow.String(),
		"status", string(l.Status))
	if alloc.Overflow.IsPositive() {
		s.logger.Warn("payment overflow",
			"loan", l.Number, "payment", p.Number, "overflow", alloc.Overflow.String())
	}
	return &PaymentOutcome{Loan: l, Payment: p}, nil
}

// =============================================================================
// SCHEDULE PROJECTION
// =============================================================================

// Schedule regenerates the amortization table from the loan's immutable
// terms. Open-ended loans have no schedule. Results are cached; any loan
// write invalidates the cached copy.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID) ([]engine.ScheduleEntry, error) {
	l, err := s.store.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.IsOpenEnded() {
		return nil, fmt.Errorf("%w: open-ended loans have no amortization schedule", engine.ErrUnsupportedPeriodType)
	}

	if s.cache != nil {
		if payload, ok := s.cache.GetSchedule(ctx, id); ok {
			if entries, err := decodeSchedule(payload); err == nil {
				return entries, nil
			}
			// Undecodable cache entry: drop it and rebuild.
			s.cache.InvalidateSchedule(ctx, id)
		}
	}

	entries, err := engine.GenerateSchedule(engine.ScheduleInput{
		Principal:   l.Principal,
		RatePercent: l.RatePercent,
		PeriodType:  l.PeriodType,
		TermPeriods: l.TermPeriods,
		StartDate:   l.StartDate,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := encodeSchedule(entries); err == nil {
			s.cache.SetSchedule(ctx, id, payload, scheduleTTL)
		}
	}
	return entries, nil
}

// =============================================================================
// PORTFOLIO SWEEP
// =============================================================================

// SweepResult summarizes one portfolio-wide recalculation.
type SweepResult struct {
	Scanned  int
	Accrued  int
	Failed   int
	Interest decimal.Decimal // total new interest across the portfolio
}

// RecalculateAll accrues every non-finalized loan up to now. Failures on
// individual loans are logged and counted, never abort the sweep.
func (s *Service) RecalculateAll(ctx context.Context, now engine.TimePoint) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans, err := s.store.ListLoans(ctx, ListFilter{OnlyUnpaid: true})
	if err != nil {
		return nil, fmt.Errorf("list loans for sweep: %w", err)
	}

	res := &SweepResult{Interest: decimal.Zero}
	for _, l := range loans {
		res.Scanned++
		prevStatus := l.Status
		outcome, err := s.applyAccrual(l, now)
		if err != nil {
			res.Failed++
			s.logger.Error("sweep accrual failed", "loan", l.Number, "error", err)
			continue
		}
		if outcome.PeriodsElapsed == 0 && l.Status == prevStatus {
			continue
		}
		if err := s.persistLoan(ctx, l); err != nil {
			res.Failed++
			s.logger.Error("sweep persist failed", "loan", l.Number, "error", err)
			continue
		}
		if outcome.PeriodsElapsed > 0 {
			res.Accrued++
			res.Interest = res.Interest.Add(outcome.NewInterest)
		}
	}

	s.logger.Info("portfolio sweep done",
		"scanned", res.Scanned,
		"accrued", res.Accrued,
		"failed", res.Failed,
		"interest", res.Interest.String())
	return res, nil
}

// persistLoan writes the loan and drops its cached schedule.
func (s *Service) persistLoan(ctx context.Context, l *Loan) error {
	l.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateLoan(ctx, l); err != nil {
		return fmt.Errorf("update loan %s: %w", l.Number, err)
	}
	if s.cache != nil {
		s.cache.InvalidateSchedule(ctx, l.ID)
	}
	return nil
}
