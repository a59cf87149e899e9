/*
Package loan provides the lending domain on top of the calculation engine.

PURPOSE:
  Wraps the pure engine with loan lifecycle semantics: creation with
  validation, accrual events that advance the loan's checkpoint, payment
  events that apply the waterfall split, and the derived status after each
  event. The engine computes; this package decides what a Loan is and keeps
  its invariants across events.

LIFECYCLE:
  A Loan is created once - principal, rate, term and start date are fixed at
  creation. It is mutated exclusively through accrual and payment events and
  is never deleted, only marked finalized.

SOURCE OF TRUTH:
  The Loan's balance fields (principalBalance, pendingInterest,
  penaltyBalance) are the sole authority for money owed. Amortization
  schedules are projections regenerated from the immutable terms.

SEE ALSO:
  - service.go: lifecycle operations (create, accrue, pay, sweep)
  - store.go: persistence boundary
*/
package loan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solventa/lending-engine/engine"
)

// =============================================================================
// LOAN
// =============================================================================

// Loan is one lending agreement. Terms (Principal, RatePercent, PeriodType,
// TermPeriods, StartDate) are immutable after creation; the balance fields
// change only through accrual and payment events.
type Loan struct {
	ID         uuid.UUID
	Number     string // human-facing reference, e.g. PR20240315-8F2C1A
	ClientName string
	ClientRef  string // link to an external client record

	Principal   decimal.Decimal
	RatePercent decimal.Decimal // per-period percentage
	PeriodType  engine.PeriodType
	TermPeriods int // 0 for open-ended loans
	StartDate   engine.TimePoint

	PrincipalBalance decimal.Decimal
	PendingInterest  decimal.Decimal
	PenaltyBalance   decimal.Decimal

	LastAccrualAt engine.TimePoint
	NextDueAt     engine.TimePoint
	Status        engine.Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpenEnded reports whether the loan has no fixed term.
func (l *Loan) IsOpenEnded() bool {
	return l.PeriodType.IsOpenEnded()
}

// DaysOverdue derives how many days late the loan is as of now. Recomputed
// on every read, never stored.
func (l *Loan) DaysOverdue(now engine.TimePoint) int {
	if l.NextDueAt.IsZero() || l.Status == engine.StatusFinalized {
		return 0
	}
	return engine.DaysOverdue(now, l.NextDueAt)
}

// TotalDue is what a payment today would have to cover to clear arrears.
func (l *Loan) TotalDue() decimal.Decimal {
	return l.PenaltyBalance.Add(l.PendingInterest)
}

// checkConsistency rejects corrupted balance fields before any event is
// applied. Negative balances are fatal, never clamped.
func (l *Loan) checkConsistency() error {
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"principalBalance", l.PrincipalBalance},
		{"pendingInterest", l.PendingInterest},
		{"penaltyBalance", l.PenaltyBalance},
	} {
		if f.value.IsNegative() {
			return &engine.StateError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is one money transfer applied to one loan, recorded with its full
// waterfall split. Payments are immutable once written.
type Payment struct {
	ID     uuid.UUID
	LoanID uuid.UUID
	Number string

	Amount           decimal.Decimal
	PenaltyPortion   decimal.Decimal
	InterestPortion  decimal.Decimal
	PrincipalPortion decimal.Decimal
	Overflow         decimal.Decimal

	Method    string
	Reference string
	AppliedAt engine.TimePoint
	CreatedAt time.Time
}

// =============================================================================
// CREATION
// =============================================================================

// CreateLoanInput carries the terms fixed at loan creation.
type CreateLoanInput struct {
	ClientName  string
	ClientRef   string
	Principal   decimal.Decimal
	RatePercent decimal.Decimal
	PeriodType  engine.PeriodType
	TermPeriods int
	StartDate   engine.TimePoint
}

// Validate rejects terms that would violate loan invariants from day one.
func (in CreateLoanInput) Validate() error {
	if !in.PeriodType.Valid() {
		return engine.ErrUnsupportedPeriodType
	}
	if !in.Principal.IsPositive() {
		return &engine.AmountError{Field: "principal", Value: in.Principal, Reason: "must be positive"}
	}
	if !in.RatePercent.IsPositive() {
		return &engine.AmountError{Field: "rate", Value: in.RatePercent, Reason: "must be positive"}
	}
	if in.PeriodType.IsOpenEnded() {
		if in.TermPeriods != 0 {
			return &engine.AmountError{
				Field: "termPeriods", Value: decimal.NewFromInt(int64(in.TermPeriods)),
				Reason: "open-ended loans have no term",
			}
		}
	} else if in.TermPeriods <= 0 {
		return &engine.AmountError{
			Field: "termPeriods", Value: decimal.NewFromInt(int64(in.TermPeriods)),
			Reason: "must be positive for fixed-term loans",
		}
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("%w: start date required", engine.ErrInvalidAmount)
	}
	return nil
}

// NewLoan builds a Loan from validated input. The balance starts equal to
// the principal, the accrual checkpoint at the start date, and the first
// due date at the first period boundary after the start.
func NewLoan(in CreateLoanInput, now time.Time) (*Loan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	nextDue, err := engine.NextPeriodBoundary(in.StartDate, in.PeriodType)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	return &Loan{
		ID:               id,
		Number:           loanNumber(in.StartDate, id),
		ClientName:       in.ClientName,
		ClientRef:        in.ClientRef,
		Principal:        in.Principal,
		RatePercent:      in.RatePercent,
		PeriodType:       in.PeriodType,
		TermPeriods:      in.TermPeriods,
		StartDate:        in.StartDate,
		PrincipalBalance: in.Principal,
		PendingInterest:  decimal.Zero,
		PenaltyBalance:   decimal.Zero,
		LastAccrualAt:    in.StartDate,
		NextDueAt:        nextDue,
		Status:           engine.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// loanNumber builds the human-facing reference: PR + start date + id prefix.
func loanNumber(start engine.TimePoint, id uuid.UUID) string {
	return fmt.Sprintf("PR%s-%s", start.Time.Format("20060102"), id.String()[:6])
}

// paymentNumber builds the payment reference the same way.
func paymentNumber(at engine.TimePoint, id uuid.UUID) string {
	return fmt.Sprintf("PG%s-%s", at.Time.Format("20060102"), id.String()[:6])
}
