/*
schedule.go - Amortization schedule generation for fixed-term loans

PURPOSE:
  Produces the full period-by-period plan for a loan with a known term.
  The schedule is a pure projection: it never mutates loan state and can be
  regenerated any time from the loan's immutable terms. The loan's balance
  fields remain the sole source of truth for money owed.

ALGORITHM (flat-rate installment):
  totalInterest = principal * rate/100 * termPeriods   (simple interest)
  installment   = (principal + totalInterest) / termPeriods, rounded to cents

  Each row recomputes its interest portion from the declining balance:
  interest  = runningBalance * rate/100
  principal = installment - interest
  The final row forces principal = remaining balance so the schedule closes
  at exactly zero, and adjusts the row total accordingly. That correction
  also absorbs the per-row cent rounding.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE
// =============================================================================

// ScheduleEntry is one row of an amortization schedule.
type ScheduleEntry struct {
	Index            int
	DueDate          TimePoint
	OpeningBalance   decimal.Decimal
	InterestPortion  decimal.Decimal
	PrincipalPortion decimal.Decimal
	InstallmentTotal decimal.Decimal
	ClosingBalance   decimal.Decimal
}

// ScheduleInput holds the immutable loan terms a schedule derives from.
type ScheduleInput struct {
	Principal   decimal.Decimal
	RatePercent decimal.Decimal
	PeriodType  PeriodType
	TermPeriods int
	StartDate   TimePoint
}

// Installment returns the constant per-period installment for the terms.
func Installment(principal, ratePercent decimal.Decimal, termPeriods int) decimal.Decimal {
	if termPeriods <= 0 {
		return decimal.Zero
	}
	term := decimal.NewFromInt(int64(termPeriods))
	totalInterest := principal.Mul(perPeriodRate(ratePercent)).Mul(term)
	return Cents(principal.Add(totalInterest).Div(term))
}

// GenerateSchedule produces the full amortization plan.
//
// Guarantees: the final row's closing balance is exactly zero, and the sum of
// all principal portions equals the original principal exactly (the last row
// carries the explicit correction).
func GenerateSchedule(in ScheduleInput) ([]ScheduleEntry, error) {
	if !in.PeriodType.Valid() || in.PeriodType.IsOpenEnded() {
		return nil, ErrUnsupportedPeriodType
	}
	if !in.Principal.IsPositive() {
		return nil, &AmountError{Field: "principal", Value: in.Principal, Reason: "must be positive"}
	}
	if !in.RatePercent.IsPositive() {
		return nil, &AmountError{Field: "rate", Value: in.RatePercent, Reason: "must be positive"}
	}
	if in.TermPeriods <= 0 {
		return nil, &AmountError{Field: "termPeriods", Value: decimal.NewFromInt(int64(in.TermPeriods)), Reason: "must be positive"}
	}

	installment := Installment(in.Principal, in.RatePercent, in.TermPeriods)
	rate := perPeriodRate(in.RatePercent)

	entries := make([]ScheduleEntry, 0, in.TermPeriods)
	running := in.Principal

	for i := 1; i <= in.TermPeriods; i++ {
		dueDate, err := AdvancePeriods(in.StartDate, i, in.PeriodType)
		if err != nil {
			return nil, err
		}

		interest := Cents(running.Mul(rate))
		principal := installment.Sub(interest)
		total := installment

		if i == in.TermPeriods {
			// Last-row correction: close at exactly zero.
			principal = running
			total = Cents(principal.Add(interest))
		}

		closing := running.Sub(principal)
		if closing.IsNegative() {
			closing = decimal.Zero
		}

		entries = append(entries, ScheduleEntry{
			Index:            i,
			DueDate:          dueDate,
			OpeningBalance:   running,
			InterestPortion:  interest,
			PrincipalPortion: principal,
			InstallmentTotal: total,
			ClosingBalance:   closing,
		})
		running = closing
	}

	return entries, nil
}
