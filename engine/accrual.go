/*
accrual.go - Interest accrual for open-ended loans

PURPOSE:
  Computes newly accrued interest since the loan's last accrual checkpoint.
  Callers never track elapsed time themselves: they hand the engine the
  stored checkpoint and "now", and persist the advanced checkpoint together
  with the result.

INTEREST MODEL:
  Simple (non-compounding) interest per elapsed whole period, applied to the
  *current* principal balance. After a partial principal repayment the next
  accrual is proportionally smaller. Previously accrued unpaid interest is
  carried forward, never capitalized into principal.

IDEMPOTENCE:
  Accrue is a pure function of (balance, rate, checkpoint, now, carry).
  Calling it twice for the same pair of timestamps yields the same result;
  calling it after the caller persisted the advanced checkpoint yields zero
  new interest. Preserving that property is the caller's job: always store
  the new checkpoint atomically with the applied interest.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL
// =============================================================================

// AccrualInput is a snapshot of the accrual-relevant loan fields.
type AccrualInput struct {
	PrincipalBalance decimal.Decimal
	RatePercent      decimal.Decimal // per-period percentage, 2.0 means 2%
	LastAccrualAt    TimePoint
	Now              TimePoint
	PendingInterest  decimal.Decimal // unpaid interest carried forward
	PeriodType       PeriodType
}

// AccrualResult is the outcome of one accrual computation. Nothing is
// applied: the caller persists TotalPendingInterest and advances the
// checkpoint to Now.
type AccrualResult struct {
	NewInterest          decimal.Decimal
	TotalPendingInterest decimal.Decimal
	NextDueDate          TimePoint
	PeriodsElapsed       int
}

// Accrue computes interest owed between the last checkpoint and now.
//
//	newInterest = principalBalance * (ratePercent/100) * periodsElapsed
//
// Validation happens before any computation: out-of-order timestamps are
// rejected with ErrTimestampOrder, negative balance fields with
// ErrInconsistentLoanState.
func Accrue(in AccrualInput) (AccrualResult, error) {
	if !in.PeriodType.Valid() {
		return AccrualResult{}, ErrUnsupportedPeriodType
	}
	if in.Now.Before(in.LastAccrualAt) {
		return AccrualResult{}, ErrTimestampOrder
	}
	if in.PrincipalBalance.IsNegative() {
		return AccrualResult{}, negativeBalance("principalBalance", in.PrincipalBalance)
	}
	if in.PendingInterest.IsNegative() {
		return AccrualResult{}, negativeBalance("pendingInterest", in.PendingInterest)
	}
	if in.RatePercent.IsNegative() {
		return AccrualResult{}, negativeBalance("ratePercent", in.RatePercent)
	}

	periods, err := PeriodsElapsed(in.LastAccrualAt, in.Now, in.PeriodType)
	if err != nil {
		return AccrualResult{}, err
	}

	newInterest := Cents(in.PrincipalBalance.
		Mul(perPeriodRate(in.RatePercent)).
		Mul(decimal.NewFromInt(int64(periods))))

	nextDue, err := NextPeriodBoundary(in.Now, in.PeriodType)
	if err != nil {
		return AccrualResult{}, err
	}

	return AccrualResult{
		NewInterest:          newInterest,
		TotalPendingInterest: in.PendingInterest.Add(newInterest),
		NextDueDate:          nextDue,
		PeriodsElapsed:       periods,
	}, nil
}
