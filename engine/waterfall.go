/*
waterfall.go - Payment allocation across penalty, interest, and principal

PURPOSE:
  Deterministically splits one incoming payment across the loan's three
  buckets under a strict priority order: penalty first, then accrued
  interest, then principal.

PRINCIPAL BLOCK:
  Principal may only be reduced once interest owed is fully cleared for the
  current cycle. A payment that covers part of the pending interest leaves
  the remainder unallocated (overflow) rather than touching principal. This
  prevents a borrower from nominally "paying down" principal while interest
  silently accumulates unpaid.

  The original system shipped two divergent allocation policies for the same
  action; the strict-block policy is canonical here and applied uniformly.
  See DESIGN.md.

OVERFLOW:
  Whatever remains after all applicable buckets are satisfied or blocked is
  returned as Overflow. It is a normal output the caller must surface
  (display, refund, or explicit credit) - never an error, never silently
  discarded, never implicitly applied to principal.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ALLOCATION
// =============================================================================

// Allocation is the waterfall split of a single payment. The portions and
// overflow always sum exactly to the payment amount.
type Allocation struct {
	PenaltyPortion   decimal.Decimal
	InterestPortion  decimal.Decimal
	PrincipalPortion decimal.Decimal
	Overflow         decimal.Decimal

	// PrincipalAllowed reports whether the interest bucket was fully cleared,
	// unlocking principal. When false, PrincipalPortion is zero regardless of
	// how much payment remained.
	PrincipalAllowed bool
}

// Allocate splits paymentAmount across the loan's buckets.
//
// Validation happens before any computation: a non-positive payment is
// rejected with ErrInvalidAmount, a negative balance field with
// ErrInconsistentLoanState.
func Allocate(paymentAmount, principalBalance, pendingInterest, penaltyBalance decimal.Decimal) (Allocation, error) {
	if !paymentAmount.IsPositive() {
		return Allocation{}, &AmountError{Field: "payment", Value: paymentAmount, Reason: "must be positive"}
	}
	if principalBalance.IsNegative() {
		return Allocation{}, negativeBalance("principalBalance", principalBalance)
	}
	if pendingInterest.IsNegative() {
		return Allocation{}, negativeBalance("pendingInterest", pendingInterest)
	}
	if penaltyBalance.IsNegative() {
		return Allocation{}, negativeBalance("penaltyBalance", penaltyBalance)
	}

	remaining := paymentAmount

	// 1. Penalty first.
	penalty := decimal.Min(remaining, penaltyBalance)
	remaining = remaining.Sub(penalty)

	// 2. Then accrued interest.
	interest := decimal.Min(remaining, pendingInterest)
	remaining = remaining.Sub(interest)

	// 3. Principal only once interest is fully cleared.
	interestLeft := pendingInterest.Sub(interest)
	principalAllowed := !interestLeft.IsPositive()

	principal := decimal.Zero
	if principalAllowed {
		principal = decimal.Min(remaining, principalBalance)
		remaining = remaining.Sub(principal)
	}

	return Allocation{
		PenaltyPortion:   penalty,
		InterestPortion:  interest,
		PrincipalPortion: principal,
		Overflow:         remaining,
		PrincipalAllowed: principalAllowed,
	}, nil
}
