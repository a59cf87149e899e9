/*
status.go - Loan state machine

PURPOSE:
  Derives the loan's status from its balance and due-date state after each
  accrual or payment event. Status is never set directly by callers except
  at creation (active).

STATES AND TRANSITIONS:
  active -> finalized   principal balance reaches 0 after a payment
  active -> overdue     now past the next due date with principal outstanding
  overdue -> active     penalty and interest both cleared, due date ahead
  overdue -> finalized  same principal-zero rule
  finalized             terminal; no transitions out

A cancelled state exists only as an explicit external action and is not
derivable from balances, so it is not modeled here.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the derived lifecycle state of a loan.
type Status string

const (
	StatusActive    Status = "active"
	StatusOverdue   Status = "overdue"
	StatusFinalized Status = "finalized"
)

// Valid reports whether s is one of the enumerated states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusOverdue, StatusFinalized:
		return true
	}
	return false
}

// StatusSnapshot carries the balance and due-date state a transition is
// derived from.
type StatusSnapshot struct {
	PrincipalBalance decimal.Decimal
	PendingInterest  decimal.Decimal
	PenaltyBalance   decimal.Decimal
	NextDueDate      TimePoint
	Now              TimePoint
}

// Transition returns the status the loan moves to from current given the
// snapshot. Finalized is terminal: once reached, the input state is returned
// unchanged regardless of balances.
func Transition(current Status, snap StatusSnapshot) Status {
	if current == StatusFinalized {
		return StatusFinalized
	}
	if !snap.PrincipalBalance.IsPositive() {
		return StatusFinalized
	}
	if !snap.NextDueDate.IsZero() && snap.Now.After(snap.NextDueDate) {
		return StatusOverdue
	}
	if current == StatusOverdue {
		// Overdue clears only once penalty and interest are both paid off and
		// the due date is ahead again.
		if snap.PendingInterest.IsPositive() || snap.PenaltyBalance.IsPositive() {
			return StatusOverdue
		}
	}
	return StatusActive
}
