/*
errors.go - Centralized error types for the lending engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers (service, store, API) wrap these with additional context.

ERROR CATEGORIES:
  1. Input errors - invalid amounts, timestamps out of order, bad period types
  2. State errors - corrupted balances, operations on finalized loans
  3. Lookup errors - referenced loan does not exist

USAGE:
  if errors.Is(err, engine.ErrTimestampOrder) { ... }
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTimestampOrder is returned when an accrual is requested for a point
	// in time before the loan's last accrual checkpoint. The checkpoint only
	// moves forward.
	ErrTimestampOrder = errors.New("now precedes last accrual timestamp")

	// ErrInvalidAmount is returned for a non-positive payment amount, or
	// non-positive principal/rate/term at loan creation.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInconsistentLoanState is returned when a negative balance field is
	// encountered on read. This indicates corrupted input and is fatal; the
	// engine never silently clamps it.
	ErrInconsistentLoanState = errors.New("inconsistent loan state")

	// ErrUnsupportedPeriodType is returned for a period type outside the
	// enumerated set.
	ErrUnsupportedPeriodType = errors.New("unsupported period type")

	// ErrLoanNotFound is returned when a referenced loan doesn't exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanFinalized is returned when applying a payment or accrual to a
	// loan whose principal already reached zero. Finalized is terminal.
	ErrLoanFinalized = errors.New("loan is finalized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StateError reports which balance field violated an invariant.
type StateError struct {
	Field string
	Value decimal.Decimal
}

func (e *StateError) Error() string {
	return fmt.Sprintf("inconsistent loan state: %s = %s", e.Field, e.Value)
}

func (e *StateError) Unwrap() error {
	return ErrInconsistentLoanState
}

// AmountError reports which input amount was rejected and why.
type AmountError struct {
	Field  string
	Value  decimal.Decimal
	Reason string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Value, e.Reason)
}

func (e *AmountError) Unwrap() error {
	return ErrInvalidAmount
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrTimestampOrder) ||
		errors.Is(err, ErrUnsupportedPeriodType) ||
		errors.Is(err, ErrLoanFinalized)
}

// IsNotFound returns true if the error indicates a missing loan.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound)
}

// negativeBalance builds the standard corrupted-input error for a field.
func negativeBalance(field string, v decimal.Decimal) error {
	return &StateError{Field: field, Value: v}
}
