/*
Package engine implements the loan interest accrual and payment allocation
core.

PURPOSE:
  This package contains the pure calculation logic that determines money
  movement: how interest accumulates on a loan balance over discrete billing
  periods, how a fixed-term loan amortizes, and how an incoming payment is
  split across penalty, interest and principal.

DESIGN PRINCIPLES:
  1. Purity: every function maps immutable inputs to new outputs. No shared
     state, no clocks, no I/O. Callers supply `now` and persist results.
  2. Precision: uses decimal.Decimal for all monetary values and rates to
     avoid floating-point drift across repeated accrual calls.
  3. Boundary validation: invalid input is rejected before any computation;
     the engine never partially applies an accrual or allocation.
  4. Period semantics: interest counts calendar period *boundaries crossed*,
     not elapsed wall-clock days.

KEY CONCEPTS:
  - PeriodType: the billing interval (biweekly/monthly/annual/open-ended)
  - AccrualResult: newly accrued interest since the last checkpoint
  - ScheduleEntry: one row of a fixed-term amortization plan
  - Allocation: the waterfall split of one payment
  - Status: the derived loan state (active/overdue/finalized)

SEE ALSO:
  - period.go: date to period-ordinal mapping
  - accrual.go: open-ended interest accrual
  - schedule.go: fixed-term amortization
  - waterfall.go: payment allocation
  - status.go: loan state machine
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

var (
	hundred = decimal.NewFromInt(100)
)

// Cents rounds a monetary value to 2 decimal places (half away from zero).
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustDecimal parses s, returning zero on malformed input. Test helper style;
// production paths construct decimals from typed values.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// perPeriodRate converts a percentage rate (2.0 means 2% per period) to the
// fractional rate applied to a balance.
func perPeriodRate(ratePercent decimal.Decimal) decimal.Decimal {
	return ratePercent.Div(hundred)
}
