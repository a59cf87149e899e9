package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solventa/lending-engine/engine"
)

func dec(s string) decimal.Decimal {
	return engine.MustDecimal(s)
}

func accrue(t *testing.T, in engine.AccrualInput) engine.AccrualResult {
	t.Helper()
	res, err := engine.Accrue(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

// =============================================================================
// ACCRUAL SCENARIOS
// =============================================================================

func TestAccrue_YearRollover_OnePeriod(t *testing.T) {
	// GIVEN: principal 1000 at 2% biweekly, checkpoint Dec 30
	// WHEN: accruing through Jan 2
	// THEN: exactly 1 period elapsed, 20.00 interest
	res := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("1000"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2023, time.December, 30),
		Now:              date(2024, time.January, 2),
		PendingInterest:  decimal.Zero,
		PeriodType:       engine.PeriodOpenEnded,
	})

	if res.PeriodsElapsed != 1 {
		t.Errorf("expected 1 period, got %d", res.PeriodsElapsed)
	}
	if !res.NewInterest.Equal(dec("20")) {
		t.Errorf("expected 20.00 interest, got %s", res.NewInterest)
	}
}

func TestAccrue_MultiplePeriods(t *testing.T) {
	// GIVEN: principal 5000 at 1.5% biweekly, checkpoint Jan 10
	// WHEN: accruing through Feb 20
	// THEN: 3 periods elapsed, 225.00 interest
	res := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("5000"),
		RatePercent:      dec("1.5"),
		LastAccrualAt:    date(2024, time.January, 10),
		Now:              date(2024, time.February, 20),
		PendingInterest:  decimal.Zero,
		PeriodType:       engine.PeriodOpenEnded,
	})

	if res.PeriodsElapsed != 3 {
		t.Errorf("expected 3 periods, got %d", res.PeriodsElapsed)
	}
	if !res.NewInterest.Equal(dec("225")) {
		t.Errorf("expected 225.00 interest, got %s", res.NewInterest)
	}
	if !res.NextDueDate.Equal(date(2024, time.February, 29)) {
		t.Errorf("expected next due 2024-02-29, got %s", res.NextDueDate)
	}
}

func TestAccrue_CarriesPendingInterest(t *testing.T) {
	// GIVEN: 50.00 of previously accrued unpaid interest
	// THEN: the carry is added on top of new interest, not replaced
	res := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("1000"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2024, time.March, 1),
		Now:              date(2024, time.March, 20),
		PendingInterest:  dec("50"),
		PeriodType:       engine.PeriodOpenEnded,
	})

	if !res.NewInterest.Equal(dec("20")) {
		t.Errorf("expected 20.00 new interest, got %s", res.NewInterest)
	}
	if !res.TotalPendingInterest.Equal(dec("70")) {
		t.Errorf("expected 70.00 total pending, got %s", res.TotalPendingInterest)
	}
}

func TestAccrue_SmallerAfterPrincipalRepayment(t *testing.T) {
	// Interest is simple per period on the *current* principal balance, so a
	// partial repayment shrinks subsequent accruals.
	full := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("1000"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2024, time.March, 1),
		Now:              date(2024, time.March, 20),
		PeriodType:       engine.PeriodOpenEnded,
	})
	half := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("500"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2024, time.March, 1),
		Now:              date(2024, time.March, 20),
		PeriodType:       engine.PeriodOpenEnded,
	})

	if !half.NewInterest.Equal(full.NewInterest.Div(dec("2"))) {
		t.Errorf("expected half the interest (%s), got %s", full.NewInterest, half.NewInterest)
	}
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestAccrue_NoElapsedPeriods_ZeroInterest(t *testing.T) {
	// GIVEN: now == last accrual checkpoint
	// THEN: zero new interest; accrual with the checkpoint advanced is a no-op
	now := date(2024, time.March, 16)
	res := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("1000"),
		RatePercent:      dec("2"),
		LastAccrualAt:    now,
		Now:              now,
		PendingInterest:  dec("40"),
		PeriodType:       engine.PeriodOpenEnded,
	})

	if res.PeriodsElapsed != 0 {
		t.Errorf("expected 0 periods, got %d", res.PeriodsElapsed)
	}
	if !res.NewInterest.IsZero() {
		t.Errorf("expected zero interest, got %s", res.NewInterest)
	}
	if !res.TotalPendingInterest.Equal(dec("40")) {
		t.Errorf("carry must be preserved, got %s", res.TotalPendingInterest)
	}
}

func TestAccrue_SecondCallAfterCheckpointAdvance_ZeroInterest(t *testing.T) {
	// GIVEN: a first accrual whose result was applied and whose checkpoint
	//        was persisted as `now`
	// WHEN: accruing again at the same `now`
	// THEN: zero new interest (idempotence preserved by the caller advancing
	//       the checkpoint)
	now := date(2024, time.February, 20)
	first := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("5000"),
		RatePercent:      dec("1.5"),
		LastAccrualAt:    date(2024, time.January, 10),
		Now:              now,
		PeriodType:       engine.PeriodOpenEnded,
	})

	second := accrue(t, engine.AccrualInput{
		PrincipalBalance: dec("5000"),
		RatePercent:      dec("1.5"),
		LastAccrualAt:    now,
		Now:              now,
		PendingInterest:  first.TotalPendingInterest,
		PeriodType:       engine.PeriodOpenEnded,
	})

	if !second.NewInterest.IsZero() {
		t.Errorf("double accrual: expected zero, got %s", second.NewInterest)
	}
	if !second.TotalPendingInterest.Equal(first.TotalPendingInterest) {
		t.Errorf("pending interest must be unchanged, got %s", second.TotalPendingInterest)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestAccrue_TimestampOrder_Rejected(t *testing.T) {
	_, err := engine.Accrue(engine.AccrualInput{
		PrincipalBalance: dec("1000"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2024, time.March, 20),
		Now:              date(2024, time.March, 1),
		PeriodType:       engine.PeriodOpenEnded,
	})
	if !errors.Is(err, engine.ErrTimestampOrder) {
		t.Errorf("expected ErrTimestampOrder, got %v", err)
	}
}

func TestAccrue_NegativeBalance_Rejected(t *testing.T) {
	_, err := engine.Accrue(engine.AccrualInput{
		PrincipalBalance: dec("-5"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2024, time.March, 1),
		Now:              date(2024, time.March, 20),
		PeriodType:       engine.PeriodOpenEnded,
	})
	if !errors.Is(err, engine.ErrInconsistentLoanState) {
		t.Errorf("expected ErrInconsistentLoanState, got %v", err)
	}

	var stateErr *engine.StateError
	if !errors.As(err, &stateErr) || stateErr.Field != "principalBalance" {
		t.Errorf("expected StateError on principalBalance, got %v", err)
	}
}

func TestAccrue_UnsupportedPeriodType_Rejected(t *testing.T) {
	_, err := engine.Accrue(engine.AccrualInput{
		PrincipalBalance: dec("1000"),
		RatePercent:      dec("2"),
		LastAccrualAt:    date(2024, time.March, 1),
		Now:              date(2024, time.March, 20),
		PeriodType:       engine.PeriodType("daily"),
	})
	if !errors.Is(err, engine.ErrUnsupportedPeriodType) {
		t.Errorf("expected ErrUnsupportedPeriodType, got %v", err)
	}
}
