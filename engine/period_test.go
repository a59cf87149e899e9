package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/solventa/lending-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) engine.TimePoint {
	return engine.NewTimePoint(year, month, day)
}

func elapsed(t *testing.T, from, to engine.TimePoint, pt engine.PeriodType) int {
	t.Helper()
	n, err := engine.PeriodsElapsed(from, to, pt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return n
}

// =============================================================================
// PERIOD ORDINAL TESTS
// =============================================================================

func TestPeriodsElapsed_SamePeriod_Zero(t *testing.T) {
	// GIVEN: two dates in the first half of the same month
	// THEN: no boundary crossed, zero periods
	if n := elapsed(t, date(2024, time.March, 2), date(2024, time.March, 14), engine.PeriodBiweekly); n != 0 {
		t.Errorf("expected 0 periods, got %d", n)
	}
}

func TestPeriodsElapsed_CrossesFifteenth(t *testing.T) {
	if n := elapsed(t, date(2024, time.March, 14), date(2024, time.March, 15), engine.PeriodBiweekly); n != 1 {
		t.Errorf("expected 1 period, got %d", n)
	}
}

func TestPeriodsElapsed_YearRollover_OneBoundary(t *testing.T) {
	// GIVEN: Dec 30 to Jan 2
	// THEN: exactly one boundary crossed (December's month-end) - not zero
	//       (the dates are only 3 days apart) and not two
	if n := elapsed(t, date(2023, time.December, 30), date(2024, time.January, 2), engine.PeriodBiweekly); n != 1 {
		t.Errorf("expected 1 period across year boundary, got %d", n)
	}
}

func TestPeriodsElapsed_MultipleQuincenas(t *testing.T) {
	// GIVEN: Jan 10 to Feb 20
	// THEN: boundaries crossed at Jan 15, Jan 31, Feb 15 = 3 periods
	if n := elapsed(t, date(2024, time.January, 10), date(2024, time.February, 20), engine.PeriodBiweekly); n != 3 {
		t.Errorf("expected 3 periods, got %d", n)
	}
}

func TestPeriodsElapsed_Monthly(t *testing.T) {
	if n := elapsed(t, date(2023, time.December, 20), date(2024, time.January, 5), engine.PeriodMonthly); n != 1 {
		t.Errorf("expected 1 monthly period across year boundary, got %d", n)
	}
	if n := elapsed(t, date(2024, time.January, 1), date(2024, time.January, 31), engine.PeriodMonthly); n != 0 {
		t.Errorf("expected 0 within the same month, got %d", n)
	}
}

func TestPeriodsElapsed_Annual(t *testing.T) {
	if n := elapsed(t, date(2022, time.June, 1), date(2024, time.February, 1), engine.PeriodAnnual); n != 2 {
		t.Errorf("expected 2 annual periods, got %d", n)
	}
}

func TestPeriodsElapsed_OpenEnded_UsesBiweeklyCalendar(t *testing.T) {
	// Open-ended loans bill quincenally.
	if n := elapsed(t, date(2024, time.January, 10), date(2024, time.February, 20), engine.PeriodOpenEnded); n != 3 {
		t.Errorf("expected 3 periods on the biweekly calendar, got %d", n)
	}
}

func TestPeriodOrdinal_UnsupportedType(t *testing.T) {
	_, err := engine.PeriodOrdinal(date(2024, time.January, 1), engine.PeriodType("weekly"))
	if !errors.Is(err, engine.ErrUnsupportedPeriodType) {
		t.Errorf("expected ErrUnsupportedPeriodType, got %v", err)
	}
}

// =============================================================================
// NEXT BOUNDARY TESTS
// =============================================================================

func TestNextPeriodBoundary_Biweekly(t *testing.T) {
	cases := []struct {
		name string
		in   engine.TimePoint
		want engine.TimePoint
	}{
		{"before the 15th", date(2024, time.February, 3), date(2024, time.February, 15)},
		{"on the 15th", date(2024, time.March, 15), date(2024, time.March, 31)},
		{"after the 15th", date(2024, time.March, 16), date(2024, time.March, 31)},
		{"on month end", date(2024, time.January, 31), date(2024, time.February, 15)},
		{"december month end", date(2023, time.December, 31), date(2024, time.January, 15)},
		{"leap february", date(2024, time.February, 20), date(2024, time.February, 29)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.NextPeriodBoundary(tc.in, engine.PeriodBiweekly)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("boundary after %s: expected %s, got %s", tc.in, tc.want, got)
			}
		})
	}
}

func TestNextPeriodBoundary_MonthlyAndAnnual(t *testing.T) {
	got, err := engine.NextPeriodBoundary(date(2024, time.January, 31), engine.PeriodMonthly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(date(2024, time.February, 29)) {
		t.Errorf("expected 2024-02-29, got %s", got)
	}

	got, err = engine.NextPeriodBoundary(date(2024, time.June, 1), engine.PeriodAnnual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(date(2024, time.December, 31)) {
		t.Errorf("expected 2024-12-31, got %s", got)
	}
}

// =============================================================================
// PERIOD STEPPING TESTS
// =============================================================================

func TestAdvancePeriods(t *testing.T) {
	start := date(2024, time.January, 10)

	got, _ := engine.AdvancePeriods(start, 2, engine.PeriodBiweekly)
	if !got.Equal(date(2024, time.February, 9)) {
		t.Errorf("biweekly +2: expected 2024-02-09, got %s", got)
	}

	got, _ = engine.AdvancePeriods(start, 3, engine.PeriodMonthly)
	if !got.Equal(date(2024, time.April, 10)) {
		t.Errorf("monthly +3: expected 2024-04-10, got %s", got)
	}

	got, _ = engine.AdvancePeriods(start, 1, engine.PeriodAnnual)
	if !got.Equal(date(2025, time.January, 10)) {
		t.Errorf("annual +1: expected 2025-01-10, got %s", got)
	}
}

// =============================================================================
// DAYS OVERDUE TESTS
// =============================================================================

func TestDaysOverdue_NeverNegative(t *testing.T) {
	due := date(2024, time.March, 15)
	if d := engine.DaysOverdue(date(2024, time.March, 10), due); d != 0 {
		t.Errorf("not yet due: expected 0, got %d", d)
	}
	if d := engine.DaysOverdue(date(2024, time.March, 15), due); d != 0 {
		t.Errorf("due today: expected 0, got %d", d)
	}
	if d := engine.DaysOverdue(date(2024, time.March, 22), due); d != 7 {
		t.Errorf("a week late: expected 7, got %d", d)
	}
}
