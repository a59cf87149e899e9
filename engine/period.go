/*
period.go - Billing period calendar

PURPOSE:
  Deterministic mapping between wall-clock dates and billing-period ordinals.
  All interest math counts *boundaries crossed* between two dates, so the
  ordinal mapping is the only clock the accrual engine has.

PERIOD TYPES:
  biweekly (quincenal): two periods per month, boundaries on the 15th and on
                        the last calendar day of the month
  monthly:              one period per month, boundary at month end
  annual:               one period per year, boundary at Dec 31
  open_ended:           a loan term, not a calendar; open-ended loans bill on
                        the biweekly calendar

EDGE CASE POLICY:
  Period counting is boundary-based, not day-based. A loan accrued from
  Dec 30 to Jan 2 crosses exactly one boundary (December's month-end) and
  owes exactly one period of interest - not zero, not two.
*/
package engine

// =============================================================================
// PERIOD TYPE
// =============================================================================

// PeriodType defines the billing interval of a loan.
type PeriodType string

const (
	PeriodBiweekly  PeriodType = "biweekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodAnnual    PeriodType = "annual"
	PeriodOpenEnded PeriodType = "open_ended"
)

// Valid reports whether pt is one of the enumerated period types.
func (pt PeriodType) Valid() bool {
	switch pt {
	case PeriodBiweekly, PeriodMonthly, PeriodAnnual, PeriodOpenEnded:
		return true
	}
	return false
}

// IsOpenEnded reports whether loans of this type have no fixed term.
func (pt PeriodType) IsOpenEnded() bool {
	return pt == PeriodOpenEnded
}

// calendar maps a loan period type to the calendar it bills on. Open-ended
// loans accrue quincenally.
func (pt PeriodType) calendar() PeriodType {
	if pt == PeriodOpenEnded {
		return PeriodBiweekly
	}
	return pt
}

// =============================================================================
// PERIOD ORDINALS
// =============================================================================

// PeriodOrdinal converts a date to its billing-period ordinal. Ordinals are
// only meaningful when subtracted from each other; the biweekly scale is
// year*24 + month*2, bumped by one once the 15th is reached.
func PeriodOrdinal(date TimePoint, pt PeriodType) (int, error) {
	switch pt.calendar() {
	case PeriodBiweekly:
		ord := date.Year()*24 + int(date.Month())*2
		if date.Day() >= 15 {
			ord++
		}
		return ord, nil
	case PeriodMonthly:
		return date.Year()*12 + int(date.Month()), nil
	case PeriodAnnual:
		return date.Year(), nil
	default:
		return 0, ErrUnsupportedPeriodType
	}
}

// PeriodsElapsed returns the number of period boundaries crossed between
// from and to. Both dates inside the same period yield 0. The caller
// guarantees to >= from; a negative result is never produced here because
// accrual rejects out-of-order timestamps first.
func PeriodsElapsed(from, to TimePoint, pt PeriodType) (int, error) {
	fromOrd, err := PeriodOrdinal(from, pt)
	if err != nil {
		return 0, err
	}
	toOrd, err := PeriodOrdinal(to, pt)
	if err != nil {
		return 0, err
	}
	return toOrd - fromOrd, nil
}

// =============================================================================
// PERIOD BOUNDARIES
// =============================================================================

// NextPeriodBoundary returns the next date at which a period closes after
// the given date.
//
// Biweekly: before the 15th -> the 15th of the same month; on or after the
// 15th -> the last day of the month, unless the date has already reached it,
// in which case the 15th of the next month. Month arithmetic via AddDate
// rolls December into January naturally.
func NextPeriodBoundary(date TimePoint, pt PeriodType) (TimePoint, error) {
	switch pt.calendar() {
	case PeriodBiweekly:
		if date.Day() < 15 {
			return NewTimePoint(date.Year(), date.Month(), 15), nil
		}
		eom := EndOfMonth(date.Year(), date.Month())
		if date.Day() >= eom.Day() {
			next := eom.AddDays(1) // first of next month
			return NewTimePoint(next.Year(), next.Month(), 15), nil
		}
		return eom, nil
	case PeriodMonthly:
		eom := EndOfMonth(date.Year(), date.Month())
		if date.Day() >= eom.Day() {
			next := eom.AddDays(1)
			return EndOfMonth(next.Year(), next.Month()), nil
		}
		return eom, nil
	case PeriodAnnual:
		eoy := NewTimePoint(date.Year(), 12, 31)
		if !date.Before(eoy) {
			return NewTimePoint(date.Year()+1, 12, 31), nil
		}
		return eoy, nil
	default:
		return TimePoint{}, ErrUnsupportedPeriodType
	}
}

// AdvancePeriods steps a start date forward by n periods using the period
// type's stepping rule: +15 days per biweekly period, +1 month per monthly
// period, +1 year per annual period. Used for schedule due dates.
func AdvancePeriods(start TimePoint, n int, pt PeriodType) (TimePoint, error) {
	switch pt.calendar() {
	case PeriodBiweekly:
		return start.AddDays(15 * n), nil
	case PeriodMonthly:
		return start.AddMonths(n), nil
	case PeriodAnnual:
		return start.AddYears(n), nil
	default:
		return TimePoint{}, ErrUnsupportedPeriodType
	}
}
