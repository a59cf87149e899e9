package loan_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
	"github.com/solventa/lending-engine/store/cache"
	"github.com/solventa/lending-engine/store/memory"
)

func newService(t *testing.T) *loan.Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return loan.NewService(memory.NewStore(), cache.Noop{}, logger)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func createLoan(t *testing.T, svc *loan.Service, in loan.CreateLoanInput) *loan.Loan {
	t.Helper()
	l, err := svc.CreateLoan(context.Background(), in)
	require.NoError(t, err)
	return l
}

func biweeklyLoan(t *testing.T, svc *loan.Service) *loan.Loan {
	t.Helper()
	return createLoan(t, svc, loan.CreateLoanInput{
		ClientName:  "Maria Santos",
		Principal:   dec("1000"),
		RatePercent: dec("2"),
		PeriodType:  engine.PeriodBiweekly,
		TermPeriods: 12,
		StartDate:   engine.NewTimePoint(2024, time.December, 30),
	})
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreateLoan_InitialState(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	assert.True(t, l.PrincipalBalance.Equal(dec("1000")), "balance starts at principal")
	assert.True(t, l.PendingInterest.IsZero())
	assert.True(t, l.PenaltyBalance.IsZero())
	assert.Equal(t, engine.StatusActive, l.Status)
	assert.Equal(t, "2024-12-30", l.LastAccrualAt.String(), "checkpoint starts at start date")
	assert.Equal(t, "2025-01-15", l.NextDueAt.String(), "first due date is the next boundary")
	assert.Regexp(t, `^PR20241230-[0-9a-f]{6}$`, l.Number)
}

func TestCreateLoan_OpenEndedHasNoTerm(t *testing.T) {
	svc := newService(t)
	l := createLoan(t, svc, loan.CreateLoanInput{
		ClientName:  "Jose Rivera",
		Principal:   dec("5000"),
		RatePercent: dec("1.5"),
		PeriodType:  engine.PeriodOpenEnded,
		StartDate:   engine.NewTimePoint(2025, time.January, 10),
	})

	assert.True(t, l.IsOpenEnded())
	assert.Equal(t, 0, l.TermPeriods)
	// Open-ended billing rides the biweekly calendar.
	assert.Equal(t, "2025-01-15", l.NextDueAt.String())
}

func TestCreateLoan_Validation(t *testing.T) {
	svc := newService(t)
	base := loan.CreateLoanInput{
		ClientName:  "X",
		Principal:   dec("1000"),
		RatePercent: dec("2"),
		PeriodType:  engine.PeriodMonthly,
		TermPeriods: 6,
		StartDate:   engine.NewTimePoint(2025, time.March, 1),
	}

	cases := []struct {
		name   string
		mutate func(*loan.CreateLoanInput)
		want   error
	}{
		{"zero principal", func(in *loan.CreateLoanInput) { in.Principal = decimal.Zero }, engine.ErrInvalidAmount},
		{"negative rate", func(in *loan.CreateLoanInput) { in.RatePercent = dec("-1") }, engine.ErrInvalidAmount},
		{"zero term on fixed loan", func(in *loan.CreateLoanInput) { in.TermPeriods = 0 }, engine.ErrInvalidAmount},
		{"term on open-ended loan", func(in *loan.CreateLoanInput) {
			in.PeriodType = engine.PeriodOpenEnded
			in.TermPeriods = 6
		}, engine.ErrInvalidAmount},
		{"bad period type", func(in *loan.CreateLoanInput) { in.PeriodType = "weekly" }, engine.ErrUnsupportedPeriodType},
		{"missing start date", func(in *loan.CreateLoanInput) { in.StartDate = engine.TimePoint{} }, engine.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := svc.CreateLoan(context.Background(), in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// =============================================================================
// ACCRUAL
// =============================================================================

func TestAccrue_CrossesYearBoundary(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	out, err := svc.Accrue(context.Background(), l.ID, engine.NewTimePoint(2025, time.January, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, out.PeriodsElapsed, "Dec 30 to Jan 2 crosses exactly one boundary")
	assert.True(t, out.NewInterest.Equal(dec("20")), "1000 x 2%% x 1 = 20, got %s", out.NewInterest)
	assert.True(t, out.Loan.PendingInterest.Equal(dec("20")))
	assert.Equal(t, "2025-01-02", out.Loan.LastAccrualAt.String())
	assert.Equal(t, "2025-01-15", out.Loan.NextDueAt.String())
}

func TestAccrue_Idempotent(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)
	now := engine.NewTimePoint(2025, time.January, 2)

	_, err := svc.Accrue(context.Background(), l.ID, now)
	require.NoError(t, err)

	// Same call again within the same period accrues nothing.
	out, err := svc.Accrue(context.Background(), l.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 0, out.PeriodsElapsed)
	assert.True(t, out.Loan.PendingInterest.Equal(dec("20")), "pending interest unchanged")
}

func TestAccrue_BackwardsClockRejected(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	_, err := svc.Accrue(context.Background(), l.ID, engine.NewTimePoint(2024, time.December, 1))
	assert.ErrorIs(t, err, engine.ErrTimestampOrder)
}

func TestAccrue_MarksOverdue(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	// Reading five days past the Jan 15 due date, before any accrual, shows
	// the loan slipping.
	assert.Equal(t, 5, l.DaysOverdue(engine.NewTimePoint(2025, time.January, 20)))

	// Accruing past the missed due date marks the loan overdue; two boundary
	// crossings (Jan 1, Jan 15) accrue two periods of interest, and the due
	// date advances to the next boundary.
	out, err := svc.Accrue(context.Background(), l.ID, engine.NewTimePoint(2025, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOverdue, out.Loan.Status)
	assert.Equal(t, 2, out.PeriodsElapsed)
	assert.True(t, out.Loan.PendingInterest.Equal(dec("40")))
	assert.Equal(t, "2025-01-31", out.Loan.NextDueAt.String())
}

func TestAccrue_UnknownLoan(t *testing.T) {
	svc := newService(t)
	_, err := svc.Accrue(context.Background(), uuid.New(), engine.Today())
	assert.ErrorIs(t, err, engine.ErrLoanNotFound)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment_AccruesBeforeSplitting(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	// No explicit accrual: the payment itself must bring interest current
	// (20 pending as of Jan 2) before splitting.
	out, err := svc.RecordPayment(context.Background(), loan.RecordPaymentInput{
		LoanID:    l.ID,
		Amount:    dec("30"),
		AppliedAt: engine.NewTimePoint(2025, time.January, 2),
	})
	require.NoError(t, err)

	assert.True(t, out.Payment.InterestPortion.Equal(dec("20")))
	assert.True(t, out.Payment.PrincipalPortion.Equal(dec("10")))
	assert.True(t, out.Payment.Overflow.IsZero())
	assert.True(t, out.Loan.PendingInterest.IsZero())
	assert.True(t, out.Loan.PrincipalBalance.Equal(dec("990")))
}

func TestRecordPayment_PartialInterestBlocksPrincipal(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	out, err := svc.RecordPayment(context.Background(), loan.RecordPaymentInput{
		LoanID:    l.ID,
		Amount:    dec("15"),
		AppliedAt: engine.NewTimePoint(2025, time.January, 2),
	})
	require.NoError(t, err)

	assert.True(t, out.Payment.InterestPortion.Equal(dec("15")))
	assert.True(t, out.Payment.PrincipalPortion.IsZero(), "principal locked while interest remains")
	assert.True(t, out.Loan.PendingInterest.Equal(dec("5")))
	assert.True(t, out.Loan.PrincipalBalance.Equal(dec("1000")))
}

func TestRecordPayment_FullPayoffFinalizes(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	out, err := svc.RecordPayment(context.Background(), loan.RecordPaymentInput{
		LoanID:    l.ID,
		Amount:    dec("1040"),
		AppliedAt: engine.NewTimePoint(2025, time.January, 2),
	})
	require.NoError(t, err)

	assert.True(t, out.Payment.InterestPortion.Equal(dec("20")))
	assert.True(t, out.Payment.PrincipalPortion.Equal(dec("1000")))
	assert.True(t, out.Payment.Overflow.Equal(dec("20")), "surplus surfaced, not swallowed")
	assert.True(t, out.Loan.PrincipalBalance.IsZero())
	assert.Equal(t, engine.StatusFinalized, out.Loan.Status)

	// Finalized is terminal: no further events accepted.
	_, err = svc.RecordPayment(context.Background(), loan.RecordPaymentInput{
		LoanID: l.ID, Amount: dec("1"), AppliedAt: engine.NewTimePoint(2025, time.January, 3),
	})
	assert.ErrorIs(t, err, engine.ErrLoanFinalized)
	_, err = svc.Accrue(context.Background(), l.ID, engine.NewTimePoint(2025, time.February, 1))
	assert.ErrorIs(t, err, engine.ErrLoanFinalized)
}

func TestRecordPayment_ClearsOverdue(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	_, err := svc.Accrue(context.Background(), l.ID, engine.NewTimePoint(2025, time.January, 20))
	require.NoError(t, err)

	// Paying all arrears with the next due date ahead returns the loan to
	// active. Accrual at Jan 20 moved the due date to Jan 31.
	out, err := svc.RecordPayment(context.Background(), loan.RecordPaymentInput{
		LoanID:    l.ID,
		Amount:    dec("40"),
		AppliedAt: engine.NewTimePoint(2025, time.January, 20),
	})
	require.NoError(t, err)
	assert.True(t, out.Loan.PendingInterest.IsZero())
	assert.Equal(t, engine.StatusActive, out.Loan.Status)
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)

	for _, amount := range []string{"0", "-50"} {
		_, err := svc.RecordPayment(context.Background(), loan.RecordPaymentInput{
			LoanID: l.ID, Amount: dec(amount),
		})
		assert.ErrorIs(t, err, engine.ErrInvalidAmount, "amount %s", amount)
	}
}

func TestListPayments_History(t *testing.T) {
	svc := newService(t)
	l := biweeklyLoan(t, svc)
	ctx := context.Background()

	for _, amount := range []string{"15", "5"} {
		_, err := svc.RecordPayment(ctx, loan.RecordPaymentInput{
			LoanID: l.ID, Amount: dec(amount), AppliedAt: engine.NewTimePoint(2025, time.January, 2),
		})
		require.NoError(t, err)
	}

	payments, err := svc.ListPayments(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].Amount.Equal(dec("15")))
	assert.True(t, payments[1].Amount.Equal(dec("5")))
	assert.Regexp(t, `^PG20250102-[0-9a-f]{6}$`, payments[0].Number)

	_, err = svc.ListPayments(ctx, uuid.New())
	assert.ErrorIs(t, err, engine.ErrLoanNotFound)
}

// =============================================================================
// SCHEDULE
// =============================================================================

// recordingCache is an in-memory loan.Cache that counts hits and writes.
type recordingCache struct {
	mu        sync.Mutex
	entries   map[uuid.UUID][]byte
	hits      int
	sets      int
	dropCalls int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[uuid.UUID][]byte)}
}

func (c *recordingCache) GetSchedule(_ context.Context, id uuid.UUID) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return payload, ok
}

func (c *recordingCache) SetSchedule(_ context.Context, id uuid.UUID, payload []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = payload
	c.sets++
}

func (c *recordingCache) InvalidateSchedule(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.dropCalls++
}

func TestSchedule_CachedUntilLoanChanges(t *testing.T) {
	rc := newRecordingCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := loan.NewService(memory.NewStore(), rc, logger)
	ctx := context.Background()

	l := createLoan(t, svc, loan.CreateLoanInput{
		ClientName:  "Ana Flores",
		Principal:   dec("1000"),
		RatePercent: dec("2"),
		PeriodType:  engine.PeriodMonthly,
		TermPeriods: 3,
		StartDate:   engine.NewTimePoint(2025, time.February, 10),
	})

	first, err := svc.Schedule(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 1, rc.sets)
	assert.Equal(t, 0, rc.hits)

	second, err := svc.Schedule(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.hits, "second read served from cache")
	require.Len(t, second, 3)
	assert.True(t, second[0].InstallmentTotal.Equal(dec("353.33")))
	assert.True(t, second[2].ClosingBalance.IsZero())

	// Any loan write drops the cached projection.
	_, err = svc.RecordPayment(ctx, loan.RecordPaymentInput{
		LoanID: l.ID, Amount: dec("100"), AppliedAt: engine.NewTimePoint(2025, time.February, 11),
	})
	require.NoError(t, err)
	assert.Empty(t, rc.entries)
}

func TestSchedule_OpenEndedRejected(t *testing.T) {
	svc := newService(t)
	l := createLoan(t, svc, loan.CreateLoanInput{
		ClientName:  "Jose Rivera",
		Principal:   dec("5000"),
		RatePercent: dec("1.5"),
		PeriodType:  engine.PeriodOpenEnded,
		StartDate:   engine.NewTimePoint(2025, time.January, 10),
	})

	_, err := svc.Schedule(context.Background(), l.ID)
	assert.ErrorIs(t, err, engine.ErrUnsupportedPeriodType)
}

// =============================================================================
// PORTFOLIO SWEEP
// =============================================================================

func TestRecalculateAll_SkipsFinalizedAndCurrent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	stale := biweeklyLoan(t, svc)
	paid := createLoan(t, svc, loan.CreateLoanInput{
		ClientName:  "Paid Off",
		Principal:   dec("500"),
		RatePercent: dec("2"),
		PeriodType:  engine.PeriodBiweekly,
		TermPeriods: 6,
		StartDate:   engine.NewTimePoint(2024, time.December, 30),
	})
	_, err := svc.RecordPayment(ctx, loan.RecordPaymentInput{
		LoanID: paid.ID, Amount: dec("600"), AppliedAt: engine.NewTimePoint(2024, time.December, 31),
	})
	require.NoError(t, err)

	res, err := svc.RecalculateAll(ctx, engine.NewTimePoint(2025, time.January, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Scanned, "finalized loan excluded from the sweep")
	assert.Equal(t, 1, res.Accrued)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, res.Interest.Equal(dec("20")))

	got, err := svc.GetLoan(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, got.PendingInterest.Equal(dec("20")))

	// Re-running the sweep for the same day is a no-op.
	res, err = svc.RecalculateAll(ctx, engine.NewTimePoint(2025, time.January, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Accrued)
	assert.True(t, res.Interest.IsZero())
}
