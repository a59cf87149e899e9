/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	loan portfolios for testing and demos. Each scenario creates loans,
	accrues interest, and applies payments that demonstrate specific
	behaviors of the engine.

AVAILABLE SCENARIOS:

	fresh-loan:       Single biweekly loan, nothing accrued yet
	overdue-portfolio: Mixed portfolio with current, overdue and paid loans
	open-ended:       Indefinite loan billed on the biweekly calendar
	payoff-journey:   Fixed-term loan most of the way through its schedule

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create loans with backdated start dates
 3. Accrue up to the scenario's "today"
 4. Apply payments to produce the target states

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "overdue-portfolio"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Route wiring
  - loan/service.go: The lifecycle operations scenarios drive
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-loan",
		Name:        "Fresh Loan",
		Description: "Single biweekly loan just originated, no interest accrued yet",
	},
	{
		ID:          "overdue-portfolio",
		Name:        "Overdue Portfolio",
		Description: "Mixed portfolio: current, overdue with arrears, and a paid-off loan",
	},
	{
		ID:          "open-ended",
		Name:        "Open-Ended Loan",
		Description: "Indefinite loan billed every quincena with interest-only payments",
	},
	{
		ID:          "payoff-journey",
		Name:        "Payoff Journey",
		Description: "Fixed-term monthly loan with several installments already paid",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "fresh-loan":
		err = h.loadFreshLoanScenario(ctx)
	case "overdue-portfolio":
		err = h.loadOverduePortfolioScenario(ctx)
	case "open-ended":
		err = h.loadOpenEndedScenario(ctx)
	case "payoff-journey":
		err = h.loadPayoffJourneyScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if h.Resetter == nil {
		return fmt.Errorf("store does not support reset")
	}
	h.currentScenario = ""
	return h.Resetter.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadFreshLoanScenario creates one loan originated this morning.
func (h *Handler) loadFreshLoanScenario(ctx context.Context) error {
	_, err := h.Service.CreateLoan(ctx, loan.CreateLoanInput{
		ClientName:  "Maria Santos",
		ClientRef:   "demo-maria",
		Principal:   decimal.NewFromInt(1000),
		RatePercent: decimal.NewFromInt(2),
		PeriodType:  engine.PeriodBiweekly,
		TermPeriods: 12,
		StartDate:   engine.Today(),
	})
	return err
}

// loadOverduePortfolioScenario builds a small mixed portfolio: one loan
// current on payments, one far behind, one fully paid off.
func (h *Handler) loadOverduePortfolioScenario(ctx context.Context) error {
	today := engine.Today()

	// Current: started six weeks ago, borrower pays the interest each time.
	current, err := h.Service.CreateLoan(ctx, loan.CreateLoanInput{
		ClientName:  "Jose Rivera",
		ClientRef:   "demo-jose",
		Principal:   decimal.NewFromInt(5000),
		RatePercent: decimal.RequireFromString("1.5"),
		PeriodType:  engine.PeriodBiweekly,
		TermPeriods: 24,
		StartDate:   today.AddDays(-42),
	})
	if err != nil {
		return err
	}
	if err := h.accrueAndClear(ctx, current.ID, today); err != nil {
		return err
	}

	// Overdue: started two months ago, never paid a cent.
	overdue, err := h.Service.CreateLoan(ctx, loan.CreateLoanInput{
		ClientName:  "Ana Flores",
		ClientRef:   "demo-ana",
		Principal:   decimal.NewFromInt(2500),
		RatePercent: decimal.NewFromInt(3),
		PeriodType:  engine.PeriodBiweekly,
		TermPeriods: 12,
		StartDate:   today.AddDays(-60),
	})
	if err != nil {
		return err
	}
	if _, err := h.Service.Accrue(ctx, overdue.ID, today); err != nil {
		return err
	}

	// Paid off: short loan settled in full last week.
	paid, err := h.Service.CreateLoan(ctx, loan.CreateLoanInput{
		ClientName:  "Carlos Mendoza",
		ClientRef:   "demo-carlos",
		Principal:   decimal.NewFromInt(800),
		RatePercent: decimal.NewFromInt(2),
		PeriodType:  engine.PeriodBiweekly,
		TermPeriods: 6,
		StartDate:   today.AddDays(-30),
	})
	if err != nil {
		return err
	}
	if _, err := h.Service.Accrue(ctx, paid.ID, today.AddDays(-7)); err != nil {
		return err
	}
	settled, err := h.Service.GetLoan(ctx, paid.ID)
	if err != nil {
		return err
	}
	_, err = h.Service.RecordPayment(ctx, loan.RecordPaymentInput{
		LoanID:    paid.ID,
		Amount:    settled.PrincipalBalance.Add(settled.TotalDue()),
		Method:    "cash",
		AppliedAt: today.AddDays(-7),
	})
	return err
}

// loadOpenEndedScenario creates an indefinite loan with a couple of
// interest-only payments behind it.
func (h *Handler) loadOpenEndedScenario(ctx context.Context) error {
	today := engine.Today()

	l, err := h.Service.CreateLoan(ctx, loan.CreateLoanInput{
		ClientName:  "Lucia Paredes",
		ClientRef:   "demo-lucia",
		Principal:   decimal.NewFromInt(10000),
		RatePercent: decimal.NewFromInt(2),
		PeriodType:  engine.PeriodOpenEnded,
		StartDate:   today.AddDays(-45),
	})
	if err != nil {
		return err
	}

	// Two interest-only payments, then accrue up to today.
	for _, daysAgo := range []int{30, 15} {
		at := today.AddDays(-daysAgo)
		if err := h.accrueAndClear(ctx, l.ID, at); err != nil {
			return err
		}
	}
	_, err = h.Service.Accrue(ctx, l.ID, today)
	return err
}

// loadPayoffJourneyScenario creates a monthly loan with several
// installments already paid down.
func (h *Handler) loadPayoffJourneyScenario(ctx context.Context) error {
	today := engine.Today()
	start := today.AddMonths(-4)

	l, err := h.Service.CreateLoan(ctx, loan.CreateLoanInput{
		ClientName:  "Pedro Alvarez",
		ClientRef:   "demo-pedro",
		Principal:   decimal.NewFromInt(6000),
		RatePercent: decimal.RequireFromString("2.5"),
		PeriodType:  engine.PeriodMonthly,
		TermPeriods: 6,
		StartDate:   start,
	})
	if err != nil {
		return err
	}

	entries, err := h.Service.Schedule(ctx, l.ID)
	if err != nil {
		return err
	}

	// Pay the first three installments on their due dates.
	for i := 0; i < 3 && i < len(entries); i++ {
		_, err := h.Service.RecordPayment(ctx, loan.RecordPaymentInput{
			LoanID:    l.ID,
			Amount:    entries[i].InstallmentTotal,
			Method:    "transfer",
			AppliedAt: entries[i].DueDate,
		})
		if err != nil {
			return err
		}
	}
	_, err = h.Service.Accrue(ctx, l.ID, today)
	return err
}

// accrueAndClear accrues up to a date and pays exactly the arrears, leaving
// the loan current with its principal untouched.
func (h *Handler) accrueAndClear(ctx context.Context, id uuid.UUID, at engine.TimePoint) error {
	out, err := h.Service.Accrue(ctx, id, at)
	if err != nil {
		return err
	}
	due := out.Loan.TotalDue()
	if !due.IsPositive() {
		return nil
	}
	_, err = h.Service.RecordPayment(ctx, loan.RecordPaymentInput{
		LoanID:    id,
		Amount:    due,
		Method:    "cash",
		AppliedAt: at,
	})
	return err
}
