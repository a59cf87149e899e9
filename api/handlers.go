/*
handlers.go - HTTP API handlers for the lending engine

PURPOSE:
  Exposes the loan service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Loans:
    GET    /api/loans                  List loans (?status=, ?client_ref=)
    POST   /api/loans                  Originate a loan
    GET    /api/loans/{id}             Get loan details
    GET    /api/loans/{id}/schedule    Amortization schedule (fixed-term only)
    GET    /api/loans/{id}/payments    Payment history
    POST   /api/loans/{id}/payments    Record a payment
    POST   /api/loans/{id}/accrue      Accrue interest up to a date

  Admin:
    POST   /api/admin/recalculate      Portfolio-wide accrual sweep

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Wipe all data

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed request body or date
  - 404: Loan not found
  - 409: Event on a finalized loan
  - 422: Valid JSON, invalid business input (amounts, period type, clock)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter is implemented by stores that can wipe all data (dev/demo only).
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *loan.Service
	Resetter Resetter // nil disables /api/scenarios/reset

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler around the loan service.
func NewHandler(svc *loan.Service, resetter Resetter) *Handler {
	return &Handler{Service: svc, Resetter: resetter}
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ListLoans returns all loans, optionally filtered.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	f := loan.ListFilter{
		Status:    r.URL.Query().Get("status"),
		ClientRef: r.URL.Query().Get("client_ref"),
	}
	if f.Status != "" && !engine.Status(f.Status).Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status filter", nil)
		return
	}

	loans, err := h.Service.ListLoans(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list loans", err)
		return
	}

	writeJSON(w, http.StatusOK, toLoanDTOs(loans, engine.Today()))
}

// CreateLoan originates a new loan.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	startDate, err := engine.ParseTimePoint(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}

	l, err := h.Service.CreateLoan(r.Context(), loan.CreateLoanInput{
		ClientName:  req.ClientName,
		ClientRef:   req.ClientRef,
		Principal:   req.Principal,
		RatePercent: req.RatePercent,
		PeriodType:  engine.PeriodType(req.PeriodType),
		TermPeriods: req.TermPeriods,
		StartDate:   startDate,
	})
	if err != nil {
		writeDomainError(w, "Failed to create loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLoanDTO(l, engine.Today()))
}

// GetLoan returns a single loan.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	l, err := h.Service.GetLoan(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, toLoanDTO(l, engine.Today()))
}

// GetSchedule returns the amortization schedule for a fixed-term loan.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.Schedule(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to generate schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleDTOs(entries))
}

// ListPayments returns the payment history for a loan.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	payments, err := h.Service.ListPayments(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// RecordPayment applies a payment to a loan.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var appliedAt engine.TimePoint
	if req.AppliedAt != "" {
		var err error
		if appliedAt, err = engine.ParseTimePoint(req.AppliedAt); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid applied_at format (use YYYY-MM-DD)", err)
			return
		}
	}

	out, err := h.Service.RecordPayment(r.Context(), loan.RecordPaymentInput{
		LoanID:    id,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		AppliedAt: appliedAt,
	})
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentResultDTO{
		Payment: toPaymentDTO(out.Payment),
		Loan:    toLoanDTO(out.Loan, out.Payment.AppliedAt),
	})
}

// Accrue brings a loan's interest up to date.
func (h *Handler) Accrue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	asOf := engine.Today()
	if r.ContentLength != 0 {
		var req AccrueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.AsOf != "" {
			var err error
			if asOf, err = engine.ParseTimePoint(req.AsOf); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
				return
			}
		}
	}

	out, err := h.Service.Accrue(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to accrue interest", err)
		return
	}

	writeJSON(w, http.StatusOK, AccrualResultDTO{
		NewInterest:    out.NewInterest,
		PeriodsElapsed: out.PeriodsElapsed,
		Loan:           toLoanDTO(out.Loan, asOf),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Recalculate runs the portfolio-wide accrual sweep.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	asOf := engine.Today()
	if r.ContentLength != 0 {
		var req AccrueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.AsOf != "" {
			var err error
			if asOf, err = engine.ParseTimePoint(req.AsOf); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
				return
			}
		}
	}

	res, err := h.Service.RecalculateAll(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run sweep", err)
		return
	}

	writeJSON(w, http.StatusOK, SweepResultDTO{
		Scanned:  res.Scanned,
		Accrued:  res.Accrued,
		Failed:   res.Failed,
		Interest: res.Interest,
		AsOf:     asOf.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid loan id", err)
		return uuid.UUID{}, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Loan not found", err)
	case errors.Is(err, engine.ErrLoanFinalized):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
