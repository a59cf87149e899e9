/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

MONEY REPRESENTATION:
  All money fields are decimal.Decimal, which serializes as a quoted
  decimal string ("353.33"). Clients must not parse these as floats.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - loan/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// LoanDTO represents a loan in API responses.
type LoanDTO struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	ClientName string `json:"client_name"`
	ClientRef  string `json:"client_ref,omitempty"`

	Principal   decimal.Decimal `json:"principal"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	PeriodType  string          `json:"period_type"`
	TermPeriods int             `json:"term_periods,omitempty"`
	StartDate   string          `json:"start_date"`

	PrincipalBalance decimal.Decimal `json:"principal_balance"`
	PendingInterest  decimal.Decimal `json:"pending_interest"`
	PenaltyBalance   decimal.Decimal `json:"penalty_balance"`
	TotalDue         decimal.Decimal `json:"total_due"`

	LastAccrualAt string `json:"last_accrual_at"`
	NextDueAt     string `json:"next_due_at,omitempty"`
	Status        string `json:"status"`
	DaysOverdue   int    `json:"days_overdue"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CreateLoanRequest is the request to originate a loan.
type CreateLoanRequest struct {
	ClientName  string          `json:"client_name"`
	ClientRef   string          `json:"client_ref,omitempty"`
	Principal   decimal.Decimal `json:"principal"`
	RatePercent decimal.Decimal `json:"rate_percent"`
	PeriodType  string          `json:"period_type"`
	TermPeriods int             `json:"term_periods,omitempty"`
	StartDate   string          `json:"start_date"`
}

// PaymentDTO represents a recorded payment with its waterfall split.
type PaymentDTO struct {
	ID               string          `json:"id"`
	LoanID           string          `json:"loan_id"`
	Number           string          `json:"number"`
	Amount           decimal.Decimal `json:"amount"`
	PenaltyPortion   decimal.Decimal `json:"penalty_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	Overflow         decimal.Decimal `json:"overflow"`
	Method           string          `json:"method,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	AppliedAt        string          `json:"applied_at"`
	CreatedAt        string          `json:"created_at,omitempty"`
}

// RecordPaymentRequest is the request to apply a payment to a loan.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
	AppliedAt string          `json:"applied_at,omitempty"` // YYYY-MM-DD, defaults to today
}

// PaymentResultDTO pairs the payment with the loan state after it.
type PaymentResultDTO struct {
	Payment PaymentDTO `json:"payment"`
	Loan    LoanDTO    `json:"loan"`
}

// AccrueRequest optionally pins the accrual date (for backfills and demos).
type AccrueRequest struct {
	AsOf string `json:"as_of,omitempty"` // YYYY-MM-DD, defaults to today
}

// AccrualResultDTO reports what one accrual pass did.
type AccrualResultDTO struct {
	NewInterest    decimal.Decimal `json:"new_interest"`
	PeriodsElapsed int             `json:"periods_elapsed"`
	Loan           LoanDTO         `json:"loan"`
}

// ScheduleEntryDTO is one amortization row.
type ScheduleEntryDTO struct {
	Index            int             `json:"index"`
	DueDate          string          `json:"due_date"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	InstallmentTotal decimal.Decimal `json:"installment_total"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
}

// SweepResultDTO summarizes a portfolio-wide recalculation.
type SweepResultDTO struct {
	Scanned  int             `json:"scanned"`
	Accrued  int             `json:"accrued"`
	Failed   int             `json:"failed"`
	Interest decimal.Decimal `json:"interest"`
	AsOf     string          `json:"as_of"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toLoanDTO(l *loan.Loan, now engine.TimePoint) LoanDTO {
	return LoanDTO{
		ID:               l.ID.String(),
		Number:           l.Number,
		ClientName:       l.ClientName,
		ClientRef:        l.ClientRef,
		Principal:        l.Principal,
		RatePercent:      l.RatePercent,
		PeriodType:       string(l.PeriodType),
		TermPeriods:      l.TermPeriods,
		StartDate:        l.StartDate.String(),
		PrincipalBalance: l.PrincipalBalance,
		PendingInterest:  l.PendingInterest,
		PenaltyBalance:   l.PenaltyBalance,
		TotalDue:         l.TotalDue(),
		LastAccrualAt:    l.LastAccrualAt.String(),
		NextDueAt:        dateOrEmpty(l.NextDueAt),
		Status:           string(l.Status),
		DaysOverdue:      l.DaysOverdue(now),
		CreatedAt:        l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        l.UpdatedAt.Format(time.RFC3339),
	}
}

func toLoanDTOs(loans []*loan.Loan, now engine.TimePoint) []LoanDTO {
	dtos := make([]LoanDTO, len(loans))
	for i, l := range loans {
		dtos[i] = toLoanDTO(l, now)
	}
	return dtos
}

func toPaymentDTO(p *loan.Payment) PaymentDTO {
	return PaymentDTO{
		ID:               p.ID.String(),
		LoanID:           p.LoanID.String(),
		Number:           p.Number,
		Amount:           p.Amount,
		PenaltyPortion:   p.PenaltyPortion,
		InterestPortion:  p.InterestPortion,
		PrincipalPortion: p.PrincipalPortion,
		Overflow:         p.Overflow,
		Method:           p.Method,
		Reference:        p.Reference,
		AppliedAt:        p.AppliedAt.String(),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTOs(payments []*loan.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toScheduleDTOs(entries []engine.ScheduleEntry) []ScheduleEntryDTO {
	dtos := make([]ScheduleEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ScheduleEntryDTO{
			Index:            e.Index,
			DueDate:          e.DueDate.String(),
			OpeningBalance:   e.OpeningBalance,
			InterestPortion:  e.InterestPortion,
			PrincipalPortion: e.PrincipalPortion,
			InstallmentTotal: e.InstallmentTotal,
			ClosingBalance:   e.ClosingBalance,
		}
	}
	return dtos
}

func dateOrEmpty(tp engine.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}
