package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// PERSISTENCE BOUNDARY
// =============================================================================

// Store is the persistence boundary for loans and payments. Implementations
// live under store/ (sqlite for production, memory for tests).
//
// UpdateLoan replaces the stored loan wholesale. Callers hold the only
// mutable copy between Get and Update; the service serializes writes per
// process, so implementations do not need optimistic locking.
type Store interface {
	CreateLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error)
	GetLoanByNumber(ctx context.Context, number string) (*Loan, error)
	UpdateLoan(ctx context.Context, l *Loan) error
	ListLoans(ctx context.Context, f ListFilter) ([]*Loan, error)

	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]*Payment, error)

	Close() error
}

// ListFilter narrows ListLoans. Zero value lists everything.
type ListFilter struct {
	Status     string // "active", "overdue", "finalized"; empty for all
	ClientRef  string
	OnlyUnpaid bool // exclude finalized loans
}

// =============================================================================
// SCHEDULE CACHE
// =============================================================================

// Cache holds regenerated amortization schedules so repeated reads of an
// unchanged loan skip the projection. Implementations must treat misses and
// backend failures identically: return ok=false and let the caller rebuild.
type Cache interface {
	GetSchedule(ctx context.Context, loanID uuid.UUID) ([]byte, bool)
	SetSchedule(ctx context.Context, loanID uuid.UUID, payload []byte, ttl time.Duration)
	InvalidateSchedule(ctx context.Context, loanID uuid.UUID)
}
