/*
Package memory provides an in-memory loan.Store.

PURPOSE:
  Reference implementation used by tests and demo scenarios. Holds loans and
  payments in maps behind a mutex and hands out copies, so callers can
  mutate results freely without corrupting stored state.

NOT FOR PRODUCTION:
  Everything is lost on restart. The sqlite store is the durable one.
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/solventa/lending-engine/engine"
	"github.com/solventa/lending-engine/loan"
)

// Store is a mutex-protected map-backed loan.Store.
type Store struct {
	mu       sync.RWMutex
	loans    map[uuid.UUID]loan.Loan
	payments map[uuid.UUID][]loan.Payment // keyed by loan id, append order
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		loans:    make(map[uuid.UUID]loan.Loan),
		payments: make(map[uuid.UUID][]loan.Payment),
	}
}

func (s *Store) CreateLoan(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans[l.ID] = *l
	return nil
}

func (s *Store) GetLoan(_ context.Context, id uuid.UUID) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, engine.ErrLoanNotFound
	}
	out := l
	return &out, nil
}

func (s *Store) GetLoanByNumber(_ context.Context, number string) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.loans {
		if l.Number == number {
			out := l
			return &out, nil
		}
	}
	return nil, engine.ErrLoanNotFound
}

func (s *Store) UpdateLoan(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[l.ID]; !ok {
		return engine.ErrLoanNotFound
	}
	s.loans[l.ID] = *l
	return nil
}

func (s *Store) ListLoans(_ context.Context, f loan.ListFilter) ([]*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*loan.Loan
	for _, l := range s.loans {
		if f.Status != "" && string(l.Status) != f.Status {
			continue
		}
		if f.ClientRef != "" && l.ClientRef != f.ClientRef {
			continue
		}
		if f.OnlyUnpaid && l.Status == engine.StatusFinalized {
			continue
		}
		c := l
		out = append(out, &c)
	}
	// Map iteration is unordered; callers expect a stable listing.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number < out[j].Number
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreatePayment(_ context.Context, p *loan.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[p.LoanID]; !ok {
		return engine.ErrLoanNotFound
	}
	s.payments[p.LoanID] = append(s.payments[p.LoanID], *p)
	return nil
}

func (s *Store) ListPayments(_ context.Context, loanID uuid.UUID) ([]*loan.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.payments[loanID]
	out := make([]*loan.Payment, 0, len(stored))
	for _, p := range stored {
		c := p
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
