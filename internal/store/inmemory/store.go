// Package inmemory is a Record Store kept in process memory. It is safe for
// concurrent use and loses all data on restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
)

// Store implements store.Store.
type Store struct {
	mu       sync.RWMutex
	income   map[string]*domain.IncomeRecord
	expenses map[string]*domain.Expense
	reports  map[string]*domain.TaxReport
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		income:   make(map[string]*domain.IncomeRecord),
		expenses: make(map[string]*domain.Expense),
		reports:  make(map[string]*domain.TaxReport),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// InsertIncome implements store.IncomeRepository.
func (s *Store) InsertIncome(ctx context.Context, rec *domain.IncomeRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("InsertIncome: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.income[rec.ID]; exists {
		return fmt.Errorf("InsertIncome: income record %s already exists", rec.ID)
	}
	recCopy := *rec
	s.income[rec.ID] = &recCopy
	return nil
}

// GetIncome implements store.IncomeRepository.
func (s *Store) GetIncome(ctx context.Context, userID, id string) (*domain.IncomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.income[id]
	if !ok || rec.UserID != userID {
		return nil, domain.NotFoundError("income record", id)
	}
	recCopy := *rec
	return &recCopy, nil
}

// ListIncome implements store.IncomeRepository.
func (s *Store) ListIncome(ctx context.Context, userID string, r domain.DateRange) ([]*domain.IncomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.IncomeRecord
	for _, rec := range s.income {
		if rec.UserID != userID || !r.Contains(rec.DateReceived) {
			continue
		}
		recCopy := *rec
		result = append(result, &recCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DateReceived != result[j].DateReceived {
			return result[i].DateReceived.Before(result[j].DateReceived)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateIncome implements store.IncomeRepository.
func (s *Store) UpdateIncome(ctx context.Context, rec *domain.IncomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.income[rec.ID]
	if !ok || existing.UserID != rec.UserID {
		return domain.NotFoundError("income record", rec.ID)
	}
	recCopy := *rec
	recCopy.CreatedAt = existing.CreatedAt
	s.income[rec.ID] = &recCopy
	return nil
}

// DeleteIncome implements store.IncomeRepository.
func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.income[id]
	if !ok || rec.UserID != userID {
		return domain.NotFoundError("income record", id)
	}
	delete(s.income, id)
	return nil
}

// InsertExpense implements store.ExpenseRepository.
func (s *Store) InsertExpense(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("InsertExpense: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[e.ID]; exists {
		return fmt.Errorf("InsertExpense: expense %s already exists", e.ID)
	}
	eCopy := *e
	s.expenses[e.ID] = &eCopy
	return nil
}

// GetExpense implements store.ExpenseRepository.
func (s *Store) GetExpense(ctx context.Context, userID, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return nil, domain.NotFoundError("expense", id)
	}
	eCopy := *e
	return &eCopy, nil
}

// ListExpenses implements store.ExpenseRepository.
func (s *Store) ListExpenses(ctx context.Context, userID string, f store.ExpenseFilter) ([]*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Expense
	for _, e := range s.expenses {
		if e.UserID != userID || !f.Range.Contains(e.DateIncurred) {
			continue
		}
		if f.DeductibleOnly && !e.IsTaxDeductible {
			continue
		}
		eCopy := *e
		result = append(result, &eCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DateIncurred != result[j].DateIncurred {
			return result[i].DateIncurred.Before(result[j].DateIncurred)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateExpense implements store.ExpenseRepository.
func (s *Store) UpdateExpense(ctx context.Context, e *domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.expenses[e.ID]
	if !ok || existing.UserID != e.UserID {
		return domain.NotFoundError("expense", e.ID)
	}
	eCopy := *e
	eCopy.CreatedAt = existing.CreatedAt
	s.expenses[e.ID] = &eCopy
	return nil
}

// DeleteExpense implements store.ExpenseRepository.
func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return domain.NotFoundError("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

// InsertTaxReport implements store.TaxReportRepository.
func (s *Store) InsertTaxReport(ctx context.Context, r *domain.TaxReport) error {
	if r.ID == "" {
		return fmt.Errorf("InsertTaxReport: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return fmt.Errorf("InsertTaxReport: tax report %s already exists", r.ID)
	}
	s.reports[r.ID] = r.Clone()
	return nil
}

// GetTaxReport implements store.TaxReportRepository.
func (s *Store) GetTaxReport(ctx context.Context, userID, id string) (*domain.TaxReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return nil, domain.NotFoundError("tax report", id)
	}
	return r.Clone(), nil
}

// ListTaxReports implements store.TaxReportRepository.
func (s *Store) ListTaxReports(ctx context.Context, userID string) ([]*domain.TaxReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TaxReport
	for _, r := range s.reports {
		if r.UserID == userID {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// UpdateTaxReport implements store.TaxReportRepository.
func (s *Store) UpdateTaxReport(ctx context.Context, r *domain.TaxReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reports[r.ID]
	if !ok || existing.UserID != r.UserID {
		return domain.NotFoundError("tax report", r.ID)
	}
	updated := r.Clone()
	updated.CreatedAt = existing.CreatedAt
	s.reports[r.ID] = updated
	return nil
}

// SaveCalculation implements store.TaxReportRepository.
func (s *Store) SaveCalculation(ctx context.Context, userID, id string, d domain.Derived, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return domain.NotFoundError("tax report", id)
	}
	r.ApplyDerived(d, at)
	return nil
}

// DeleteTaxReport implements store.TaxReportRepository.
func (s *Store) DeleteTaxReport(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return domain.NotFoundError("tax report", id)
	}
	delete(s.reports, id)
	return nil
}

var _ store.Store = (*Store)(nil)
