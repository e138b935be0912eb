// Package store defines the Record Store repositories. Every method is scoped
// by user; a row belonging to another user is reported as domain.ErrNotFound.
package store

import (
	"context"
	"time"

	"github.com/dvloznov/financr/internal/domain"
)

// IncomeRepository persists income records.
type IncomeRepository interface {
	InsertIncome(ctx context.Context, rec *domain.IncomeRecord) error
	GetIncome(ctx context.Context, userID, id string) (*domain.IncomeRecord, error)
	// ListIncome returns records ordered by date received, then creation.
	ListIncome(ctx context.Context, userID string, r domain.DateRange) ([]*domain.IncomeRecord, error)
	UpdateIncome(ctx context.Context, rec *domain.IncomeRecord) error
	DeleteIncome(ctx context.Context, userID, id string) error
}

// ExpenseFilter narrows an expense listing.
type ExpenseFilter struct {
	Range          domain.DateRange
	DeductibleOnly bool
}

// ExpenseRepository persists expenses.
type ExpenseRepository interface {
	InsertExpense(ctx context.Context, e *domain.Expense) error
	GetExpense(ctx context.Context, userID, id string) (*domain.Expense, error)
	// ListExpenses returns expenses ordered by date incurred, then creation.
	ListExpenses(ctx context.Context, userID string, f ExpenseFilter) ([]*domain.Expense, error)
	UpdateExpense(ctx context.Context, e *domain.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
}

// TaxReportRepository persists tax reports.
type TaxReportRepository interface {
	InsertTaxReport(ctx context.Context, r *domain.TaxReport) error
	GetTaxReport(ctx context.Context, userID, id string) (*domain.TaxReport, error)
	// ListTaxReports returns the user's reports, newest first.
	ListTaxReports(ctx context.Context, userID string) ([]*domain.TaxReport, error)
	// UpdateTaxReport overwrites the whole row. Concurrent writers are not
	// reconciled; the last write wins.
	UpdateTaxReport(ctx context.Context, r *domain.TaxReport) error
	// SaveCalculation writes derived fields and marks the report calculated
	// without touching any bucket.
	SaveCalculation(ctx context.Context, userID, id string, d domain.Derived, at time.Time) error
	DeleteTaxReport(ctx context.Context, userID, id string) error
}

// Store bundles every repository behind one backend.
type Store interface {
	IncomeRepository
	ExpenseRepository
	TaxReportRepository
	Close() error
}
