package inmemory

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestIncome_ScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertIncome(ctx, &domain.IncomeRecord{ID: "b", UserID: "u1", Amount: decimal.NewFromInt(2), DateReceived: date(2024, 5, 1)}))
	require.NoError(t, s.InsertIncome(ctx, &domain.IncomeRecord{ID: "a", UserID: "u1", Amount: decimal.NewFromInt(1), DateReceived: date(2024, 1, 1)}))
	require.NoError(t, s.InsertIncome(ctx, &domain.IncomeRecord{ID: "c", UserID: "u1", Amount: decimal.NewFromInt(3), DateReceived: date(2025, 1, 1)}))
	require.NoError(t, s.InsertIncome(ctx, &domain.IncomeRecord{ID: "x", UserID: "u2", DateReceived: date(2024, 3, 1)}))

	assert.Error(t, s.InsertIncome(ctx, &domain.IncomeRecord{ID: "a", UserID: "u1"}))
	assert.Error(t, s.InsertIncome(ctx, &domain.IncomeRecord{UserID: "u1"}))

	got, err := s.ListIncome(ctx, "u1", domain.TaxYearWindow(2024))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	_, err = s.GetIncome(ctx, "u2", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.DeleteIncome(ctx, "u2", "a"), domain.ErrNotFound)
	require.NoError(t, s.DeleteIncome(ctx, "u1", "a"))
	_, err = s.GetIncome(ctx, "u1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIncome_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := &domain.IncomeRecord{ID: "a", UserID: "u1", SourceType: "Salary", DateReceived: date(2024, 1, 1)}
	require.NoError(t, s.InsertIncome(ctx, rec))
	rec.SourceType = "changed"

	got, err := s.GetIncome(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "Salary", got.SourceType)

	got.SourceType = "also changed"
	again, err := s.GetIncome(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "Salary", again.SourceType)
}

func TestExpenses_DeductibleFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertExpense(ctx, &domain.Expense{ID: "e1", UserID: "u1", Category: "Software", DateIncurred: date(2024, 2, 1), IsTaxDeductible: true}))
	require.NoError(t, s.InsertExpense(ctx, &domain.Expense{ID: "e2", UserID: "u1", Category: "Groceries", DateIncurred: date(2024, 3, 1)}))

	all, err := s.ListExpenses(ctx, "u1", store.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deductible, err := s.ListExpenses(ctx, "u1", store.ExpenseFilter{DeductibleOnly: true})
	require.NoError(t, err)
	require.Len(t, deductible, 1)
	assert.Equal(t, "e1", deductible[0].ID)

	assert.ErrorIs(t, s.UpdateExpense(ctx, &domain.Expense{ID: "e1", UserID: "u2"}), domain.ErrNotFound)
}

func TestTaxReports_NewestFirstAndCalculation(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := domain.NewTaxReport("r1", "u1", 2023, base)
	newer := domain.NewTaxReport("r2", "u1", 2024, base.Add(time.Hour))
	require.NoError(t, s.InsertTaxReport(ctx, older))
	require.NoError(t, s.InsertTaxReport(ctx, newer))

	list, err := s.ListTaxReports(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Equal(t, "r1", list[1].ID)

	at := base.Add(2 * time.Hour)
	require.NoError(t, s.SaveCalculation(ctx, "u1", "r1", domain.Derived{FederalTax: decimal.NewFromInt(100)}, at))

	got, err := s.GetTaxReport(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCalculated, got.Status)
	assert.True(t, got.FederalTax.Equal(decimal.NewFromInt(100)))

	assert.ErrorIs(t, s.SaveCalculation(ctx, "u2", "r1", domain.Derived{}, at), domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTaxReport(ctx, "u2", "r1"), domain.ErrNotFound)

	// Update keeps the original creation time.
	got.Name = "renamed"
	got.CreatedAt = at
	require.NoError(t, s.UpdateTaxReport(ctx, got))
	got, err = s.GetTaxReport(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, got.CreatedAt.Equal(base))
}
