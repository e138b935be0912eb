package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
	"google.golang.org/api/iterator"
)

// IncomeRow mirrors the income_records table.
type IncomeRow struct {
	ID           string     `bigquery:"id"`            // REQUIRED
	UserID       string     `bigquery:"user_id"`       // REQUIRED
	Amount       *big.Rat   `bigquery:"amount"`        // REQUIRED NUMERIC
	SourceType   string     `bigquery:"source_type"`   // REQUIRED
	DateReceived civil.Date `bigquery:"date_received"` // REQUIRED
	ClientName   string     `bigquery:"client_name"`   // NULLABLE
	Description  string     `bigquery:"description"`   // NULLABLE
	CreatedAt    time.Time  `bigquery:"created_at"`    // REQUIRED
}

func (r *IncomeRow) toDomain() *domain.IncomeRecord {
	return &domain.IncomeRecord{
		ID:           r.ID,
		UserID:       r.UserID,
		Amount:       fromRat(r.Amount),
		SourceType:   r.SourceType,
		DateReceived: r.DateReceived,
		ClientName:   r.ClientName,
		Description:  r.Description,
		CreatedAt:    r.CreatedAt,
	}
}

func incomeParams(rec *domain.IncomeRecord) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "id", Value: rec.ID},
		{Name: "user_id", Value: rec.UserID},
		{Name: "amount", Value: toRat(rec.Amount)},
		{Name: "source_type", Value: rec.SourceType},
		{Name: "date_received", Value: rec.DateReceived},
		{Name: "client_name", Value: rec.ClientName},
		{Name: "description", Value: rec.Description},
		{Name: "created_at", Value: rec.CreatedAt},
	}
}

const incomeColumns = `id, user_id, amount, source_type, date_received, client_name, description, created_at`

// InsertIncome implements store.IncomeRepository.
func (s *Store) InsertIncome(ctx context.Context, rec *domain.IncomeRecord) error {
	sql := fmt.Sprintf(`
		INSERT %s (%s)
		VALUES (@id, @user_id, @amount, @source_type, @date_received, @client_name, @description, @created_at)
	`, s.table(incomeTable), incomeColumns)

	if _, err := s.runDML(ctx, sql, incomeParams(rec)); err != nil {
		return fmt.Errorf("InsertIncome: %w", err)
	}
	return nil
}

// GetIncome implements store.IncomeRepository.
func (s *Store) GetIncome(ctx context.Context, userID, id string) (*domain.IncomeRecord, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = @id AND user_id = @user_id LIMIT 1`,
		incomeColumns, s.table(incomeTable))

	rows, err := s.queryIncome(ctx, sql, []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("GetIncome: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("GetIncome: %w", domain.NotFoundError("income record", id))
	}
	return rows[0], nil
}

// ListIncome implements store.IncomeRepository.
func (s *Store) ListIncome(ctx context.Context, userID string, r domain.DateRange) ([]*domain.IncomeRecord, error) {
	where, params := dateBounds("date_received", r)
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = @user_id%s ORDER BY date_received, created_at`,
		incomeColumns, s.table(incomeTable), where)

	rows, err := s.queryIncome(ctx, sql, append(params, bigquery.QueryParameter{Name: "user_id", Value: userID}))
	if err != nil {
		return nil, fmt.Errorf("ListIncome: %w", err)
	}
	return rows, nil
}

func (s *Store) queryIncome(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]*domain.IncomeRecord, error) {
	it, err := s.read(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	var rows []*domain.IncomeRecord
	for {
		var row IncomeRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating rows: %w", err)
		}
		rows = append(rows, row.toDomain())
	}
	return rows, nil
}

// UpdateIncome implements store.IncomeRepository.
func (s *Store) UpdateIncome(ctx context.Context, rec *domain.IncomeRecord) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET amount = @amount, source_type = @source_type, date_received = @date_received,
		    client_name = @client_name, description = @description
		WHERE id = @id AND user_id = @user_id
	`, s.table(incomeTable))

	n, err := s.runDML(ctx, sql, dropParam(incomeParams(rec), "created_at"))
	if err != nil {
		return fmt.Errorf("UpdateIncome: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateIncome: %w", domain.NotFoundError("income record", rec.ID))
	}
	return nil
}

// DeleteIncome implements store.IncomeRepository.
func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, "DeleteIncome", incomeTable, "income record", userID, id)
}

// ExpenseRow mirrors the expenses table.
type ExpenseRow struct {
	ID              string     `bigquery:"id"`                // REQUIRED
	UserID          string     `bigquery:"user_id"`           // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`            // REQUIRED NUMERIC
	Category        string     `bigquery:"category"`          // NULLABLE
	Subcategory     string     `bigquery:"subcategory"`       // NULLABLE
	DateIncurred    civil.Date `bigquery:"date_incurred"`     // REQUIRED
	IsTaxDeductible bool       `bigquery:"is_tax_deductible"` // REQUIRED
	Description     string     `bigquery:"description"`       // NULLABLE
	CreatedAt       time.Time  `bigquery:"created_at"`        // REQUIRED
}

func (r *ExpenseRow) toDomain() *domain.Expense {
	return &domain.Expense{
		ID:              r.ID,
		UserID:          r.UserID,
		Amount:          fromRat(r.Amount),
		Category:        r.Category,
		Subcategory:     r.Subcategory,
		DateIncurred:    r.DateIncurred,
		IsTaxDeductible: r.IsTaxDeductible,
		Description:     r.Description,
		CreatedAt:       r.CreatedAt,
	}
}

func expenseParams(e *domain.Expense) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "id", Value: e.ID},
		{Name: "user_id", Value: e.UserID},
		{Name: "amount", Value: toRat(e.Amount)},
		{Name: "category", Value: e.Category},
		{Name: "subcategory", Value: e.Subcategory},
		{Name: "date_incurred", Value: e.DateIncurred},
		{Name: "is_tax_deductible", Value: e.IsTaxDeductible},
		{Name: "description", Value: e.Description},
		{Name: "created_at", Value: e.CreatedAt},
	}
}

const expenseColumns = `id, user_id, amount, category, subcategory, date_incurred, is_tax_deductible, description, created_at`

// InsertExpense implements store.ExpenseRepository.
func (s *Store) InsertExpense(ctx context.Context, e *domain.Expense) error {
	sql := fmt.Sprintf(`
		INSERT %s (%s)
		VALUES (@id, @user_id, @amount, @category, @subcategory, @date_incurred, @is_tax_deductible, @description, @created_at)
	`, s.table(expenseTable), expenseColumns)

	if _, err := s.runDML(ctx, sql, expenseParams(e)); err != nil {
		return fmt.Errorf("InsertExpense: %w", err)
	}
	return nil
}

// GetExpense implements store.ExpenseRepository.
func (s *Store) GetExpense(ctx context.Context, userID, id string) (*domain.Expense, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = @id AND user_id = @user_id LIMIT 1`,
		expenseColumns, s.table(expenseTable))

	rows, err := s.queryExpenses(ctx, sql, []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("GetExpense: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("GetExpense: %w", domain.NotFoundError("expense", id))
	}
	return rows[0], nil
}

// ListExpenses implements store.ExpenseRepository.
func (s *Store) ListExpenses(ctx context.Context, userID string, f store.ExpenseFilter) ([]*domain.Expense, error) {
	where, params := dateBounds("date_incurred", f.Range)
	if f.DeductibleOnly {
		where += " AND is_tax_deductible"
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = @user_id%s ORDER BY date_incurred, created_at`,
		expenseColumns, s.table(expenseTable), where)

	rows, err := s.queryExpenses(ctx, sql, append(params, bigquery.QueryParameter{Name: "user_id", Value: userID}))
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: %w", err)
	}
	return rows, nil
}

func (s *Store) queryExpenses(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]*domain.Expense, error) {
	it, err := s.read(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	var rows []*domain.Expense
	for {
		var row ExpenseRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating rows: %w", err)
		}
		rows = append(rows, row.toDomain())
	}
	return rows, nil
}

// UpdateExpense implements store.ExpenseRepository.
func (s *Store) UpdateExpense(ctx context.Context, e *domain.Expense) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET amount = @amount, category = @category, subcategory = @subcategory,
		    date_incurred = @date_incurred, is_tax_deductible = @is_tax_deductible,
		    description = @description
		WHERE id = @id AND user_id = @user_id
	`, s.table(expenseTable))

	n, err := s.runDML(ctx, sql, dropParam(expenseParams(e), "created_at"))
	if err != nil {
		return fmt.Errorf("UpdateExpense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateExpense: %w", domain.NotFoundError("expense", e.ID))
	}
	return nil
}

// DeleteExpense implements store.ExpenseRepository.
func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, "DeleteExpense", expenseTable, "expense", userID, id)
}

func (s *Store) deleteRow(ctx context.Context, op, table, entity, userID, id string) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE id = @id AND user_id = @user_id`, s.table(table))

	n, err := s.runDML(ctx, sql, []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.NotFoundError(entity, id))
	}
	return nil
}
