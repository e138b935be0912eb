package postgres

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
	"github.com/jackc/pgx/v5"
)

const incomeColumns = `id, user_id, amount, source_type, date_received, client_name, description, created_at`

func scanIncome(row pgx.Row) (*domain.IncomeRecord, error) {
	var rec domain.IncomeRecord
	var received time.Time
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Amount,
		&rec.SourceType,
		&received,
		&rec.ClientName,
		&rec.Description,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.DateReceived = civil.DateOf(received)
	return &rec, nil
}

// InsertIncome implements store.IncomeRepository.
func (s *Store) InsertIncome(ctx context.Context, rec *domain.IncomeRecord) error {
	query := `
		INSERT INTO income_records (` + incomeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Amount,
		rec.SourceType,
		dateArg(rec.DateReceived),
		rec.ClientName,
		rec.Description,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertIncome: %w", err)
	}
	return nil
}

// GetIncome implements store.IncomeRepository.
func (s *Store) GetIncome(ctx context.Context, userID, id string) (*domain.IncomeRecord, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_records WHERE id = $1 AND user_id = $2`

	rec, err := scanIncome(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("GetIncome: %w", notFound(err, "income record", id))
	}
	return rec, nil
}

// ListIncome implements store.IncomeRepository.
func (s *Store) ListIncome(ctx context.Context, userID string, r domain.DateRange) ([]*domain.IncomeRecord, error) {
	query := `
		SELECT ` + incomeColumns + `
		FROM income_records
		WHERE user_id = $1
		  AND ($2::date IS NULL OR date_received >= $2)
		  AND ($3::date IS NULL OR date_received <= $3)
		ORDER BY date_received, created_at`

	from, to := rangeArgs(r)
	rows, err := s.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ListIncome: query: %w", err)
	}
	defer rows.Close()

	var result []*domain.IncomeRecord
	for rows.Next() {
		rec, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("ListIncome: scan: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListIncome: rows: %w", err)
	}
	return result, nil
}

// UpdateIncome implements store.IncomeRepository.
func (s *Store) UpdateIncome(ctx context.Context, rec *domain.IncomeRecord) error {
	query := `
		UPDATE income_records
		SET amount = $1, source_type = $2, date_received = $3, client_name = $4, description = $5
		WHERE id = $6 AND user_id = $7`

	tag, err := s.db.Exec(ctx, query,
		rec.Amount,
		rec.SourceType,
		dateArg(rec.DateReceived),
		rec.ClientName,
		rec.Description,
		rec.ID,
		rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("UpdateIncome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateIncome: %w", domain.NotFoundError("income record", rec.ID))
	}
	return nil
}

// DeleteIncome implements store.IncomeRepository.
func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM income_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteIncome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteIncome: %w", domain.NotFoundError("income record", id))
	}
	return nil
}

const expenseColumns = `id, user_id, amount, category, subcategory, date_incurred, is_tax_deductible, description, created_at`

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	var incurred time.Time
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Amount,
		&e.Category,
		&e.Subcategory,
		&incurred,
		&e.IsTaxDeductible,
		&e.Description,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.DateIncurred = civil.DateOf(incurred)
	return &e, nil
}

// InsertExpense implements store.ExpenseRepository.
func (s *Store) InsertExpense(ctx context.Context, e *domain.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.Amount,
		e.Category,
		e.Subcategory,
		dateArg(e.DateIncurred),
		e.IsTaxDeductible,
		e.Description,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertExpense: %w", err)
	}
	return nil
}

// GetExpense implements store.ExpenseRepository.
func (s *Store) GetExpense(ctx context.Context, userID, id string) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`

	e, err := scanExpense(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("GetExpense: %w", notFound(err, "expense", id))
	}
	return e, nil
}

// ListExpenses implements store.ExpenseRepository.
func (s *Store) ListExpenses(ctx context.Context, userID string, f store.ExpenseFilter) ([]*domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1
		  AND ($2::date IS NULL OR date_incurred >= $2)
		  AND ($3::date IS NULL OR date_incurred <= $3)
		  AND (NOT $4 OR is_tax_deductible)
		ORDER BY date_incurred, created_at`

	from, to := rangeArgs(f.Range)
	rows, err := s.db.Query(ctx, query, userID, from, to, f.DeductibleOnly)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: query: %w", err)
	}
	defer rows.Close()

	var result []*domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: scan: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpenses: rows: %w", err)
	}
	return result, nil
}

// UpdateExpense implements store.ExpenseRepository.
func (s *Store) UpdateExpense(ctx context.Context, e *domain.Expense) error {
	query := `
		UPDATE expenses
		SET amount = $1, category = $2, subcategory = $3, date_incurred = $4,
		    is_tax_deductible = $5, description = $6
		WHERE id = $7 AND user_id = $8`

	tag, err := s.db.Exec(ctx, query,
		e.Amount,
		e.Category,
		e.Subcategory,
		dateArg(e.DateIncurred),
		e.IsTaxDeductible,
		e.Description,
		e.ID,
		e.UserID,
	)
	if err != nil {
		return fmt.Errorf("UpdateExpense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateExpense: %w", domain.NotFoundError("expense", e.ID))
	}
	return nil
}

// DeleteExpense implements store.ExpenseRepository.
func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteExpense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteExpense: %w", domain.NotFoundError("expense", id))
	}
	return nil
}
