package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/jackc/pgx/v5"
)

var reportMetaColumns = []string{
	"id", "user_id", "name", "tax_year", "filing_status", "use_standard_deduction", "status",
}

var reportTimeColumns = []string{"calculated_at", "created_at", "updated_at"}

// reportColumns lists every tax_reports column in scan order.
func reportColumns() []string {
	cols := append([]string{}, reportMetaColumns...)
	for _, f := range domain.AmountFields() {
		cols = append(cols, string(f))
	}
	return append(cols, reportTimeColumns...)
}

// reportFields returns pointers to r's fields in reportColumns order.
func reportFields(r *domain.TaxReport) []any {
	dest := []any{
		&r.ID, &r.UserID, &r.Name, &r.TaxYear, &r.FilingStatus, &r.UseStandardDeduction, &r.Status,
	}
	for _, f := range domain.AmountFields() {
		dest = append(dest, r.AmountPtr(f))
	}
	return append(dest, &r.CalculatedAt, &r.CreatedAt, &r.UpdatedAt)
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func scanReport(row pgx.Row) (*domain.TaxReport, error) {
	var r domain.TaxReport
	if err := row.Scan(reportFields(&r)...); err != nil {
		return nil, err
	}
	return &r, nil
}

func selectReports() string {
	return `SELECT ` + strings.Join(reportColumns(), ", ") + ` FROM tax_reports`
}

// InsertTaxReport implements store.TaxReportRepository.
func (s *Store) InsertTaxReport(ctx context.Context, r *domain.TaxReport) error {
	cols := reportColumns()
	query := fmt.Sprintf(`INSERT INTO tax_reports (%s) VALUES (%s)`,
		strings.Join(cols, ", "), placeholders(1, len(cols)))

	if _, err := s.db.Exec(ctx, query, reportFields(r)...); err != nil {
		return fmt.Errorf("InsertTaxReport: %w", err)
	}
	return nil
}

// GetTaxReport implements store.TaxReportRepository.
func (s *Store) GetTaxReport(ctx context.Context, userID, id string) (*domain.TaxReport, error) {
	query := selectReports() + ` WHERE id = $1 AND user_id = $2`

	r, err := scanReport(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, fmt.Errorf("GetTaxReport: %w", notFound(err, "tax report", id))
	}
	return r, nil
}

// ListTaxReports implements store.TaxReportRepository.
func (s *Store) ListTaxReports(ctx context.Context, userID string) ([]*domain.TaxReport, error) {
	query := selectReports() + ` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListTaxReports: query: %w", err)
	}
	defer rows.Close()

	var result []*domain.TaxReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTaxReports: scan: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTaxReports: rows: %w", err)
	}
	return result, nil
}

// UpdateTaxReport implements store.TaxReportRepository. Every column except
// id, user_id and created_at is overwritten.
func (s *Store) UpdateTaxReport(ctx context.Context, r *domain.TaxReport) error {
	sets := []string{
		"name = $3", "tax_year = $4", "filing_status = $5", "use_standard_deduction = $6", "status = $7",
	}
	args := []any{r.ID, r.UserID, r.Name, r.TaxYear, r.FilingStatus, r.UseStandardDeduction, r.Status}
	for _, f := range domain.AmountFields() {
		args = append(args, r.Amount(f))
		sets = append(sets, fmt.Sprintf("%s = $%d", f, len(args)))
	}
	args = append(args, r.CalculatedAt)
	sets = append(sets, fmt.Sprintf("calculated_at = $%d", len(args)))
	args = append(args, r.UpdatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := `UPDATE tax_reports SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("UpdateTaxReport: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("UpdateTaxReport: %w", domain.NotFoundError("tax report", r.ID))
	}
	return nil
}

// SaveCalculation implements store.TaxReportRepository.
func (s *Store) SaveCalculation(ctx context.Context, userID, id string, d domain.Derived, at time.Time) error {
	query := `
		UPDATE tax_reports
		SET gross_income = $3, adjusted_gross_income = $4, taxable_income = $5,
		    federal_tax = $6, self_employment_tax = $7, total_tax_liability = $8,
		    status = $9, calculated_at = $10, updated_at = $10
		WHERE id = $1 AND user_id = $2`

	tag, err := s.db.Exec(ctx, query,
		id,
		userID,
		d.GrossIncome,
		d.AdjustedGrossIncome,
		d.TaxableIncome,
		d.FederalTax,
		d.SelfEmploymentTax,
		d.TotalTaxLiability,
		domain.StatusCalculated,
		at,
	)
	if err != nil {
		return fmt.Errorf("SaveCalculation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("SaveCalculation: %w", domain.NotFoundError("tax report", id))
	}
	return nil
}

// DeleteTaxReport implements store.TaxReportRepository.
func (s *Store) DeleteTaxReport(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tax_reports WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteTaxReport: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteTaxReport: %w", domain.NotFoundError("tax report", id))
	}
	return nil
}

// RemoteCalculator runs the calculate_tax_report stored procedure. The
// procedure owns the bracket logic and writes derived fields in place.
type RemoteCalculator struct {
	db DB
}

// NewRemoteCalculator creates a calculator on db.
func NewRemoteCalculator(db DB) *RemoteCalculator {
	return &RemoteCalculator{db: db}
}

// Calculate invokes the procedure for a report owned by userID.
func (c *RemoteCalculator) Calculate(ctx context.Context, userID, reportID string) error {
	query := `SELECT calculate_tax_report(id) FROM tax_reports WHERE id = $1 AND user_id = $2`

	tag, err := c.db.Exec(ctx, query, reportID, userID)
	if err != nil {
		return fmt.Errorf("Calculate: calculate_tax_report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("Calculate: %w", domain.NotFoundError("tax report", reportID))
	}
	return nil
}
