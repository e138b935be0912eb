package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/financr/internal/domain"
	"google.golang.org/api/iterator"
)

// TaxReportRow mirrors the tax_reports table.
type TaxReportRow struct {
	ID                   string `bigquery:"id"`                     // REQUIRED
	UserID               string `bigquery:"user_id"`                // REQUIRED
	Name                 string `bigquery:"name"`                   // REQUIRED
	TaxYear              int64  `bigquery:"tax_year"`               // REQUIRED
	FilingStatus         string `bigquery:"filing_status"`          // REQUIRED
	UseStandardDeduction bool   `bigquery:"use_standard_deduction"` // REQUIRED
	Status               string `bigquery:"status"`                 // REQUIRED

	W2Wages              *big.Rat `bigquery:"w2_wages"`
	SelfEmploymentIncome *big.Rat `bigquery:"self_employment_income"`
	RentalIncome         *big.Rat `bigquery:"rental_income"`
	DividendIncome       *big.Rat `bigquery:"dividend_income"`
	InterestIncome       *big.Rat `bigquery:"interest_income"`
	CapitalGains         *big.Rat `bigquery:"capital_gains"`
	OtherIncome          *big.Rat `bigquery:"other_income"`

	BusinessExpenses         *big.Rat `bigquery:"business_expenses"`
	VehicleExpenses          *big.Rat `bigquery:"vehicle_expenses"`
	HomeOfficeDeduction      *big.Rat `bigquery:"home_office_deduction"`
	HealthInsuranceDeduction *big.Rat `bigquery:"health_insurance_deduction"`
	RetirementContributions  *big.Rat `bigquery:"retirement_contributions"`
	CharitableContributions  *big.Rat `bigquery:"charitable_contributions"`
	MedicalExpenses          *big.Rat `bigquery:"medical_expenses"`
	StateLocalTaxes          *big.Rat `bigquery:"state_local_taxes"`
	OtherDeductions          *big.Rat `bigquery:"other_deductions"`

	GrossIncome         *big.Rat `bigquery:"gross_income"`
	AdjustedGrossIncome *big.Rat `bigquery:"adjusted_gross_income"`
	TaxableIncome       *big.Rat `bigquery:"taxable_income"`
	FederalTax          *big.Rat `bigquery:"federal_tax"`
	SelfEmploymentTax   *big.Rat `bigquery:"self_employment_tax"`
	TotalTaxLiability   *big.Rat `bigquery:"total_tax_liability"`

	CalculatedAt bigquery.NullTimestamp `bigquery:"calculated_at"` // NULLABLE
	CreatedAt    time.Time              `bigquery:"created_at"`    // REQUIRED
	UpdatedAt    time.Time              `bigquery:"updated_at"`    // REQUIRED
}

// amounts maps each amount column to its field in the row.
func (r *TaxReportRow) amounts() map[domain.Field]**big.Rat {
	return map[domain.Field]**big.Rat{
		domain.FieldW2Wages:                  &r.W2Wages,
		domain.FieldSelfEmploymentIncome:     &r.SelfEmploymentIncome,
		domain.FieldRentalIncome:             &r.RentalIncome,
		domain.FieldDividendIncome:           &r.DividendIncome,
		domain.FieldInterestIncome:           &r.InterestIncome,
		domain.FieldCapitalGains:             &r.CapitalGains,
		domain.FieldOtherIncome:              &r.OtherIncome,
		domain.FieldBusinessExpenses:         &r.BusinessExpenses,
		domain.FieldVehicleExpenses:          &r.VehicleExpenses,
		domain.FieldHomeOfficeDeduction:      &r.HomeOfficeDeduction,
		domain.FieldHealthInsuranceDeduction: &r.HealthInsuranceDeduction,
		domain.FieldRetirementContributions:  &r.RetirementContributions,
		domain.FieldCharitableContributions:  &r.CharitableContributions,
		domain.FieldMedicalExpenses:          &r.MedicalExpenses,
		domain.FieldStateLocalTaxes:          &r.StateLocalTaxes,
		domain.FieldOtherDeductions:          &r.OtherDeductions,
		domain.FieldGrossIncome:              &r.GrossIncome,
		domain.FieldAdjustedGrossIncome:      &r.AdjustedGrossIncome,
		domain.FieldTaxableIncome:            &r.TaxableIncome,
		domain.FieldFederalTax:               &r.FederalTax,
		domain.FieldSelfEmploymentTax:        &r.SelfEmploymentTax,
		domain.FieldTotalTaxLiability:        &r.TotalTaxLiability,
	}
}

// toDomain converts the row. NULL amounts read as zero.
func (r *TaxReportRow) toDomain() *domain.TaxReport {
	rep := &domain.TaxReport{
		ID:                   r.ID,
		UserID:               r.UserID,
		Name:                 r.Name,
		TaxYear:              int(r.TaxYear),
		FilingStatus:         domain.FilingStatus(r.FilingStatus),
		UseStandardDeduction: r.UseStandardDeduction,
		Status:               domain.ReportStatus(r.Status),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	for f, p := range r.amounts() {
		rep.SetAmount(f, fromRat(*p))
	}
	if r.CalculatedAt.Valid {
		at := r.CalculatedAt.Timestamp
		rep.CalculatedAt = &at
	}
	return rep
}

func reportColumns() []string {
	cols := []string{"id", "user_id", "name", "tax_year", "filing_status", "use_standard_deduction", "status"}
	for _, f := range domain.AmountFields() {
		cols = append(cols, string(f))
	}
	return append(cols, "calculated_at", "created_at", "updated_at")
}

func calculatedAtParam(at *time.Time) bigquery.NullTimestamp {
	if at == nil {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: *at, Valid: true}
}

// reportParams returns one parameter per column, named after the column.
func reportParams(r *domain.TaxReport) []bigquery.QueryParameter {
	params := []bigquery.QueryParameter{
		{Name: "id", Value: r.ID},
		{Name: "user_id", Value: r.UserID},
		{Name: "name", Value: r.Name},
		{Name: "tax_year", Value: int64(r.TaxYear)},
		{Name: "filing_status", Value: string(r.FilingStatus)},
		{Name: "use_standard_deduction", Value: r.UseStandardDeduction},
		{Name: "status", Value: string(r.Status)},
	}
	for _, f := range domain.AmountFields() {
		params = append(params, bigquery.QueryParameter{Name: string(f), Value: toRat(r.Amount(f))})
	}
	return append(params,
		bigquery.QueryParameter{Name: "calculated_at", Value: calculatedAtParam(r.CalculatedAt)},
		bigquery.QueryParameter{Name: "created_at", Value: r.CreatedAt},
		bigquery.QueryParameter{Name: "updated_at", Value: r.UpdatedAt},
	)
}

func insertReportSQL(table string) string {
	cols := reportColumns()
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = "@" + c
	}
	return fmt.Sprintf(`INSERT %s (%s) VALUES (%s)`,
		table, strings.Join(cols, ", "), strings.Join(named, ", "))
}

// updateReportSQL sets every column except id, user_id and created_at.
func updateReportSQL(table string) string {
	var sets []string
	for _, c := range reportColumns() {
		switch c {
		case "id", "user_id", "created_at":
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = @%s", c, c))
	}
	return fmt.Sprintf(`UPDATE %s SET %s WHERE id = @id AND user_id = @user_id`,
		table, strings.Join(sets, ", "))
}

// InsertTaxReport implements store.TaxReportRepository.
func (s *Store) InsertTaxReport(ctx context.Context, r *domain.TaxReport) error {
	if _, err := s.runDML(ctx, insertReportSQL(s.table(reportsTable)), reportParams(r)); err != nil {
		return fmt.Errorf("InsertTaxReport: %w", err)
	}
	return nil
}

// GetTaxReport implements store.TaxReportRepository.
func (s *Store) GetTaxReport(ctx context.Context, userID, id string) (*domain.TaxReport, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = @id AND user_id = @user_id LIMIT 1`,
		strings.Join(reportColumns(), ", "), s.table(reportsTable))

	rows, err := s.queryReports(ctx, sql, []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("GetTaxReport: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("GetTaxReport: %w", domain.NotFoundError("tax report", id))
	}
	return rows[0], nil
}

// ListTaxReports implements store.TaxReportRepository.
func (s *Store) ListTaxReports(ctx context.Context, userID string) ([]*domain.TaxReport, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = @user_id ORDER BY created_at DESC, id DESC`,
		strings.Join(reportColumns(), ", "), s.table(reportsTable))

	rows, err := s.queryReports(ctx, sql, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("ListTaxReports: %w", err)
	}
	return rows, nil
}

func (s *Store) queryReports(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]*domain.TaxReport, error) {
	it, err := s.read(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	var rows []*domain.TaxReport
	for {
		var row TaxReportRow
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

// UpdateTaxReport implements store.TaxReportRepository.
func (s *Store) UpdateTaxReport(ctx context.Context, r *domain.TaxReport) error {
	n, err := s.runDML(ctx, updateReportSQL(s.table(reportsTable)), dropParam(reportParams(r), "created_at"))
	if err != nil {
		return fmt.Errorf("UpdateTaxReport: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateTaxReport: %w", domain.NotFoundError("tax report", r.ID))
	}
	return nil
}

// SaveCalculation implements store.TaxReportRepository.
func (s *Store) SaveCalculation(ctx context.Context, userID, id string, d domain.Derived, at time.Time) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET gross_income = @gross_income,
		    adjusted_gross_income = @adjusted_gross_income,
		    taxable_income = @taxable_income,
		    federal_tax = @federal_tax,
		    self_employment_tax = @self_employment_tax,
		    total_tax_liability = @total_tax_liability,
		    status = @status,
		    calculated_at = @at,
		    updated_at = @at
		WHERE id = @id AND user_id = @user_id
	`, s.table(reportsTable))

	n, err := s.runDML(ctx, sql, []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userID},
		{Name: "gross_income", Value: toRat(d.GrossIncome)},
		{Name: "adjusted_gross_income", Value: toRat(d.AdjustedGrossIncome)},
		{Name: "taxable_income", Value: toRat(d.TaxableIncome)},
		{Name: "federal_tax", Value: toRat(d.FederalTax)},
		{Name: "self_employment_tax", Value: toRat(d.SelfEmploymentTax)},
		{Name: "total_tax_liability", Value: toRat(d.TotalTaxLiability)},
		{Name: "status", Value: string(domain.StatusCalculated)},
		{Name: "at", Value: at},
	})
	if err != nil {
		return fmt.Errorf("SaveCalculation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("SaveCalculation: %w", domain.NotFoundError("tax report", id))
	}
	return nil
}

// DeleteTaxReport implements store.TaxReportRepository.
func (s *Store) DeleteTaxReport(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, "DeleteTaxReport", reportsTable, "tax report", userID, id)
}
