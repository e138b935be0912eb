package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/financr/internal/store"
)

// TaxCalculator recomputes the derived fields of a stored report. It must
// never modify bucket fields.
type TaxCalculator interface {
	Calculate(ctx context.Context, userID, reportID string) error
}

// LocalCalculator computes derived fields in-process from operator supplied
// tax tables.
type LocalCalculator struct {
	reports store.TaxReportRepository
	tables  Tables
	now     func() time.Time
}

// NewLocalCalculator creates a calculator over the given repository and tables.
func NewLocalCalculator(reports store.TaxReportRepository, tables Tables) *LocalCalculator {
	return &LocalCalculator{
		reports: reports,
		tables:  tables,
		now:     time.Now,
	}
}

// Calculate loads the report, computes its derived fields and saves them.
func (c *LocalCalculator) Calculate(ctx context.Context, userID, reportID string) error {
	report, err := c.reports.GetTaxReport(ctx, userID, reportID)
	if err != nil {
		return fmt.Errorf("Calculate: load report: %w", err)
	}

	table, err := c.tables.ForYear(report.TaxYear)
	if err != nil {
		return fmt.Errorf("Calculate: %w", err)
	}

	derived, err := Compute(report, table)
	if err != nil {
		return fmt.Errorf("Calculate: %w", err)
	}

	if err := c.reports.SaveCalculation(ctx, userID, reportID, derived, c.now().UTC()); err != nil {
		return fmt.Errorf("Calculate: save: %w", err)
	}
	return nil
}
