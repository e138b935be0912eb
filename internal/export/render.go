// Package export renders tax reports as plain text and delivers them to
// storage sinks.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/financr/internal/domain"
)

const disclaimer = "These figures are estimates for planning purposes only and are not a filed tax return.\n" +
	"Consult a qualified tax professional before filing."

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Render formats r as a flat text document. A nil report renders as an empty
// report with every amount at 0.00.
func Render(r *domain.TaxReport) string {
	if r == nil {
		r = &domain.TaxReport{}
	}

	var b strings.Builder
	fmt.Fprintln(&b, "TAX ESTIMATE REPORT")
	fmt.Fprintln(&b, strings.Repeat("=", 40))
	fmt.Fprintf(&b, "Report: %s\n", r.Name)
	fmt.Fprintf(&b, "Tax Year: %d\n", r.TaxYear)
	fmt.Fprintf(&b, "Filing Status: %s\n", r.FilingStatus.Label())
	fmt.Fprintf(&b, "Deduction Method: %s\n", deductionMethod(r))
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	if r.CalculatedAt != nil {
		fmt.Fprintf(&b, "Calculated At: %s\n", r.CalculatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	writeSection(&b, "INCOME", r, domain.IncomeFields)
	writeSection(&b, "DEDUCTIONS", r, domain.DeductionFields)
	writeSection(&b, "TAX SUMMARY", r, domain.DerivedFields)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, disclaimer)
	return b.String()
}

func writeSection(b *strings.Builder, title string, r *domain.TaxReport, fields []domain.Field) {
	fmt.Fprintln(b)
	fmt.Fprintln(b, title)
	fmt.Fprintln(b, strings.Repeat("-", len(title)))
	for _, f := range fields {
		fmt.Fprintf(b, "%s: $%s\n", f.Label(), r.Amount(f).StringFixed(2))
	}
}

func deductionMethod(r *domain.TaxReport) string {
	if r.UseStandardDeduction {
		return "Standard"
	}
	return "Itemized"
}

// Filename returns tax-report-<year>-<slug>.txt for r.
func Filename(r *domain.TaxReport) string {
	if r == nil {
		return "tax-report-0-report.txt"
	}
	return fmt.Sprintf("tax-report-%d-%s.txt", r.TaxYear, slug(r.Name))
}

func slug(name string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "report"
	}
	return s
}
