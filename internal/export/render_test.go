package export

import (
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRender_Lines(t *testing.T) {
	r := domain.NewTaxReport("r1", "u1", 2024, time.Now())
	r.W2Wages = decimal.NewFromInt(2000)

	out := Render(r)

	assert.Contains(t, out, "W-2 Wages: $2000.00\n")
	assert.Contains(t, out, "TOTAL TAX LIABILITY: $0.00\n")
	assert.Contains(t, out, "Tax Year: 2024\n")
	assert.Contains(t, out, "Filing Status: Single\n")
	assert.Contains(t, out, "estimates")
}

func TestRender_EveryField(t *testing.T) {
	r := domain.NewTaxReport("r1", "u1", 2024, time.Now())
	r.MedicalExpenses = decimal.RequireFromString("10.005")

	out := Render(r)

	for _, f := range domain.AmountFields() {
		assert.Contains(t, out, f.Label()+": $", "field %s", f)
	}
	assert.Contains(t, out, "Medical Expenses: $10.01\n")
}

func TestRender_NilReport(t *testing.T) {
	out := Render(nil)

	assert.Contains(t, out, "W-2 Wages: $0.00\n")
	assert.Contains(t, out, "TOTAL TAX LIABILITY: $0.00\n")
	assert.Equal(t, len(domain.AmountFields()), strings.Count(out, ": $0.00\n"))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		report string
		want   string
	}{
		{name: "punctuation collapses", year: 2024, report: "Acme LLC / 2024", want: "tax-report-2024-acme-llc-2024.txt"},
		{name: "default name", year: 2023, report: "2023 Tax Report", want: "tax-report-2023-2023-tax-report.txt"},
		{name: "trimmed dashes", year: 2024, report: "  --Side Hustle!!", want: "tax-report-2024-side-hustle.txt"},
		{name: "no alphanumerics", year: 2024, report: "***", want: "tax-report-2024-report.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &domain.TaxReport{TaxYear: tt.year, Name: tt.report}
			assert.Equal(t, tt.want, Filename(r))
		})
	}
}
