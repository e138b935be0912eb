package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain integer", input: "1200", want: "1200"},
		{name: "thousands separator", input: "1,200.50", want: "1200.5"},
		{name: "dollar sign and spaces", input: "  $75.10 ", want: "75.1"},
		{name: "zero", input: "0", want: "0"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "letters", input: "12abc", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "trailing zeros beyond cents", input: "10.500", want: "10.5"},
		{name: "largest amount", input: "999999999999.99", want: "999999999999.99"},
		{name: "exponent", input: "1e30", wantErr: true},
		{name: "upper case exponent", input: "5E2", wantErr: true},
		{name: "fraction of a cent", input: "0.001", wantErr: true},
		{name: "too large", input: "1000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount("w2_wages", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestReportPatch_UnmarshalJSON(t *testing.T) {
	var p ReportPatch
	err := json.Unmarshal([]byte(`{"w2_wages":"2,000.00","rental_income":150.25,"filing_status":"head_of_household","use_standard_deduction":false}`), &p)
	require.NoError(t, err)

	require.NotNil(t, p.FilingStatus)
	assert.Equal(t, FilingHeadOfHousehold, *p.FilingStatus)
	require.NotNil(t, p.UseStandardDeduction)
	assert.False(t, *p.UseStandardDeduction)
	assert.Equal(t, "2000", p.Amounts[FieldW2Wages].String())
	assert.Equal(t, "150.25", p.Amounts[FieldRentalIncome].String())
	assert.Nil(t, p.Name)
	assert.Nil(t, p.TaxYear)
}

func TestReportPatch_UnmarshalJSONRejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "unknown key", body: `{"bonus":"1"}`, field: "bonus"},
		{name: "malformed amount", body: `{"w2_wages":"lots"}`, field: "w2_wages"},
		{name: "negative amount", body: `{"medical_expenses":-10}`, field: "medical_expenses"},
		{name: "exponent string", body: `{"w2_wages":"1e30"}`, field: "w2_wages"},
		{name: "exponent number", body: `{"w2_wages":1e30}`, field: "w2_wages"},
		{name: "sub-cent amount", body: `{"other_income":"0.001"}`, field: "other_income"},
		{name: "amount beyond column limit", body: `{"capital_gains":1000000000000}`, field: "capital_gains"},
		{name: "year as string", body: `{"tax_year":"2024"}`, field: "tax_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ReportPatch
			err := json.Unmarshal([]byte(tt.body), &p)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestReportPatch_Validate(t *testing.T) {
	year := 1850
	status := FilingStatus("widowed")
	blank := "  "

	tests := []struct {
		name  string
		patch ReportPatch
		field string
	}{
		{name: "implausible year", patch: ReportPatch{TaxYear: &year}, field: "tax_year"},
		{name: "unknown filing status", patch: ReportPatch{FilingStatus: &status}, field: "filing_status"},
		{name: "blank name", patch: ReportPatch{Name: &blank}, field: "name"},
		{
			name:  "derived field",
			patch: ReportPatch{Amounts: map[Field]decimal.Decimal{FieldFederalTax: decimal.NewFromInt(1)}},
			field: "federal_tax",
		},
		{
			name:  "fraction of a cent",
			patch: ReportPatch{Amounts: map[Field]decimal.Decimal{FieldW2Wages: decimal.RequireFromString("0.001")}},
			field: "w2_wages",
		},
		{
			name:  "beyond column limit",
			patch: ReportPatch{Amounts: map[Field]decimal.Decimal{FieldW2Wages: decimal.New(1, 30)}},
			field: "w2_wages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestReportPatch_Apply(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("bucket change marks stale", func(t *testing.T) {
		r := NewTaxReport("r1", "u1", 2024, now)
		var p ReportPatch
		p.SetAmount(FieldW2Wages, decimal.NewFromInt(2000))

		assert.True(t, p.Apply(r))
		assert.Equal(t, "2000", r.W2Wages.String())
	})

	t.Run("same value is not stale", func(t *testing.T) {
		r := NewTaxReport("r1", "u1", 2024, now)
		r.W2Wages = decimal.NewFromInt(2000)
		var p ReportPatch
		p.SetAmount(FieldW2Wages, decimal.RequireFromString("2000.00"))

		assert.False(t, p.Apply(r))
	})

	t.Run("rename is not stale", func(t *testing.T) {
		r := NewTaxReport("r1", "u1", 2024, now)
		name := " Acme LLC "
		p := ReportPatch{Name: &name}

		assert.False(t, p.Apply(r))
		assert.Equal(t, "Acme LLC", r.Name)
	})

	t.Run("deduction method change is stale", func(t *testing.T) {
		r := NewTaxReport("r1", "u1", 2024, now)
		itemize := false
		p := ReportPatch{UseStandardDeduction: &itemize}

		assert.True(t, p.Apply(r))
		assert.False(t, r.UseStandardDeduction)
	})
}

func TestNewTaxReport(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewTaxReport("r1", "u1", 2024, now)

	assert.Equal(t, "2024 Tax Report", r.Name)
	assert.Equal(t, FilingSingle, r.FilingStatus)
	assert.True(t, r.UseStandardDeduction)
	assert.Equal(t, StatusDraft, r.Status)
	for _, f := range AmountFields() {
		assert.True(t, r.Amount(f).IsZero(), "field %s", f)
	}
}

func TestTaxReport_InvalidateDerived(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewTaxReport("r1", "u1", 2024, now)
	r.W2Wages = decimal.NewFromInt(50000)
	r.ApplyDerived(Derived{
		GrossIncome:       decimal.NewFromInt(50000),
		FederalTax:        decimal.NewFromInt(4000),
		TotalTaxLiability: decimal.NewFromInt(4000),
	}, now)
	require.Equal(t, StatusCalculated, r.Status)
	require.NotNil(t, r.CalculatedAt)

	r.InvalidateDerived()

	assert.Equal(t, StatusDraft, r.Status)
	assert.Nil(t, r.CalculatedAt)
	assert.Equal(t, "50000", r.W2Wages.String())
	for _, f := range DerivedFields {
		assert.True(t, r.Amount(f).IsZero(), "field %s", f)
	}
}

func TestTaxYearWindow(t *testing.T) {
	w := TaxYearWindow(2024)

	assert.Equal(t, "2024-01-01", w.From.String())
	assert.Equal(t, "2024-12-31", w.To.String())
	assert.True(t, w.Contains(w.From))
	assert.True(t, w.Contains(w.To))
	assert.False(t, w.Contains(w.To.AddDays(1)))
	assert.False(t, w.Contains(w.From.AddDays(-1)))
}
