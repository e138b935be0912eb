package tax

import (
	"github.com/dvloznov/financr/internal/domain"
	"github.com/shopspring/decimal"
)

// PopulatedFields are the buckets a categorizer can feed. Capital gains,
// retirement contributions and state and local taxes are entered by hand.
var PopulatedFields = []domain.Field{
	domain.FieldW2Wages,
	domain.FieldSelfEmploymentIncome,
	domain.FieldRentalIncome,
	domain.FieldDividendIncome,
	domain.FieldInterestIncome,
	domain.FieldOtherIncome,
	domain.FieldBusinessExpenses,
	domain.FieldVehicleExpenses,
	domain.FieldHomeOfficeDeduction,
	domain.FieldHealthInsuranceDeduction,
	domain.FieldCharitableContributions,
	domain.FieldMedicalExpenses,
	domain.FieldOtherDeductions,
}

// Totals holds one summed amount per bucket.
type Totals map[domain.Field]decimal.Decimal

// NewTotals returns totals with every bucket present at zero.
func NewTotals() Totals {
	t := make(Totals, len(domain.IncomeFields)+len(domain.DeductionFields))
	for _, f := range domain.BucketFields() {
		t[f] = decimal.Zero
	}
	return t
}

// Get returns the total for f, zero when absent.
func (t Totals) Get(f domain.Field) decimal.Decimal {
	return t[f]
}

func (t Totals) add(f domain.Field, amount decimal.Decimal) {
	t[f] = t[f].Add(amount)
}

// Patch returns a report patch carrying the categorizer-fed buckets.
func (t Totals) Patch() domain.ReportPatch {
	var p domain.ReportPatch
	for _, f := range PopulatedFields {
		p.SetAmount(f, t.Get(f))
	}
	return p
}

// Aggregate categorizes the records dated inside window and sums them per
// bucket. Non-deductible expenses are skipped. Amounts are not rounded.
func Aggregate(income []*domain.IncomeRecord, expenses []*domain.Expense, window domain.DateRange) Totals {
	totals := NewTotals()

	for _, rec := range income {
		if rec == nil || !window.Contains(rec.DateReceived) {
			continue
		}
		totals.add(CategorizeIncome(rec.SourceType), rec.Amount)
	}

	for _, exp := range expenses {
		if exp == nil || !window.Contains(exp.DateIncurred) {
			continue
		}
		bucket, ok := CategorizeExpense(exp)
		if !ok {
			continue
		}
		totals.add(bucket, exp.Amount)
	}

	return totals
}
