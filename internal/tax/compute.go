package tax

import (
	"fmt"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/shopspring/decimal"
)

// Compute derives the tax figures of r from its buckets using table. Every
// intermediate keeps full precision; results are rounded to cents.
func Compute(r *domain.TaxReport, table *TaxTable) (domain.Derived, error) {
	if r == nil {
		return domain.Derived{}, fmt.Errorf("Compute: nil report")
	}
	if table == nil {
		return domain.Derived{}, fmt.Errorf("Compute: no tax table for %d", r.TaxYear)
	}
	brackets, ok := table.Brackets[r.FilingStatus]
	if !ok {
		return domain.Derived{}, fmt.Errorf("Compute: no brackets for %s in %d", r.FilingStatus, table.Year)
	}

	gross := decimal.Zero
	for _, f := range domain.IncomeFields {
		gross = gross.Add(r.Amount(f))
	}

	scheduleC := r.BusinessExpenses.Add(r.VehicleExpenses).Add(r.HomeOfficeDeduction)
	netSE := nonNegative(r.SelfEmploymentIncome.Sub(scheduleC))
	seTax := netSE.Mul(table.SEEarningsFactor).Mul(table.SETaxRate)

	adjustments := scheduleC.
		Add(r.HealthInsuranceDeduction).
		Add(r.RetirementContributions).
		Add(seTax.Mul(table.SEDeductibleShare))
	agi := nonNegative(gross.Sub(adjustments))

	var deduction decimal.Decimal
	if r.UseStandardDeduction {
		deduction = table.StandardDeduction[r.FilingStatus]
	} else {
		deduction = itemized(r, agi, table)
	}
	taxable := nonNegative(agi.Sub(deduction))

	federal := bracketTax(taxable, brackets).Round(2)
	seTax = seTax.Round(2)

	return domain.Derived{
		GrossIncome:         gross.Round(2),
		AdjustedGrossIncome: agi.Round(2),
		TaxableIncome:       taxable.Round(2),
		FederalTax:          federal,
		SelfEmploymentTax:   seTax,
		TotalTaxLiability:   federal.Add(seTax),
	}, nil
}

func itemized(r *domain.TaxReport, agi decimal.Decimal, table *TaxTable) decimal.Decimal {
	medical := nonNegative(r.MedicalExpenses.Sub(agi.Mul(table.MedicalFloorRate)))
	salt := decimal.Min(r.StateLocalTaxes, table.SALTCap)
	return r.CharitableContributions.Add(medical).Add(salt).Add(r.OtherDeductions)
}

// bracketTax applies a progressive schedule to taxable income.
func bracketTax(taxable decimal.Decimal, brackets []Bracket) decimal.Decimal {
	total := decimal.Zero
	lower := decimal.Zero
	for _, b := range brackets {
		if !taxable.GreaterThan(lower) {
			break
		}
		upper := taxable
		if b.UpTo != nil && b.UpTo.LessThan(taxable) {
			upper = *b.UpTo
		}
		total = total.Add(upper.Sub(lower).Mul(b.Rate))
		if b.UpTo == nil {
			break
		}
		lower = *b.UpTo
	}
	return total
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
