// Package tax maps logged income and expenses onto tax-report buckets and
// computes the derived fields of a report.
package tax

import (
	"strings"

	"github.com/dvloznov/financr/internal/domain"
)

// keywordRule maps any of its keywords, matched as a lowercase substring, to a
// bucket. Rules are checked in slice order and the first hit wins.
type keywordRule struct {
	keywords []string
	bucket   domain.Field
}

var incomeRules = []keywordRule{
	{keywords: []string{"salary", "w-2"}, bucket: domain.FieldW2Wages},
	{keywords: []string{"consulting", "freelance", "1099-nec", "schedule c"}, bucket: domain.FieldSelfEmploymentIncome},
	{keywords: []string{"rental income", "schedule e"}, bucket: domain.FieldRentalIncome},
	{keywords: []string{"dividends"}, bucket: domain.FieldDividendIncome},
	{keywords: []string{"interest"}, bucket: domain.FieldInterestIncome},
}

// splitRule sends a category to a specific bucket when the subcategory
// mentions one of subKeywords, and to business expenses otherwise.
type splitRule struct {
	categories  []string
	subKeywords []string
	bucket      domain.Field
}

var splitRules = []splitRule{
	{
		categories:  []string{"transportation", "travel"},
		subKeywords: []string{"vehicle", "gas", "mileage"},
		bucket:      domain.FieldVehicleExpenses,
	},
	{
		categories:  []string{"utilities"},
		subKeywords: []string{"home", "office"},
		bucket:      domain.FieldHomeOfficeDeduction,
	},
	{
		categories:  []string{"insurance"},
		subKeywords: []string{"health"},
		bucket:      domain.FieldHealthInsuranceDeduction,
	},
}

var deductionRules = []keywordRule{
	{
		keywords: []string{"office supplies", "professional services", "software", "equipment", "business meals", "training"},
		bucket:   domain.FieldBusinessExpenses,
	},
	{keywords: []string{"charitable", "donations"}, bucket: domain.FieldCharitableContributions},
	{keywords: []string{"medical", "healthcare"}, bucket: domain.FieldMedicalExpenses},
}

// CategorizeIncome returns the income bucket for a source type. Unrecognised
// or empty source types land in other income.
func CategorizeIncome(sourceType string) domain.Field {
	if bucket, ok := matchRules(incomeRules, sourceType); ok {
		return bucket
	}
	return domain.FieldOtherIncome
}

// CategorizeDeduction returns the deduction bucket for an expense category
// and optional subcategory. Unrecognised or empty categories land in other
// deductions.
func CategorizeDeduction(category, subcategory string) domain.Field {
	cat := normalize(category)
	if cat == "" {
		return domain.FieldOtherDeductions
	}

	for _, rule := range splitRules {
		if !containsAny(cat, rule.categories) {
			continue
		}
		if containsAny(normalize(subcategory), rule.subKeywords) {
			return rule.bucket
		}
		return domain.FieldBusinessExpenses
	}

	if bucket, ok := matchRules(deductionRules, cat); ok {
		return bucket
	}
	return domain.FieldOtherDeductions
}

// CategorizeExpense returns the deduction bucket for e. Expenses that are not
// tax deductible report false and take part in no bucket.
func CategorizeExpense(e *domain.Expense) (domain.Field, bool) {
	if e == nil || !e.IsTaxDeductible {
		return "", false
	}
	return CategorizeDeduction(e.Category, e.Subcategory), true
}

func matchRules(rules []keywordRule, value string) (domain.Field, bool) {
	v := normalize(value)
	if v == "" {
		return "", false
	}
	for _, rule := range rules {
		if containsAny(v, rule.keywords) {
			return rule.bucket, true
		}
	}
	return "", false
}

func containsAny(value string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(value, k) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
