package importer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/shopspring/decimal"
)

// batch is the set of records built from one statement.
type batch struct {
	income   []*domain.IncomeRecord
	expenses []*domain.Expense
	skipped  int
}

var statementTaxonomy = newTaxonomy()

// transformRows converts model rows into records. Money in becomes an income
// record, money out becomes an expense carrying the absolute amount, and zero
// amounts are skipped. Any invalid row fails the whole batch.
func transformRows(userID string, rows []map[string]interface{}, now time.Time, newID func() string) (*batch, error) {
	b := &batch{}

	for i, obj := range rows {
		dateStr, err := getStringField(obj, "date", true)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		date, err := civil.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i, dateStr, err)
		}
		amount, err := getDecimalField(obj, "amount")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		amount = amount.Round(2)
		desc, err := getStringField(obj, "description", false)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		switch amount.Sign() {
		case 0:
			b.skipped++

		case 1:
			sourceType, err := getStringField(obj, "source_type", false)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			if sourceType == "" {
				sourceType = "Other"
			}
			sourceType, err = statementTaxonomy.SourceType(sourceType)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			client, err := getStringField(obj, "client_name", false)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rec := &domain.IncomeRecord{
				ID:           newID(),
				UserID:       userID,
				Amount:       amount,
				SourceType:   sourceType,
				DateReceived: date,
				ClientName:   client,
				Description:  desc,
				CreatedAt:    now,
			}
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			b.income = append(b.income, rec)

		default:
			category, err := getStringField(obj, "category", false)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			if category == "" {
				category = "Uncategorized"
			}
			subcategory, err := getStringField(obj, "subcategory", false)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			category, subcategory, err = statementTaxonomy.Category(category, subcategory)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			deductible, err := getBoolField(obj, "tax_deductible")
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			e := &domain.Expense{
				ID:              newID(),
				UserID:          userID,
				Amount:          amount.Abs(),
				Category:        category,
				Subcategory:     subcategory,
				DateIncurred:    date,
				IsTaxDeductible: deductible,
				Description:     desc,
				CreatedAt:       now,
			}
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			b.expenses = append(b.expenses, e)
		}
	}

	return b, nil
}

// getStringField reads a string field. Missing and null values read as "".
func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, want string", key, v)
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return s, nil
}

// getDecimalField reads a required amount given as a JSON number or string.
func getDecimalField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: invalid number %q", key, val)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(val), ",", ""))
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: invalid number %q", key, val)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q is %T, want number", key, v)
	}
}

// getBoolField reads an optional boolean. Missing and null values read as false.
func getBoolField(m map[string]interface{}, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q is %T, want bool", key, v)
	}
	return b, nil
}
