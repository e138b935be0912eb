package tax

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/shopspring/decimal"
)

// Bracket is one slice of a progressive schedule. UpTo is the inclusive upper
// bound of taxable income taxed at Rate; the top bracket leaves it nil.
type Bracket struct {
	UpTo *decimal.Decimal `json:"up_to,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// TaxTable carries the published parameters for one tax year. The service
// ships none; operators supply them in a JSON file.
type TaxTable struct {
	Year              int                                     `json:"year"`
	StandardDeduction map[domain.FilingStatus]decimal.Decimal `json:"standard_deduction"`
	Brackets          map[domain.FilingStatus][]Bracket       `json:"brackets"`
	SETaxRate         decimal.Decimal                         `json:"se_tax_rate"`
	SEEarningsFactor  decimal.Decimal                         `json:"se_earnings_factor"`
	SEDeductibleShare decimal.Decimal                         `json:"se_deductible_share"`
	MedicalFloorRate  decimal.Decimal                         `json:"medical_floor_rate"`
	SALTCap           decimal.Decimal                         `json:"salt_cap"`
}

// Validate checks that the table covers every filing status with a well
// formed schedule.
func (t *TaxTable) Validate() error {
	if err := domain.ValidateTaxYear(t.Year); err != nil {
		return fmt.Errorf("Validate: %w", err)
	}

	for _, status := range domain.FilingStatuses {
		std, ok := t.StandardDeduction[status]
		if !ok {
			return fmt.Errorf("Validate: year %d: missing standard deduction for %s", t.Year, status)
		}
		if std.IsNegative() {
			return fmt.Errorf("Validate: year %d: negative standard deduction for %s", t.Year, status)
		}
		if err := validateBrackets(t.Brackets[status]); err != nil {
			return fmt.Errorf("Validate: year %d: brackets for %s: %w", t.Year, status, err)
		}
	}

	for name, rate := range map[string]decimal.Decimal{
		"se_tax_rate":         t.SETaxRate,
		"se_earnings_factor":  t.SEEarningsFactor,
		"se_deductible_share": t.SEDeductibleShare,
		"medical_floor_rate":  t.MedicalFloorRate,
	} {
		if !isRate(rate) {
			return fmt.Errorf("Validate: year %d: %s must be between 0 and 1", t.Year, name)
		}
	}
	if t.SALTCap.IsNegative() {
		return fmt.Errorf("Validate: year %d: salt_cap must not be negative", t.Year)
	}
	return nil
}

func validateBrackets(brackets []Bracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("no brackets")
	}

	prev := decimal.Zero
	for i, b := range brackets {
		if !isRate(b.Rate) {
			return fmt.Errorf("bracket %d: rate must be between 0 and 1", i)
		}
		last := i == len(brackets)-1
		if last {
			if b.UpTo != nil {
				return fmt.Errorf("bracket %d: top bracket must not set up_to", i)
			}
			continue
		}
		if b.UpTo == nil {
			return fmt.Errorf("bracket %d: only the top bracket may omit up_to", i)
		}
		if !b.UpTo.GreaterThan(prev) {
			return fmt.Errorf("bracket %d: up_to must increase", i)
		}
		prev = *b.UpTo
	}
	return nil
}

func isRate(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

// Tables indexes tax tables by year.
type Tables map[int]*TaxTable

// ForYear returns the table for year.
func (ts Tables) ForYear(year int) (*TaxTable, error) {
	t, ok := ts[year]
	if !ok {
		return nil, fmt.Errorf("ForYear: no tax table for %d", year)
	}
	return t, nil
}

// Years returns the covered years in ascending order.
func (ts Tables) Years() []int {
	years := make([]int, 0, len(ts))
	for y := range ts {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// ParseTables decodes a JSON array of tax tables and validates each one.
func ParseTables(r io.Reader) (Tables, error) {
	var list []*TaxTable
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("ParseTables: decode: %w", err)
	}

	tables := make(Tables, len(list))
	for i, t := range list {
		if t == nil {
			return nil, fmt.Errorf("ParseTables: table %d is null", i)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("ParseTables: %w", err)
		}
		if _, dup := tables[t.Year]; dup {
			return nil, fmt.Errorf("ParseTables: duplicate table for %d", t.Year)
		}
		tables[t.Year] = t
	}
	return tables, nil
}

// LoadTables reads tax tables from a JSON file.
func LoadTables(path string) (Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadTables: open %s: %w", path, err)
	}
	defer f.Close()

	tables, err := ParseTables(f)
	if err != nil {
		return nil, fmt.Errorf("LoadTables: %s: %w", path, err)
	}
	return tables, nil
}
