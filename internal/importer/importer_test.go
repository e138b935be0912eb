package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/store"
	"github.com/dvloznov/financr/internal/store/inmemory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockParser implements Parser.
type MockParser struct {
	ParseStatementFunc func(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error)
}

func (m *MockParser) ParseStatement(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
	if m.ParseStatementFunc != nil {
		return m.ParseStatementFunc(ctx, pdfBytes)
	}
	return nil, nil
}

// MockStorage implements gcs.StorageService.
type MockStorage struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockStorage) Upload(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	return nil
}

func (m *MockStorage) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uri)
	}
	return nil, nil
}

func statementRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"date": "2024-03-01", "description": "ACME PAYROLL", "amount": json.Number("5000.00"), "source_type": "Salary", "client_name": "Acme"},
		{"date": "2024-03-02", "description": "ADOBE", "amount": json.Number("-54.99"), "category": "Software", "subcategory": nil, "tax_deductible": true},
		{"date": "2024-03-03", "description": "TESCO", "amount": json.Number("-20.10"), "category": "Groceries", "tax_deductible": false},
		{"date": "2024-03-04", "description": "FX ADJ", "amount": json.Number("0")},
	}
}

func newTestImporter(parser Parser, storage *MockStorage) (*Importer, *inmemory.Store) {
	st := inmemory.New()
	var im *Importer
	if storage != nil {
		im = New(parser, storage, st, st, zerolog.Nop())
	} else {
		im = New(parser, nil, st, st, zerolog.Nop())
	}
	n := 0
	im.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	im.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	return im, st
}

func TestImportFile(t *testing.T) {
	var gotBytes []byte
	parser := &MockParser{
		ParseStatementFunc: func(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
			gotBytes = pdfBytes
			return statementRows(), nil
		},
	}
	im, st := newTestImporter(parser, nil)

	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	res, err := im.ImportFile(context.Background(), "u1", path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), gotBytes)
	assert.Equal(t, 1, res.Income)
	assert.Equal(t, 2, res.Expenses)
	assert.Equal(t, 1, res.Skipped)

	income, err := st.ListIncome(context.Background(), "u1", domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, "5000", income[0].Amount.String())
	assert.Equal(t, "Salary", income[0].SourceType)
	assert.Equal(t, "Acme", income[0].ClientName)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 1}, income[0].DateReceived)

	expenses, err := st.ListExpenses(context.Background(), "u1", store.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "54.99", expenses[0].Amount.String())
	assert.True(t, expenses[0].IsTaxDeductible)
	assert.Equal(t, "", expenses[0].Subcategory)
	assert.False(t, expenses[1].IsTaxDeductible)
}

func TestImportGCS(t *testing.T) {
	var gotURI string
	storage := &MockStorage{
		FetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			gotURI = uri
			return []byte("pdf"), nil
		},
	}
	parser := &MockParser{
		ParseStatementFunc: func(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
			return statementRows()[:1], nil
		},
	}
	im, _ := newTestImporter(parser, storage)

	res, err := im.ImportGCS(context.Background(), "u1", "gs://bucket/statements/march.pdf")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/statements/march.pdf", gotURI)
	assert.Equal(t, "gs://bucket/statements/march.pdf", res.Source)
	assert.Equal(t, 1, res.Income)
}

func TestImportGCS_Errors(t *testing.T) {
	im, _ := newTestImporter(&MockParser{}, nil)
	_, err := im.ImportGCS(context.Background(), "u1", "gs://bucket/x.pdf")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	im, _ = newTestImporter(&MockParser{}, &MockStorage{})
	_, err = im.ImportGCS(context.Background(), "u1", "https://example.com/x.pdf")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	im, _ = newTestImporter(&MockParser{}, &MockStorage{
		FetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return nil, errors.New("permission denied")
		},
	})
	_, err = im.ImportGCS(context.Background(), "u1", "gs://bucket/x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestImport_InvalidRowFailsWholeStatement(t *testing.T) {
	rows := statementRows()
	rows[2]["date"] = "03/03/2024"
	parser := &MockParser{
		ParseStatementFunc: func(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
			return rows, nil
		},
	}
	im, st := newTestImporter(parser, nil)

	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))

	_, err := im.ImportFile(context.Background(), "u1", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, err.Error(), "row 2")

	income, err := st.ListIncome(context.Background(), "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, income)
}

// flakyExpenses fails every InsertExpense after the first okInserts calls.
type flakyExpenses struct {
	*inmemory.Store
	okInserts int
	calls     int
}

func (f *flakyExpenses) InsertExpense(ctx context.Context, e *domain.Expense) error {
	f.calls++
	if f.calls > f.okInserts {
		return errors.New("store unavailable")
	}
	return f.Store.InsertExpense(ctx, e)
}

func TestImport_FailedInsertLeavesNothingBehind(t *testing.T) {
	parser := &MockParser{
		ParseStatementFunc: func(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
			return statementRows(), nil
		},
	}
	im, st := newTestImporter(parser, &MockStorage{
		FetchFunc: func(ctx context.Context, uri string) ([]byte, error) { return []byte("pdf"), nil },
	})
	im.expenses = &flakyExpenses{Store: st, okInserts: 1}

	_, err := im.ImportGCS(context.Background(), "u1", "gs://bucket/statement.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importBytes: insert expense: store unavailable")

	income, err := st.ListIncome(context.Background(), "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, income)
	expenses, err := st.ListExpenses(context.Background(), "u1", store.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, expenses)

	// A retry against a healthy store imports each row exactly once.
	im.expenses = st
	res, err := im.ImportGCS(context.Background(), "u1", "gs://bucket/statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Income)
	assert.Equal(t, 2, res.Expenses)

	income, err = st.ListIncome(context.Background(), "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, income, 1)
	expenses, err = st.ListExpenses(context.Background(), "u1", store.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, expenses, 2)
}

func TestImport_ParserError(t *testing.T) {
	parser := &MockParser{
		ParseStatementFunc: func(ctx context.Context, pdfBytes []byte) ([]map[string]interface{}, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	im, _ := newTestImporter(parser, &MockStorage{})

	_, err := im.ImportGCS(context.Background(), "u1", "gs://b/x.pdf")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}

func TestTransformRows_FieldErrors(t *testing.T) {
	newID := func() string { return "x" }
	now := time.Now()

	tests := []struct {
		name string
		row  map[string]interface{}
		want string
	}{
		{name: "missing date", row: map[string]interface{}{"amount": json.Number("1")}, want: `missing required field "date"`},
		{name: "missing amount", row: map[string]interface{}{"date": "2024-01-01"}, want: `missing required field "amount"`},
		{name: "bad amount", row: map[string]interface{}{"date": "2024-01-01", "amount": "abc"}, want: "invalid number"},
		{name: "unknown category", row: map[string]interface{}{"date": "2024-01-01", "amount": -3.0, "category": "Yachts"}, want: "invalid category"},
		{name: "unknown source type", row: map[string]interface{}{"date": "2024-01-01", "amount": 3.0, "source_type": "Lottery"}, want: "invalid source type"},
		{name: "bad bool", row: map[string]interface{}{"date": "2024-01-01", "amount": -1.5, "tax_deductible": "yes"}, want: "want bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transformRows("u1", []map[string]interface{}{tt.row}, now, newID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 0")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTransformRows_Defaults(t *testing.T) {
	rows := []map[string]interface{}{
		{"date": "2024-01-01", "amount": 100.0},
		{"date": "2024-01-02", "amount": "-1,250.00"},
	}
	b, err := transformRows("u1", rows, time.Now(), func() string { return "x" })
	require.NoError(t, err)
	require.Len(t, b.income, 1)
	require.Len(t, b.expenses, 1)
	assert.Equal(t, "Other", b.income[0].SourceType)
	assert.Equal(t, "Uncategorized", b.expenses[0].Category)
	assert.Equal(t, "1250", b.expenses[0].Amount.String())
	assert.False(t, b.expenses[0].IsTaxDeductible)
}
