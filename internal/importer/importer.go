// Package importer loads bank statement PDFs, has Gemini extract their
// transactions, and stores them as income records and expenses.
package importer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/dvloznov/financr/internal/gcs"
	"github.com/dvloznov/financr/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result summarises one import.
type Result struct {
	Source   string `json:"source"`
	Income   int    `json:"income"`
	Expenses int    `json:"expenses"`
	Skipped  int    `json:"skipped"`
}

// Importer stores the transactions of a statement for a user.
type Importer struct {
	parser   Parser
	storage  gcs.StorageService
	income   store.IncomeRepository
	expenses store.ExpenseRepository
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Importer. storage may be nil when only local files are imported.
func New(parser Parser, storage gcs.StorageService, income store.IncomeRepository, expenses store.ExpenseRepository, log zerolog.Logger) *Importer {
	return &Importer{
		parser:   parser,
		storage:  storage,
		income:   income,
		expenses: expenses,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ImportFile imports a statement from the local filesystem.
func (im *Importer) ImportFile(ctx context.Context, userID, path string) (*Result, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: read %s: %w", path, err)
	}
	return im.importBytes(ctx, userID, path, pdfBytes)
}

// ImportGCS imports a statement stored at a gs:// URI.
func (im *Importer) ImportGCS(ctx context.Context, userID, uri string) (*Result, error) {
	if im.storage == nil {
		return nil, fmt.Errorf("ImportGCS: %w", &domain.ValidationError{Field: "gcs_uri", Message: "cloud storage is not configured"})
	}
	if _, _, err := gcs.ParseURI(uri); err != nil {
		return nil, fmt.Errorf("ImportGCS: %w", &domain.ValidationError{Field: "gcs_uri", Message: err.Error()})
	}

	pdfBytes, err := im.storage.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("ImportGCS: %w", err)
	}
	return im.importBytes(ctx, userID, uri, pdfBytes)
}

func (im *Importer) importBytes(ctx context.Context, userID, source string, pdfBytes []byte) (*Result, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Message: "is required"}
	}

	log := im.log.With().Str("user_id", userID).Str("source", source).Logger()
	log.Info().Int("bytes", len(pdfBytes)).Msg("Parsing statement")

	rows, err := im.parser.ParseStatement(ctx, pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("importBytes: parse: %w", err)
	}

	b, err := transformRows(userID, rows, im.now().UTC(), im.newID)
	if err != nil {
		return nil, fmt.Errorf("importBytes: %w", &domain.ValidationError{Field: "statement", Message: err.Error()})
	}

	if err := im.insertBatch(ctx, userID, b, log); err != nil {
		return nil, fmt.Errorf("importBytes: %w", err)
	}

	res := &Result{
		Source:   source,
		Income:   len(b.income),
		Expenses: len(b.expenses),
		Skipped:  b.skipped,
	}
	log.Info().
		Int("income", res.Income).
		Int("expenses", res.Expenses).
		Int("skipped", res.Skipped).
		Msg("Statement imported")

	return res, nil
}

// insertBatch stores every row of b. When an insert fails the rows already
// stored are deleted again, so a failed import can be retried without
// duplicating records.
func (im *Importer) insertBatch(ctx context.Context, userID string, b *batch, log zerolog.Logger) error {
	var income, expenses []string

	rollback := func() {
		// The caller's context may be what failed the insert.
		cleanupCtx := context.WithoutCancel(ctx)
		for _, id := range income {
			if err := im.income.DeleteIncome(cleanupCtx, userID, id); err != nil {
				log.Error().Err(err).Str("income_id", id).Msg("Failed to remove partially imported income record")
			}
		}
		for _, id := range expenses {
			if err := im.expenses.DeleteExpense(cleanupCtx, userID, id); err != nil {
				log.Error().Err(err).Str("expense_id", id).Msg("Failed to remove partially imported expense")
			}
		}
	}

	for _, rec := range b.income {
		if err := im.income.InsertIncome(ctx, rec); err != nil {
			rollback()
			return fmt.Errorf("insert income: %w", err)
		}
		income = append(income, rec.ID)
	}
	for _, e := range b.expenses {
		if err := im.expenses.InsertExpense(ctx, e); err != nil {
			rollback()
			return fmt.Errorf("insert expense: %w", err)
		}
		expenses = append(expenses, e.ID)
	}
	return nil
}
