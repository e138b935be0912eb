package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/financr/internal/config"
	"github.com/dvloznov/financr/internal/export"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablesJSON = `[{
  "year": 2024,
  "standard_deduction": {"single": "10000", "married_filing_jointly": "20000", "married_filing_separately": "10000", "head_of_household": "15000"},
  "brackets": {
    "single": [{"up_to": "10000", "rate": "0.10"}, {"rate": "0.20"}],
    "married_filing_jointly": [{"up_to": "20000", "rate": "0.10"}, {"rate": "0.20"}],
    "married_filing_separately": [{"up_to": "10000", "rate": "0.10"}, {"rate": "0.20"}],
    "head_of_household": [{"up_to": "15000", "rate": "0.10"}, {"rate": "0.20"}]
  },
  "se_tax_rate": "0.15", "se_earnings_factor": "0.9", "se_deductible_share": "0.5",
  "medical_floor_rate": "0.1", "salt_cap": "5000"
}]`

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	tables := filepath.Join(dir, "tables.json")
	require.NoError(t, os.WriteFile(tables, []byte(tablesJSON), 0o600))

	cfg := config.FromEnv(func(string) string { return "" })
	cfg.StoreBackend = config.BackendMemory
	cfg.Calculator = config.CalculatorLocal
	cfg.TaxTablesFile = tables
	cfg.ExportDir = filepath.Join(dir, "exports")
	return cfg
}

func TestBuild_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, memoryConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Exporter.HasSink(export.SinkFile))
	assert.False(t, a.Exporter.HasSink(export.SinkGCS))
	assert.False(t, a.Exporter.HasSink(export.SinkNotion))

	h := a.Handlers()
	assert.NotNil(t, h.Reports)
	assert.NotNil(t, h.Records)
	assert.NotNil(t, h.Export)
	assert.NotNil(t, h.Jobs)

	report, err := a.Reports.Create(ctx, "u1", 2024)
	require.NoError(t, err)

	location, err := a.Exporter.Deliver(ctx, "u1", report.ID, export.SinkFile)
	require.NoError(t, err)
	assert.FileExists(t, location)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Calculator = config.CalculatorRemote

	_, err := Build(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote calculator")
}

func TestBuild_MissingTaxTables(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.TaxTablesFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := Build(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestBuild_OptionalSinks(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.NotionToken = "secret"
	cfg.NotionDatabaseID = "db"
	cfg.AzureBlobURL = "http://127.0.0.1:10000/devstoreaccount1"
	cfg.AzureBlobContainer = "reports"

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Exporter.HasSink(export.SinkNotion))
	assert.True(t, a.Exporter.HasSink(export.SinkAzure))
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	a := &App{}
	a.closers = append(a.closers,
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return nil },
	)

	require.NoError(t, a.Close())
	assert.Equal(t, []int{2, 1}, order)
	require.NoError(t, a.Close())
}
