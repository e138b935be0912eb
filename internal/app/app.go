// Package app assembles the record store, calculator, report manager,
// exporters and job queue from a Config. The binaries under cmd/ share it.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/financr/internal/api"
	"github.com/dvloznov/financr/internal/api/handlers"
	"github.com/dvloznov/financr/internal/config"
	"github.com/dvloznov/financr/internal/export"
	"github.com/dvloznov/financr/internal/gcs"
	"github.com/dvloznov/financr/internal/importer"
	infraBQ "github.com/dvloznov/financr/internal/infra/bigquery"
	"github.com/dvloznov/financr/internal/infra/postgres"
	jobsmem "github.com/dvloznov/financr/internal/jobs/inmemory"
	"github.com/dvloznov/financr/internal/reports"
	"github.com/dvloznov/financr/internal/store"
	"github.com/dvloznov/financr/internal/store/inmemory"
	"github.com/dvloznov/financr/internal/tax"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const jobQueueSize = 100

// App holds the wired services. Close releases everything Build opened.
type App struct {
	Config   *config.Config
	Store    store.Store
	Reports  *reports.Manager
	Exporter *export.Service
	JobStore *jobsmem.Store
	Queue    *jobsmem.Queue

	storage *gcs.Client
	log     zerolog.Logger
	closers []func() error
}

// Build validates cfg and wires every service it selects.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	a := &App{Config: cfg, log: log}

	st, pool, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Build: %w", err)
	}
	a.Store = st

	calc, err := newCalculator(cfg, st, pool)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Build: %w", err)
	}
	a.Reports = reports.NewManager(st, st, st, calc, log)

	sinks, err := a.newSinks(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Build: %w", err)
	}
	a.Exporter = export.NewService(st, sinks, log)

	a.JobStore = jobsmem.NewStore()
	a.Queue = jobsmem.NewQueue(jobQueueSize, a.JobStore)
	a.closers = append(a.closers, a.Queue.Close)

	log.Info().
		Str("store", cfg.StoreBackend).
		Str("calculator", cfg.Calculator).
		Int("sinks", len(sinks)).
		Msg("Application wired")

	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, *pgxpool.Pool, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("openStore: %w", err)
		}
		st := postgres.NewStore(pool)
		a.closers = append(a.closers, st.Close)
		return st, pool, nil
	case config.BackendBigQuery:
		st, err := infraBQ.NewStore(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, nil, fmt.Errorf("openStore: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		return st, nil, nil
	case config.BackendMemory:
		a.log.Warn().Msg("Using in-memory record store; data is lost on exit")
		return inmemory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("openStore: unknown backend %q", cfg.StoreBackend)
	}
}

func newCalculator(cfg *config.Config, st store.TaxReportRepository, pool *pgxpool.Pool) (tax.TaxCalculator, error) {
	switch cfg.Calculator {
	case config.CalculatorRemote:
		if pool == nil {
			return nil, fmt.Errorf("newCalculator: remote calculator needs a PostgreSQL pool")
		}
		return postgres.NewRemoteCalculator(pool), nil
	case config.CalculatorLocal:
		tables, err := tax.LoadTables(cfg.TaxTablesFile)
		if err != nil {
			return nil, fmt.Errorf("newCalculator: %w", err)
		}
		return tax.NewLocalCalculator(st, tables), nil
	default:
		return nil, fmt.Errorf("newCalculator: unknown calculator %q", cfg.Calculator)
	}
}

func (a *App) newSinks(ctx context.Context) (export.Registry, error) {
	cfg := a.Config
	sinks := export.Registry{}

	if cfg.ExportDir != "" {
		sinks[export.SinkFile] = export.NewFileSink(cfg.ExportDir)
	}

	if cfg.GCSBucket != "" {
		storage, err := a.gcsClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("newSinks: %w", err)
		}
		sinks[export.SinkGCS] = export.NewGCSSink(storage, cfg.GCSBucket)
	}

	if cfg.AzureBlobURL != "" {
		blobs, err := export.NewBlobService(cfg.AzureBlobURL, a.log)
		if err != nil {
			return nil, fmt.Errorf("newSinks: %w", err)
		}
		sinks[export.SinkAzure] = export.NewAzureBlobSink(blobs, cfg.AzureBlobContainer)
	}

	if cfg.NotionToken != "" {
		sinks[export.SinkNotion] = export.NewNotionSink(export.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID)
	}

	return sinks, nil
}

// gcsClient opens the shared Cloud Storage client on first use.
func (a *App) gcsClient(ctx context.Context) (*gcs.Client, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	storage, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsClient: %w", err)
	}
	a.storage = storage
	a.closers = append(a.closers, storage.Close)
	return storage, nil
}

// Handlers builds the HTTP handlers over the wired services.
func (a *App) Handlers() api.Handlers {
	return api.Handlers{
		Reports: handlers.NewReportsHandler(a.Reports, a.log),
		Records: handlers.NewRecordsHandler(a.Store, a.Store, a.log),
		Export:  handlers.NewExportHandler(a.Exporter, a.Queue, a.log),
		Jobs:    handlers.NewJobsHandler(a.JobStore, a.log),
	}
}

// NewImporter creates a statement importer backed by Gemini. withGCS opens a
// Cloud Storage client so gs:// statements can be fetched.
func (a *App) NewImporter(ctx context.Context, withGCS bool) (*importer.Importer, error) {
	parser, err := importer.NewGeminiParser(ctx, a.Config.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("NewImporter: %w", err)
	}

	var storage gcs.StorageService
	if withGCS {
		client, err := a.gcsClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("NewImporter: %w", err)
		}
		storage = client
	}

	return importer.New(parser, storage, a.Store, a.Store, a.log), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
