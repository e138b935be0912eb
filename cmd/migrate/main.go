package main

import (
	"context"
	"flag"
	"path/filepath"

	"github.com/dvloznov/financr/internal/config"
	"github.com/dvloznov/financr/internal/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	defaultBackend := cfg.StoreBackend
	if defaultBackend != config.BackendBigQuery {
		defaultBackend = config.BackendPostgres
	}

	var (
		backend       = flag.String("backend", defaultBackend, "Schema backend: postgres or bigquery")
		databaseURL   = flag.String("database-url", cfg.DatabaseURL, "PostgreSQL connection string (DATABASE_URL)")
		projectID     = flag.String("project", cfg.BigQueryProject, "GCP project ID (BIGQUERY_PROJECT)")
		datasetID     = flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID (BIGQUERY_DATASET)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "", "Path to migrations directory (defaults to migrations/<backend>)")
	)
	flag.Parse()

	ctx := context.Background()

	dir := *migrationsDir
	if dir == "" {
		dir = filepath.Join("migrations", *backend)
	}
	dir, err = resolveDir(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}

	var (
		m            migrator
		placeholders map[string]string
	)
	switch *backend {
	case config.BackendPostgres:
		if *databaseURL == "" {
			log.Fatal().Msg("Error: -database-url flag or DATABASE_URL is required")
		}
		pm, err := newPostgresMigrator(ctx, *databaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		m = pm
	case config.BackendBigQuery:
		if *projectID == "" || *datasetID == "" {
			log.Fatal().Msg("Error: -project and -dataset are required for BigQuery")
		}
		bm, err := newBigQueryMigrator(ctx, *projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		m = bm
		placeholders = map[string]string{
			"{{PROJECT_ID}}": *projectID,
			"{{DATASET_ID}}": *datasetID,
		}
	default:
		log.Fatal().Str("backend", *backend).Msg("Unknown backend")
	}
	defer m.Close()

	migrations, err := readMigrations(dir, placeholders, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	log.Info().
		Str("backend", *backend).
		Str("dir", dir).
		Int("files", len(migrations)).
		Msg("Found migration files")

	count, err := migrate(ctx, m, migrations, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Int("applied", count).Msg("Migration failed")
	}

	if count == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", count).Msg("Successfully applied migrations")
	}
}
