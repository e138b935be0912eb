// Package config loads service settings from an optional .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/financr/internal/logger"
	"github.com/joho/godotenv"
)

// Record store backends.
const (
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
	BackendMemory   = "memory"
)

// Calculator modes. The remote calculator runs inside PostgreSQL.
const (
	CalculatorRemote = "remote"
	CalculatorLocal  = "local"
)

// DefaultEnvFile is read when present and silently skipped otherwise.
const DefaultEnvFile = ".env"

// Config holds every setting shared by the binaries.
type Config struct {
	Port     string
	LogLevel string

	StoreBackend    string
	DatabaseURL     string
	BigQueryProject string
	BigQueryDataset string

	Calculator    string
	TaxTablesFile string

	GCSBucket          string
	AzureBlobURL       string
	AzureBlobContainer string
	NotionToken        string
	NotionDatabaseID   string
	ExportDir          string

	GeminiModel string
}

// Load reads envFile into the process environment when it exists and builds
// a Config from the environment. Variables already set take precedence over
// the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("Load: read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("Load: stat %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv), nil
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	return &Config{
		Port:               get("PORT", "8080"),
		LogLevel:           get("LOG_LEVEL", "info"),
		StoreBackend:       get("STORE_BACKEND", BackendPostgres),
		DatabaseURL:        get("DATABASE_URL", ""),
		BigQueryProject:    get("BIGQUERY_PROJECT", ""),
		BigQueryDataset:    get("BIGQUERY_DATASET", ""),
		Calculator:         get("CALCULATOR", CalculatorRemote),
		TaxTablesFile:      get("TAX_TABLES_FILE", ""),
		GCSBucket:          get("GCS_BUCKET", ""),
		AzureBlobURL:       get("AZURE_BLOB_URL", ""),
		AzureBlobContainer: get("AZURE_BLOB_CONTAINER", ""),
		NotionToken:        get("NOTION_TOKEN", ""),
		NotionDatabaseID:   get("NOTION_DATABASE_ID", ""),
		ExportDir:          get("EXPORT_DIR", ""),
		GeminiModel:        get("GEMINI_MODEL", ""),
	}
}

// RegisterFlags binds the settings to fs. Current values become the flag
// defaults, so parsed flags override the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "HTTP server port (PORT)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error (LOG_LEVEL)")
	fs.StringVar(&c.StoreBackend, "store", c.StoreBackend, "record store backend: postgres, bigquery, memory (STORE_BACKEND)")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL connection string (DATABASE_URL)")
	fs.StringVar(&c.BigQueryProject, "bq-project", c.BigQueryProject, "BigQuery project ID (BIGQUERY_PROJECT)")
	fs.StringVar(&c.BigQueryDataset, "bq-dataset", c.BigQueryDataset, "BigQuery dataset ID (BIGQUERY_DATASET)")
	fs.StringVar(&c.Calculator, "calculator", c.Calculator, "tax calculator: remote, local (CALCULATOR)")
	fs.StringVar(&c.TaxTablesFile, "tax-tables", c.TaxTablesFile, "tax table JSON file for the local calculator (TAX_TABLES_FILE)")
	fs.StringVar(&c.GCSBucket, "gcs-bucket", c.GCSBucket, "GCS bucket for report exports (GCS_BUCKET)")
	fs.StringVar(&c.ExportDir, "export-dir", c.ExportDir, "directory for file exports (EXPORT_DIR)")
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("Validate: LOG_LEVEL: %w", err)
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("Validate: DATABASE_URL is required for the %s backend", c.StoreBackend)
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" || c.BigQueryDataset == "" {
			return fmt.Errorf("Validate: BIGQUERY_PROJECT and BIGQUERY_DATASET are required for the %s backend", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("Validate: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Calculator {
	case CalculatorRemote:
		if c.StoreBackend != BackendPostgres {
			return fmt.Errorf("Validate: the remote calculator needs the %s backend, got %s", BackendPostgres, c.StoreBackend)
		}
	case CalculatorLocal:
		if c.TaxTablesFile == "" {
			return fmt.Errorf("Validate: TAX_TABLES_FILE is required for the local calculator")
		}
	default:
		return fmt.Errorf("Validate: unknown CALCULATOR %q", c.Calculator)
	}

	if (c.AzureBlobURL == "") != (c.AzureBlobContainer == "") {
		return fmt.Errorf("Validate: AZURE_BLOB_URL and AZURE_BLOB_CONTAINER must be set together")
	}
	if (c.NotionToken == "") != (c.NotionDatabaseID == "") {
		return fmt.Errorf("Validate: NOTION_TOKEN and NOTION_DATABASE_ID must be set together")
	}
	return nil
}
