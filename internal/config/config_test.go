package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(envMap(nil))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, CalculatorRemote, cfg.Calculator)
	assert.Empty(t, cfg.GCSBucket)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"PORT":             "9090",
		"STORE_BACKEND":    "bigquery",
		"BIGQUERY_PROJECT": "proj",
		"BIGQUERY_DATASET": " taxes ",
		"CALCULATOR":       "local",
		"TAX_TABLES_FILE":  "tables.json",
	}))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendBigQuery, cfg.StoreBackend)
	assert.Equal(t, "taxes", cfg.BigQueryDataset)
	require.NoError(t, cfg.Validate())
}

func TestRegisterFlags_OverrideEnv(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{"PORT": "9090", "STORE_BACKEND": "memory"}))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-port", "7070"}))

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return FromEnv(envMap(map[string]string{"DATABASE_URL": "postgres://localhost/financr"}))
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults with database", mutate: func(c *Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "sqlite" }, wantErr: "STORE_BACKEND"},
		{name: "bigquery without dataset", mutate: func(c *Config) {
			c.StoreBackend = BackendBigQuery
			c.BigQueryProject = "proj"
			c.Calculator = CalculatorLocal
			c.TaxTablesFile = "t.json"
		}, wantErr: "BIGQUERY_DATASET"},
		{name: "remote calculator off postgres", mutate: func(c *Config) { c.StoreBackend = BackendMemory }, wantErr: "remote calculator"},
		{name: "local calculator without tables", mutate: func(c *Config) { c.Calculator = CalculatorLocal }, wantErr: "TAX_TABLES_FILE"},
		{name: "unknown calculator", mutate: func(c *Config) { c.Calculator = "abacus" }, wantErr: "CALCULATOR"},
		{name: "azure url without container", mutate: func(c *Config) { c.AzureBlobURL = "https://acct.blob.core.windows.net" }, wantErr: "AZURE_BLOB_CONTAINER"},
		{name: "notion token without database", mutate: func(c *Config) { c.NotionToken = "secret" }, wantErr: "NOTION_DATABASE_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINANCR_TEST_GCS=from-file\n"), 0o600))
	t.Setenv("FINANCR_TEST_GCS", "")
	os.Unsetenv("FINANCR_TEST_GCS")

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("FINANCR_TEST_GCS"))
}

func TestLoad_MissingFileIsSkipped(t *testing.T) {
	t.Setenv("PORT", "6060")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Port)
}
