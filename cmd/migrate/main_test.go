package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMigrator implements migrator in memory.
type MockMigrator struct {
	applied  []AppliedMigration
	ran      []string
	ApplyErr map[int]error
}

func (m *MockMigrator) EnsureTable(ctx context.Context) error { return nil }

func (m *MockMigrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	return m.applied, nil
}

func (m *MockMigrator) Apply(ctx context.Context, mig Migration, appliedBy string) error {
	if err := m.ApplyErr[mig.Version]; err != nil {
		return err
	}
	m.ran = append(m.ran, mig.Filename)
	m.applied = append(m.applied, AppliedMigration{Version: mig.Version, Name: mig.Name, Checksum: mig.Checksum, AppliedBy: appliedBy})
	return nil
}

func (m *MockMigrator) Close() error { return nil }

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"0012_tax_reports.sql", true, "0012", "tax_reports"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, matches)
				return
			}
			require.Len(t, matches, 3)
			assert.Equal(t, tt.version, matches[1])
			assert.Equal(t, tt.name, matches[2])
		})
	}
}

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestReadMigrations(t *testing.T) {
	raw := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id INT64);"
	dir := writeMigrations(t, map[string]string{
		"0002_second.sql": "SELECT 2;",
		"0001_first.sql":  raw,
		"README.md":       "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755))

	migrations, err := readMigrations(dir, map[string]string{
		"{{PROJECT_ID}}": "proj",
		"{{DATASET_ID}}": "taxes",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.taxes.t` (id INT64);", migrations[0].SQL)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(raw))), migrations[0].Checksum)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0001_a.sql": "SELECT 1;",
		"0001_b.sql": "SELECT 1;",
	})

	_, err := readMigrations(dir, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001")
}

func TestMigrationChecksumConsistency(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0001_a.sql": "CREATE TABLE test (id INT);",
		"0002_b.sql": "CREATE TABLE test (id INT);",
		"0003_c.sql": "CREATE TABLE different (id INT);",
	})

	migrations, err := readMigrations(dir, nil, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, migrations[0].Checksum, migrations[1].Checksum)
	assert.NotEqual(t, migrations[0].Checksum, migrations[2].Checksum)
}

func TestPending(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Filename: "0001_a.sql", Checksum: "aaa"},
		{Version: 2, Filename: "0002_b.sql", Checksum: "bbb"},
	}

	todo, err := pending(migrations, []AppliedMigration{{Version: 1, Checksum: "aaa"}})
	require.NoError(t, err)
	require.Len(t, todo, 1)
	assert.Equal(t, 2, todo[0].Version)

	_, err = pending(migrations, []AppliedMigration{{Version: 1, Checksum: "changed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	// Rows recorded without a checksum are trusted.
	todo, err = pending(migrations, []AppliedMigration{{Version: 1}})
	require.NoError(t, err)
	assert.Len(t, todo, 1)
}

func TestMigrate(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Filename: "0001_a.sql", Checksum: "aaa"},
		{Version: 2, Name: "b", Filename: "0002_b.sql", Checksum: "bbb"},
	}
	m := &MockMigrator{}

	count, err := migrate(context.Background(), m, migrations, "test", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, m.ran)
	assert.Equal(t, "test", m.applied[0].AppliedBy)

	count, err = migrate(context.Background(), m, migrations, "test", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrate_StopsAtFailure(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Filename: "0001_a.sql"},
		{Version: 2, Name: "b", Filename: "0002_b.sql"},
		{Version: 3, Name: "c", Filename: "0003_c.sql"},
	}
	m := &MockMigrator{ApplyErr: map[int]error{2: errors.New("syntax error")}}

	count, err := migrate(context.Background(), m, migrations, "test", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_b")
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"0001_a.sql"}, m.ran)
}

func TestRepositoryMigrationsParse(t *testing.T) {
	for _, backend := range []string{"postgres", "bigquery"} {
		t.Run(backend, func(t *testing.T) {
			dir, err := resolveDir(filepath.Join("migrations", backend))
			require.NoError(t, err)

			migrations, err := readMigrations(dir, nil, zerolog.Nop())
			require.NoError(t, err)
			require.NotEmpty(t, migrations)
			for i, m := range migrations {
				assert.Equal(t, i+1, m.Version, m.Filename)
			}
		})
	}
}
