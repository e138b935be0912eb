package main

import (
	"context"
	"fmt"

	"github.com/dvloznov/financr/internal/infra/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresMigrator applies each migration and its schema_migrations row in
// one transaction.
type postgresMigrator struct {
	pool *pgxpool.Pool
}

func newPostgresMigrator(ctx context.Context, databaseURL string) (*postgresMigrator, error) {
	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("newPostgresMigrator: %w", err)
	}
	return &postgresMigrator{pool: pool}, nil
}

func (p *postgresMigrator) Close() error {
	p.pool.Close()
	return nil
}

func (p *postgresMigrator) EnsureTable(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum   TEXT NOT NULL,
			applied_by TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("EnsureTable: %w", err)
	}
	return nil
}

func (p *postgresMigrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT version, name, applied_at, checksum, applied_by
		FROM schema_migrations
		ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("Applied: query: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var am AppliedMigration
		if err := rows.Scan(&am.Version, &am.Name, &am.AppliedAt, &am.Checksum, &am.AppliedBy); err != nil {
			return nil, fmt.Errorf("Applied: scan: %w", err)
		}
		applied = append(applied, am)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Applied: rows: %w", err)
	}
	return applied, nil
}

func (p *postgresMigrator) Apply(ctx context.Context, m Migration, appliedBy string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("Apply: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Without arguments pgx uses the simple protocol, so a file may hold
	// several statements.
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("Apply: execute: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_by) VALUES ($1, $2, $3, $4)`,
		m.Version, m.Name, m.Checksum, appliedBy,
	); err != nil {
		return fmt.Errorf("Apply: record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("Apply: commit: %w", err)
	}
	return nil
}
