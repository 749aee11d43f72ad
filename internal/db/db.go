// Package db provides PostgreSQL storage for tenants, generation jobs, and
// content records. Every query is scoped by tenant; a row that exists under
// another tenant is indistinguishable from a row that does not exist.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the pipeline tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			ai_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			auto_publish BOOLEAN NOT NULL DEFAULT FALSE,
			api_token_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS generation_jobs (
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			id UUID NOT NULL,
			content_type TEXT NOT NULL,
			model TEXT NOT NULL,
			custom_prompt TEXT NOT NULL DEFAULT '',
			languages TEXT[] NOT NULL,
			status TEXT NOT NULL,
			result JSONB,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS content_records (
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			id UUID NOT NULL,
			content_type TEXT NOT NULL,
			fields JSONB NOT NULL,
			moderation_status TEXT NOT NULL,
			scheduled_publish_at TIMESTAMPTZ,
			rejection_reason TEXT,
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_content_records_review
			ON content_records (tenant_id, moderation_status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_generation_jobs_created
			ON generation_jobs (tenant_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
