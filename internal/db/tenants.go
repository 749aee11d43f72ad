package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gracebase/content-pipeline/internal/types"
)

// CreateTenant inserts a tenant row.
func (db *DB) CreateTenant(ctx context.Context, tenant *types.Tenant) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, ai_enabled, auto_publish, api_token_hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		tenant.ID, tenant.Name, tenant.AIEnabled, tenant.AutoPublish, tenant.APITokenHash,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by ID. Returns nil when the tenant does not exist.
func (db *DB) GetTenant(ctx context.Context, id uuid.UUID) (*types.Tenant, error) {
	var t types.Tenant
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, ai_enabled, auto_publish, api_token_hash, created_at
		 FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.AIEnabled, &t.AutoPublish, &t.APITokenHash, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}
