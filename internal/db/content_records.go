package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gracebase/content-pipeline/internal/types"
)

// execer is satisfied by both the pool and a transaction, so record inserts
// can run standalone or inside a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// -----------------------------------------------------------------------------
// Content Record Methods
// -----------------------------------------------------------------------------

// CreateContentRecord inserts a content record row.
func (db *DB) CreateContentRecord(ctx context.Context, rec *types.ContentRecord) error {
	return insertContentRecord(ctx, db.pool, rec)
}

func insertContentRecord(ctx context.Context, q execer, rec *types.ContentRecord) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal content fields: %w", err)
	}

	var reason *string
	if rec.RejectionReason != "" {
		reason = &rec.RejectionReason
	}

	_, err = q.Exec(ctx,
		`INSERT INTO content_records
		   (tenant_id, id, content_type, fields, moderation_status,
		    scheduled_publish_at, rejection_reason, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.TenantID, rec.ID, rec.ContentType, fieldsJSON, rec.ModerationStatus,
		rec.ScheduledPublishAt, reason, rec.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to create content record: %w", err)
	}
	return nil
}

// GetContentRecord retrieves a record scoped to the tenant. Returns nil when
// it does not exist under this tenant.
func (db *DB) GetContentRecord(ctx context.Context, tenantID, recordID uuid.UUID) (*types.ContentRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT tenant_id, id, content_type, fields, moderation_status,
		        scheduled_publish_at, rejection_reason, source, created_at, updated_at
		 FROM content_records WHERE tenant_id = $1 AND id = $2`,
		tenantID, recordID,
	)
	rec, err := scanContentRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content record: %w", err)
	}
	return rec, nil
}

// ListContentByStatus returns the tenant's records in a moderation state,
// oldest first so stale items surface before fresher ones. A content type
// filter narrows the projection to one collection.
func (db *DB) ListContentByStatus(ctx context.Context, tenantID uuid.UUID, status types.ModerationStatus, contentType *types.ContentType) ([]types.ContentRecord, error) {
	query := `SELECT tenant_id, id, content_type, fields, moderation_status,
	                 scheduled_publish_at, rejection_reason, source, created_at, updated_at
	          FROM content_records
	          WHERE tenant_id = $1 AND moderation_status = $2`
	args := []any{tenantID, status}

	if contentType != nil {
		query += " AND content_type = $3"
		args = append(args, *contentType)
	}
	query += " ORDER BY created_at ASC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list content records: %w", err)
	}
	defer rows.Close()

	var records []types.ContentRecord
	for rows.Next() {
		rec, err := scanContentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// UpdateModerationStatusCAS applies a moderation transition only if the
// record is still in the expected current state. Returns false when the
// compare-and-set missed, so two concurrent moderators resolve
// deterministically: the second observes the state already changed.
func (db *DB) UpdateModerationStatusCAS(ctx context.Context, tenantID, recordID uuid.UUID, from, to types.ModerationStatus, scheduledAt *time.Time, reason string) (bool, error) {
	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE content_records
		 SET moderation_status = $4, scheduled_publish_at = $5,
		     rejection_reason = $6, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2 AND moderation_status = $3`,
		tenantID, recordID, from, to, scheduledAt, reasonArg,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update moderation status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanContentRecord reads one record row, decoding the JSONB fields payload.
func scanContentRecord(row pgx.Row) (*types.ContentRecord, error) {
	var rec types.ContentRecord
	var fieldsJSON []byte
	var reason *string

	err := row.Scan(&rec.TenantID, &rec.ID, &rec.ContentType, &fieldsJSON,
		&rec.ModerationStatus, &rec.ScheduledPublishAt, &reason, &rec.Source,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if reason != nil {
		rec.RejectionReason = *reason
	}
	if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode content fields: %w", err)
	}
	return &rec, nil
}
