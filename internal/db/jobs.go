package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gracebase/content-pipeline/internal/types"
)

// -----------------------------------------------------------------------------
// Generation Job Methods
// -----------------------------------------------------------------------------

// CreateJob inserts a new generation job row.
func (db *DB) CreateJob(ctx context.Context, job *types.GenerationJob) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO generation_jobs
		   (tenant_id, id, content_type, model, custom_prompt, languages, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.TenantID, job.ID, job.ContentType, job.Model, job.CustomPrompt,
		job.Languages, job.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job scoped to the tenant. Returns nil when the job does
// not exist under this tenant.
func (db *DB) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*types.GenerationJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT tenant_id, id, content_type, model, custom_prompt, languages,
		        status, result, error_message, created_at
		 FROM generation_jobs WHERE tenant_id = $1 AND id = $2`,
		tenantID, jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListActiveJobs returns the tenant's jobs that have not yet been accepted,
// rejected, or regenerated, newest first.
func (db *DB) ListActiveJobs(ctx context.Context, tenantID uuid.UUID) ([]types.GenerationJob, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT tenant_id, id, content_type, model, custom_prompt, languages,
		        status, result, error_message, created_at
		 FROM generation_jobs WHERE tenant_id = $1
		 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// MarkJobGenerating moves a pending job to generating. Returns false when the
// job was not in the pending state (or does not exist for this tenant).
func (db *DB) MarkJobGenerating(ctx context.Context, tenantID, jobID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2 AND status = $4`,
		tenantID, jobID, types.JobGenerating, types.JobPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark job generating: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompleteJob applies a terminal transition. The status guard makes the
// terminal write at-most-once: a job already completed or failed is left
// untouched and false is returned.
func (db *DB) CompleteJob(ctx context.Context, tenantID, jobID uuid.UUID, status types.JobStatus, result types.ContentFields, errorMessage string) (bool, error) {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return false, fmt.Errorf("failed to marshal job result: %w", err)
		}
	}

	var errMsg *string
	if errorMessage != "" {
		errMsg = &errorMessage
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs
		 SET status = $3, result = $4, error_message = $5, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2 AND status IN ($6, $7)`,
		tenantID, jobID, status, resultJSON, errMsg,
		types.JobPending, types.JobGenerating,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteJob removes a job from the active set. Returns false when the job
// does not exist under this tenant.
func (db *DB) DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM generation_jobs WHERE tenant_id = $1 AND id = $2`,
		tenantID, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteJobAndCreateRecord removes a job and inserts the content record born
// from it in one transaction, so a failed insert never orphans an accepted
// result. Returns false without inserting when the job was already gone.
func (db *DB) DeleteJobAndCreateRecord(ctx context.Context, tenantID, jobID uuid.UUID, rec *types.ContentRecord) (bool, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			_ = rErr
		}
	}()

	tag, err := tx.Exec(ctx,
		`DELETE FROM generation_jobs WHERE tenant_id = $1 AND id = $2`,
		tenantID, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertContentRecord(ctx, tx, rec); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// FailStaleJobs forces jobs stuck in generating longer than the cutoff to
// failed, so a hung provider call never blocks the active-job list.
func (db *DB) FailStaleJobs(ctx context.Context, cutoffSeconds int) (int, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs
		 SET status = $1, error_message = 'generation timed out', updated_at = NOW()
		 WHERE status = $2 AND updated_at < NOW() - make_interval(secs => $3)`,
		types.JobFailed, types.JobGenerating, cutoffSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanJob reads one job row, decoding the JSONB result payload.
func scanJob(row pgx.Row) (*types.GenerationJob, error) {
	var job types.GenerationJob
	var resultJSON []byte
	var errMsg *string

	err := row.Scan(&job.TenantID, &job.ID, &job.ContentType, &job.Model,
		&job.CustomPrompt, &job.Languages, &job.Status, &resultJSON, &errMsg,
		&job.CreatedAt)
	if err != nil {
		return nil, err
	}

	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("failed to decode job result: %w", err)
		}
	}
	return &job, nil
}
