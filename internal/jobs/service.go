// Package jobs implements the queued interactive generation flow: work
// orders are submitted, polled by the operator surface, and leave the active
// set when accepted, rejected, or regenerated.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/types"
)

// Store is the persistence surface the job service needs. *db.DB implements
// it; tests substitute an in-memory fake.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*types.Tenant, error)
	CreateJob(ctx context.Context, job *types.GenerationJob) error
	GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*types.GenerationJob, error)
	ListActiveJobs(ctx context.Context, tenantID uuid.UUID) ([]types.GenerationJob, error)
	MarkJobGenerating(ctx context.Context, tenantID, jobID uuid.UUID) (bool, error)
	CompleteJob(ctx context.Context, tenantID, jobID uuid.UUID, status types.JobStatus, result types.ContentFields, errorMessage string) (bool, error)
	DeleteJob(ctx context.Context, tenantID, jobID uuid.UUID) (bool, error)
	DeleteJobAndCreateRecord(ctx context.Context, tenantID, jobID uuid.UUID, rec *types.ContentRecord) (bool, error)
	FailStaleJobs(ctx context.Context, cutoffSeconds int) (int, error)
}

// Service orchestrates the generation job lifecycle.
type Service struct {
	store    Store
	provider ai.Provider
	log      zerolog.Logger
}

// NewService creates a job service. A nil provider disables the background
// generation kick; transitions are then driven through Advance alone.
func NewService(store Store, provider ai.Provider, log zerolog.Logger) *Service {
	return &Service{store: store, provider: provider, log: log}
}

// Submit validates the request and creates a job in the pending state. When
// a provider is configured, generation starts in the background; the caller
// discovers the outcome by polling ListActive.
func (s *Service) Submit(ctx context.Context, tenantID uuid.UUID, req types.GenerationRequest) (*types.GenerationJob, error) {
	if _, err := types.ParseContentType(string(req.ContentType)); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil || !tenant.AIEnabled {
		return nil, &types.ErrGenerationDisabled{TenantID: tenantID}
	}

	job := &types.GenerationJob{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ContentType:  req.ContentType,
		Model:        req.Model,
		CustomPrompt: req.CustomPrompt,
		Languages:    append([]string(nil), req.Languages...),
		Status:       types.JobPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("job_id", job.ID.String()).
		Str("content_type", string(job.ContentType)).
		Msg("generation job submitted")

	if s.provider != nil {
		go s.ProcessJob(context.Background(), tenantID, job.ID)
	}

	return job, nil
}

// ListActive returns the tenant's jobs not yet accepted, rejected, or
// regenerated, newest first. Side-effect free; the operator surface polls it.
func (s *Service) ListActive(ctx context.Context, tenantID uuid.UUID) ([]types.GenerationJob, error) {
	return s.store.ListActiveJobs(ctx, tenantID)
}

// Advance applies a status transition on behalf of the provider adapter
// integration. Terminal transitions happen at most once; a second terminal
// write fails with AlreadyTerminal and leaves the job unchanged.
func (s *Service) Advance(ctx context.Context, tenantID, jobID uuid.UUID, status types.JobStatus, result types.ContentFields, errorMessage string) error {
	job, err := s.store.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return &types.ErrNotFound{Kind: "job", ID: jobID}
	}
	if job.Status.IsTerminal() {
		return &types.ErrAlreadyTerminal{JobID: jobID, Status: job.Status}
	}

	switch status {
	case types.JobGenerating:
		ok, err := s.store.MarkJobGenerating(ctx, tenantID, jobID)
		if err != nil {
			return err
		}
		if !ok {
			return &types.ErrAlreadyTerminal{JobID: jobID, Status: job.Status}
		}
		return nil
	case types.JobCompleted, types.JobFailed:
		ok, err := s.store.CompleteJob(ctx, tenantID, jobID, status, result, errorMessage)
		if err != nil {
			return err
		}
		if !ok {
			return &types.ErrAlreadyTerminal{JobID: jobID, Status: job.Status}
		}
		return nil
	default:
		return &types.ErrAlreadyTerminal{JobID: jobID, Status: job.Status}
	}
}

// Accept turns a completed job's result into a content record, merging any
// field-level edits, and removes the job from the active set. Exactly one of
// Accept, Reject, or Regenerate succeeds per job.
func (s *Service) Accept(ctx context.Context, tenantID, jobID uuid.UUID, edits types.ContentFields) (*types.ContentRecord, error) {
	job, err := s.store.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &types.ErrNotFound{Kind: "job", ID: jobID}
	}
	if job.Status != types.JobCompleted {
		return nil, &types.ErrNotCompleted{JobID: jobID, Status: job.Status}
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	status := types.StatusDraft
	if tenant != nil && tenant.AutoPublish {
		status = types.StatusApproved
	}

	now := time.Now().UTC()
	rec := &types.ContentRecord{
		ID:               uuid.New(),
		TenantID:         tenantID,
		ContentType:      job.ContentType,
		Fields:           job.Result.Merge(edits),
		ModerationStatus: status,
		Source:           types.SourceInteractiveAI,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Deleting the job is the claim: of two concurrent accept calls only
	// the one that removes the row proceeds. Delete and insert share one
	// transaction so a failed insert leaves the job claimable again.
	ok, err := s.store.DeleteJobAndCreateRecord(ctx, tenantID, jobID, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ErrNotFound{Kind: "job", ID: jobID}
	}

	s.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("job_id", jobID.String()).
		Str("record_id", rec.ID.String()).
		Msg("generation job accepted")

	return rec, nil
}

// Reject discards a terminal job without creating a record. A repeat call
// against an already-discarded id returns NotFound.
func (s *Service) Reject(ctx context.Context, tenantID, jobID uuid.UUID) error {
	job, err := s.store.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return &types.ErrNotFound{Kind: "job", ID: jobID}
	}
	if !job.Status.IsTerminal() {
		return &types.ErrNotCompleted{JobID: jobID, Status: job.Status}
	}

	ok, err := s.store.DeleteJob(ctx, tenantID, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return &types.ErrNotFound{Kind: "job", ID: jobID}
	}
	return nil
}

// Regenerate discards the original job and submits a fresh pending job with
// identical parameters. The original is never mutated.
func (s *Service) Regenerate(ctx context.Context, tenantID, jobID uuid.UUID) (*types.GenerationJob, error) {
	job, err := s.store.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &types.ErrNotFound{Kind: "job", ID: jobID}
	}

	ok, err := s.store.DeleteJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ErrNotFound{Kind: "job", ID: jobID}
	}

	return s.Submit(ctx, tenantID, job.Request())
}

// ProcessJob runs the provider call for one job: pending -> generating ->
// completed or failed. Provider failures are captured into the job rather
// than surfaced to any caller; the operator discovers them by polling.
func (s *Service) ProcessJob(ctx context.Context, tenantID, jobID uuid.UUID) {
	job, err := s.store.GetJob(ctx, tenantID, jobID)
	if err != nil || job == nil {
		return
	}

	if err := s.Advance(ctx, tenantID, jobID, types.JobGenerating, nil, ""); err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID.String()).Msg("could not start generation")
		return
	}

	fields, err := s.provider.Generate(ctx, job.Request())
	if err != nil {
		if aerr := s.Advance(ctx, tenantID, jobID, types.JobFailed, nil, err.Error()); aerr != nil {
			s.log.Warn().Err(aerr).Str("job_id", jobID.String()).Msg("could not record generation failure")
		}
		return
	}

	if err := s.Advance(ctx, tenantID, jobID, types.JobCompleted, fields, ""); err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID.String()).Msg("could not record generation result")
	}
}

// FailStale sweeps jobs stuck in generating past the provider timeout into
// the failed state.
func (s *Service) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	swept, err := s.store.FailStaleJobs(ctx, int(olderThan.Seconds()))
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.log.Info().Int("count", swept).Msg("swept stale generation jobs")
	}
	return swept, nil
}

// RunSweeper blocks, forcing stale generating jobs to failed on every tick
// until the context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.FailStale(ctx, olderThan); err != nil {
				s.log.Error().Err(err).Msg("stale job sweep failed")
			}
		}
	}
}
