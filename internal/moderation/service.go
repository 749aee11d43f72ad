// Package moderation implements the content record store surface, the
// review queue projection, and the approve/reject lifecycle that both
// generation entry points terminate in.
package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/types"
)

// autonomousConcurrency bounds how many provider calls an autonomous run
// issues at once.
const autonomousConcurrency = 3

// Store is the persistence surface the moderation service needs.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*types.Tenant, error)
	CreateContentRecord(ctx context.Context, rec *types.ContentRecord) error
	GetContentRecord(ctx context.Context, tenantID, recordID uuid.UUID) (*types.ContentRecord, error)
	ListContentByStatus(ctx context.Context, tenantID uuid.UUID, status types.ModerationStatus, contentType *types.ContentType) ([]types.ContentRecord, error)
	UpdateModerationStatusCAS(ctx context.Context, tenantID, recordID uuid.UUID, from, to types.ModerationStatus, scheduledAt *time.Time, reason string) (bool, error)
}

// TransitionExtra carries the optional data a moderation transition may
// attach: a publish schedule on approval, a reason on rejection.
type TransitionExtra struct {
	ScheduledPublishAt *time.Time
	RejectionReason    string
}

// Service applies the moderation state machine to content records.
type Service struct {
	store    Store
	provider ai.Provider
	log      zerolog.Logger
}

// NewService creates a moderation service. The provider is only needed for
// autonomous generation; nil disables that path.
func NewService(store Store, provider ai.Provider, log zerolog.Logger) *Service {
	return &Service{store: store, provider: provider, log: log}
}

// Create stores a new content record in the given moderation state.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, contentType types.ContentType, fields types.ContentFields, status types.ModerationStatus, source types.Source) (*types.ContentRecord, error) {
	if _, err := types.ParseContentType(string(contentType)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &types.ContentRecord{
		ID:               uuid.New(),
		TenantID:         tenantID,
		ContentType:      contentType,
		Fields:           fields,
		ModerationStatus: status,
		Source:           source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateContentRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get retrieves a record within the tenant's scope.
func (s *Service) Get(ctx context.Context, tenantID, recordID uuid.UUID) (*types.ContentRecord, error) {
	rec, err := s.store.GetContentRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &types.ErrNotFound{Kind: "content record", ID: recordID}
	}
	return rec, nil
}

// ListByStatus returns the tenant's records in a moderation state, oldest
// first, optionally narrowed to one content type.
func (s *Service) ListByStatus(ctx context.Context, tenantID uuid.UUID, status types.ModerationStatus, contentType *types.ContentType) ([]types.ContentRecord, error) {
	return s.store.ListContentByStatus(ctx, tenantID, status, contentType)
}

// FetchReviewQueue returns the pending-review projection for the tenant,
// oldest first so stale items surface before fresher ones.
func (s *Service) FetchReviewQueue(ctx context.Context, tenantID uuid.UUID, contentType *types.ContentType) ([]types.ContentRecord, error) {
	return s.store.ListContentByStatus(ctx, tenantID, types.StatusPendingReview, contentType)
}

// UpdateModerationStatus applies one transition of the moderation state
// machine. The underlying write is a compare-and-set on the observed current
// status, so of two concurrent transitions the second fails with
// InvalidTransition instead of silently overwriting.
func (s *Service) UpdateModerationStatus(ctx context.Context, tenantID, recordID uuid.UUID, next types.ModerationStatus, extra TransitionExtra) (*types.ContentRecord, error) {
	if err := types.ValidateModerationExtras(next, extra.ScheduledPublishAt != nil, extra.RejectionReason != ""); err != nil {
		return nil, err
	}

	rec, err := s.store.GetContentRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &types.ErrNotFound{Kind: "content record", ID: recordID}
	}
	if !rec.ModerationStatus.CanTransitionTo(next) {
		return nil, &types.ErrInvalidTransition{From: rec.ModerationStatus, To: next}
	}

	ok, err := s.store.UpdateModerationStatusCAS(ctx, tenantID, recordID,
		rec.ModerationStatus, next, extra.ScheduledPublishAt, extra.RejectionReason)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: re-read to report the state that beat us.
		current, err := s.store.GetContentRecord(ctx, tenantID, recordID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, &types.ErrNotFound{Kind: "content record", ID: recordID}
		}
		return nil, &types.ErrInvalidTransition{From: current.ModerationStatus, To: next}
	}

	return s.Get(ctx, tenantID, recordID)
}

// ApproveOne transitions a single record to approved, optionally scheduling
// its publish time.
func (s *Service) ApproveOne(ctx context.Context, tenantID, recordID uuid.UUID, scheduledAt *time.Time) (*types.ContentRecord, error) {
	return s.UpdateModerationStatus(ctx, tenantID, recordID, types.StatusApproved,
		TransitionExtra{ScheduledPublishAt: scheduledAt})
}

// RejectOne transitions a single record to rejected with an optional reason.
func (s *Service) RejectOne(ctx context.Context, tenantID, recordID uuid.UUID, reason string) (*types.ContentRecord, error) {
	return s.UpdateModerationStatus(ctx, tenantID, recordID, types.StatusRejected,
		TransitionExtra{RejectionReason: reason})
}

// ApproveBulk approves each id independently. Items succeed or fail on
// their own and successes are never rolled back: one malformed or
// already-terminal record must not block the rest of a batch.
func (s *Service) ApproveBulk(ctx context.Context, tenantID uuid.UUID, recordIDs []uuid.UUID, scheduledAt *time.Time) types.BulkOutcome {
	return s.bulk(recordIDs, func(id uuid.UUID) error {
		_, err := s.ApproveOne(ctx, tenantID, id, scheduledAt)
		return err
	})
}

// RejectBulk rejects each id independently with the same reason.
func (s *Service) RejectBulk(ctx context.Context, tenantID uuid.UUID, recordIDs []uuid.UUID, reason string) types.BulkOutcome {
	return s.bulk(recordIDs, func(id uuid.UUID) error {
		_, err := s.RejectOne(ctx, tenantID, id, reason)
		return err
	})
}

func (s *Service) bulk(recordIDs []uuid.UUID, op func(uuid.UUID) error) types.BulkOutcome {
	var outcome types.BulkOutcome
	for _, id := range recordIDs {
		if err := op(id); err != nil {
			outcome.Failed = append(outcome.Failed, types.BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, id)
	}
	return outcome
}

// TriggerAutonomous asks the provider to produce one item per content type,
// landing each directly in pending review with the autonomous source tag.
// Failures are soft: a content type that fails is reported in the outcome
// without affecting the others.
func (s *Service) TriggerAutonomous(ctx context.Context, tenantID uuid.UUID, contentTypes []types.ContentType) (types.AutonomousOutcome, error) {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return types.AutonomousOutcome{}, err
	}
	if tenant == nil || !tenant.AIEnabled {
		return types.AutonomousOutcome{}, &types.ErrGenerationDisabled{TenantID: tenantID}
	}

	outcomes := make([]types.TypeOutcome, len(contentTypes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(autonomousConcurrency)
	for i, ct := range contentTypes {
		g.Go(func() error {
			outcomes[i] = s.generateOne(gctx, tenantID, ct)
			return nil
		})
	}
	_ = g.Wait() // goroutines report through outcomes, never an error

	return types.AutonomousOutcome{Outcomes: outcomes}, nil
}

func (s *Service) generateOne(ctx context.Context, tenantID uuid.UUID, contentType types.ContentType) types.TypeOutcome {
	outcome := types.TypeOutcome{ContentType: contentType}

	if _, err := types.ParseContentType(string(contentType)); err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	req := types.GenerationRequest{
		ContentType: contentType,
		Model:       "", // provider default
		Languages:   []string{"en"},
	}
	fields, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).
			Str("tenant_id", tenantID.String()).
			Str("content_type", string(contentType)).
			Msg("autonomous generation failed")
		outcome.Error = err.Error()
		return outcome
	}

	rec, err := s.Create(ctx, tenantID, contentType, fields, types.StatusPendingReview, types.SourceAutonomousAI)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.RecordID = rec.ID
	return outcome
}
