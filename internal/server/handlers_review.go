package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gracebase/content-pipeline/internal/server/middleware"
	"github.com/gracebase/content-pipeline/internal/types"
)

// approveRequest carries the optional publish schedule for an approval.
type approveRequest struct {
	ScheduledPublishAt *time.Time `json:"scheduled_publish_at,omitempty"`
}

// rejectRequest carries the optional reason for a rejection.
type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// bulkApproveRequest identifies the records of a batch approval.
type bulkApproveRequest struct {
	IDs                []uuid.UUID `json:"ids"`
	ScheduledPublishAt *time.Time  `json:"scheduled_publish_at,omitempty"`
}

// bulkRejectRequest identifies the records of a batch rejection.
type bulkRejectRequest struct {
	IDs    []uuid.UUID `json:"ids"`
	Reason string      `json:"reason,omitempty"`
}

// autonomousRequest selects the content types of an autonomous run. An empty
// list means every known type.
type autonomousRequest struct {
	ContentTypes []types.ContentType `json:"content_types,omitempty"`
}

// contentTypeFilter parses the optional ?content_type= query parameter.
func contentTypeFilter(r *http.Request) (*types.ContentType, error) {
	raw := r.URL.Query().Get("content_type")
	if raw == "" {
		return nil, nil
	}
	ct, err := types.ParseContentType(raw)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// handleReviewQueue handles GET /review-queue
func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := contentTypeFilter(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	records, err := s.moderation.FetchReviewQueue(r.Context(), tc.TenantID, filter)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if records == nil {
		records = []types.ContentRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"items": records, "count": len(records)})
}

// handleGetContent handles GET /content/{id}
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid content ID")
		return
	}

	rec, err := s.moderation.Get(r.Context(), tc.TenantID, recordID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, rec)
}

// handleApproveContent handles POST /content/{id}/approve
func (s *Server) handleApproveContent(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid content ID")
		return
	}

	var req approveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rec, err := s.moderation.ApproveOne(r.Context(), tc.TenantID, recordID, req.ScheduledPublishAt)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, rec)
}

// handleRejectContent handles POST /content/{id}/reject
func (s *Server) handleRejectContent(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid content ID")
		return
	}

	var req rejectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rec, err := s.moderation.RejectOne(r.Context(), tc.TenantID, recordID, req.Reason)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, rec)
}

// handleBulkApprove handles POST /content/bulk-approve
func (s *Server) handleBulkApprove(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req bulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "ids is required")
		return
	}

	outcome := s.moderation.ApproveBulk(r.Context(), tc.TenantID, req.IDs, req.ScheduledPublishAt)
	s.jsonResponse(w, http.StatusOK, outcome)
}

// handleBulkReject handles POST /content/bulk-reject
func (s *Server) handleBulkReject(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req bulkRejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "ids is required")
		return
	}

	outcome := s.moderation.RejectBulk(r.Context(), tc.TenantID, req.IDs, req.Reason)
	s.jsonResponse(w, http.StatusOK, outcome)
}

// handleAutonomousTrigger handles POST /autonomous/trigger. The run happens
// in the background; the caller gets an immediate 202 and finds the output
// in the review queue.
func (s *Server) handleAutonomousTrigger(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req autonomousRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	contentTypes := req.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = types.AllContentTypes
	}

	// Tenant gate checked up front so a disabled tenant gets 403 rather
	// than a silent background failure.
	if _, err := s.runAutonomousGate(r.Context(), tc.TenantID); err != nil {
		s.serviceError(w, err)
		return
	}

	go func() {
		outcome, err := s.moderation.TriggerAutonomous(context.Background(), tc.TenantID, contentTypes)
		if err != nil {
			s.log.Error().Err(err).Str("tenant_id", tc.TenantID.String()).Msg("autonomous run failed")
			return
		}
		s.log.Info().
			Str("tenant_id", tc.TenantID.String()).
			Int("requested", len(contentTypes)).
			Int("succeeded", len(outcome.Succeeded())).
			Msg("autonomous run finished")
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"status":        "accepted",
		"content_types": contentTypes,
	})
}

// runAutonomousGate verifies the tenant exists and has generation enabled.
func (s *Server) runAutonomousGate(ctx context.Context, tenantID uuid.UUID) (*types.Tenant, error) {
	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil || !tenant.AIEnabled {
		return nil, &types.ErrGenerationDisabled{TenantID: tenantID}
	}
	return tenant, nil
}
