package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/gracebase/content-pipeline/internal/server/middleware"
	"github.com/gracebase/content-pipeline/internal/types"
)

// acceptRequest carries optional field-level edits applied on acceptance.
type acceptRequest struct {
	Edits types.ContentFields `json:"edits,omitempty"`
}

// handleSubmitJob handles POST /generation/jobs
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.jobs.Submit(r.Context(), tc.TenantID, req)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, job)
}

// handlePollJobs handles GET /generation/jobs
func (s *Server) handlePollJobs(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	jobList, err := s.jobs.ListActive(r.Context(), tc.TenantID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if jobList == nil {
		jobList = []types.GenerationJob{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobList})
}

// handleAcceptJob handles POST /generation/jobs/{id}/accept
func (s *Server) handleAcceptJob(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	var req acceptRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rec, err := s.jobs.Accept(r.Context(), tc.TenantID, jobID, req.Edits)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, rec)
}

// handleRejectJob handles POST /generation/jobs/{id}/reject
func (s *Server) handleRejectJob(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	if err := s.jobs.Reject(r.Context(), tc.TenantID, jobID); err != nil {
		s.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRegenerateJob handles POST /generation/jobs/{id}/regenerate
func (s *Server) handleRegenerateJob(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := s.jobs.Regenerate(r.Context(), tc.TenantID, jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusAccepted, job)
}
