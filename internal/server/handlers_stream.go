package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/gracebase/content-pipeline/internal/server/middleware"
	"github.com/gracebase/content-pipeline/internal/types"
)

// handleOpenStream handles POST /generation/stream. The response is an SSE
// stream: a session event carrying the session id, then delta events in
// arrival order, then exactly one complete or error event.
func (s *Server) handleOpenStream(w http.ResponseWriter, r *http.Request) {
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

	session, err := s.streams.Open(r.Context(), tc.TenantID, tc.OperatorID, req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	// Once this handler returns, nobody reads the event channel anymore.
	defer session.Detach()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sse.WriteEvent("session", map[string]string{"session_id": session.ID.String()}) //nolint:errcheck

	for ev := range session.Events() {
		switch {
		case ev.Err != nil:
			sse.WriteError(ev.Err.Error())
			return
		case ev.Result != nil:
			sse.WriteEvent("complete", map[string]any{ //nolint:errcheck
				"session_id": session.ID.String(),
				"result":     ev.Result,
			})
			return
		case ev.Delta != nil:
			if err := sse.WriteEvent("delta", ev.Delta); err != nil {
				// Consumer gone; the session stays open for cancel or accept.
				return
			}
		}
	}
}

// handleCancelStream handles POST /generation/stream/{id}/cancel
func (s *Server) handleCancelStream(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	if err := s.streams.Cancel(tc.TenantID, sessionID); err != nil {
		s.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAcceptStream handles POST /generation/stream/{id}/accept
func (s *Server) handleAcceptStream(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	var req acceptRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rec, err := s.streams.Accept(r.Context(), tc.TenantID, sessionID, req.Edits)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, rec)
}

// handleDiscardStream handles POST /generation/stream/{id}/discard
func (s *Server) handleDiscardStream(w http.ResponseWriter, r *http.Request) {
	tc, err := middleware.GetTenant(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	if err := s.streams.Discard(tc.TenantID, sessionID); err != nil {
		s.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
