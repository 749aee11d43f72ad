package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracebase/content-pipeline/internal/types"
)

func submitBody() string {
	return `{"content_type": "devotion", "model": "gemini-2.5-flash", "languages": ["en"]}`
}

// seedCompletedJob plants a completed job directly in the store.
func (ts *testServer) seedCompletedJob(t *testing.T, tenantID uuid.UUID) uuid.UUID {
	t.Helper()
	job := &types.GenerationJob{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ContentType: types.ContentDevotion,
		Model:       "gemini-2.5-flash",
		Languages:   []string{"en"},
		Status:      types.JobCompleted,
		Result: types.ContentFields{
			"title":              {"en": "Morning Light"},
			"body":               {"en": "A reflection on hope."},
			"scriptureReference": {types.LanguageAny: "Psalm 30:5"},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, ts.store.CreateJob(context.Background(), job))
	return job.ID
}

func (ts *testServer) seedRecord(t *testing.T, tenantID uuid.UUID, status types.ModerationStatus) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	rec := &types.ContentRecord{
		ID:               uuid.New(),
		TenantID:         tenantID,
		ContentType:      types.ContentDevotion,
		Fields:           types.ContentFields{"title": {"en": "Morning Light"}},
		ModerationStatus: status,
		Source:           types.SourceManual,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, ts.store.CreateContentRecord(context.Background(), rec))
	return rec.ID
}

func TestSubmitJob_Accepted(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodPost, "/generation/jobs", strings.NewReader(submitBody())), tenantID)
	w := httptest.NewRecorder()

	ts.handleSubmitJob(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var job types.GenerationJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, types.JobPending, job.Status)
	assert.Equal(t, tenantID, job.TenantID)
}

func TestSubmitJob_InvalidBody(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodPost, "/generation/jobs", strings.NewReader("{not json")), tenantID)
	w := httptest.NewRecorder()

	ts.handleSubmitJob(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitJob_UnknownContentType(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	body := `{"content_type": "poem", "model": "gemini-2.5-flash", "languages": ["en"]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/generation/jobs", strings.NewReader(body)), tenantID)
	w := httptest.NewRecorder()

	ts.handleSubmitJob(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitJob_GenerationDisabled(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(false)

	req := authed(httptest.NewRequest(http.MethodPost, "/generation/jobs", strings.NewReader(submitBody())), tenantID)
	w := httptest.NewRecorder()

	ts.handleSubmitJob(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPollJobs_EmptyList(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodGet, "/generation/jobs", nil), tenantID)
	w := httptest.NewRecorder()

	ts.handlePollJobs(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Jobs []types.GenerationJob `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Jobs)
	assert.Empty(t, resp.Jobs)
}

func TestAcceptJob_Created(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	jobID := ts.seedCompletedJob(t, tenantID)

	body := `{"edits": {"title": {"en": "Dawn Light"}}}`
	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/jobs/%s/accept", jobID), strings.NewReader(body)), tenantID)
	req.SetPathValue("id", jobID.String())
	w := httptest.NewRecorder()

	ts.handleAcceptJob(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var rec types.ContentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, types.StatusDraft, rec.ModerationStatus)
	assert.Equal(t, "Dawn Light", rec.Fields["title"]["en"])
	assert.Equal(t, "A reflection on hope.", rec.Fields["body"]["en"])
}

func TestAcceptJob_InvalidID(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodPost, "/generation/jobs/not-a-uuid/accept", nil), tenantID)
	req.SetPathValue("id", "not-a-uuid")
	w := httptest.NewRecorder()

	ts.handleAcceptJob(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcceptJob_NotFound(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	jobID := uuid.New()

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/jobs/%s/accept", jobID), nil), tenantID)
	req.SetPathValue("id", jobID.String())
	w := httptest.NewRecorder()

	ts.handleAcceptJob(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptJob_CrossTenantNotFound(t *testing.T) {
	ts := newTestServer()
	tenantA := ts.store.addTenant(true)
	tenantB := ts.store.addTenant(true)
	jobID := ts.seedCompletedJob(t, tenantA)

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/jobs/%s/accept", jobID), nil), tenantB)
	req.SetPathValue("id", jobID.String())
	w := httptest.NewRecorder()

	ts.handleAcceptJob(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectJob_PendingConflicts(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	job := &types.GenerationJob{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ContentType: types.ContentDevotion,
		Status:      types.JobPending,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, ts.store.CreateJob(context.Background(), job))

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/jobs/%s/reject", job.ID), nil), tenantID)
	req.SetPathValue("id", job.ID.String())
	w := httptest.NewRecorder()

	ts.handleRejectJob(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRejectJob_NoContent(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	jobID := ts.seedCompletedJob(t, tenantID)

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/jobs/%s/reject", jobID), nil), tenantID)
	req.SetPathValue("id", jobID.String())
	w := httptest.NewRecorder()

	ts.handleRejectJob(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRegenerateJob_Accepted(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	jobID := ts.seedCompletedJob(t, tenantID)

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/jobs/%s/regenerate", jobID), nil), tenantID)
	req.SetPathValue("id", jobID.String())
	w := httptest.NewRecorder()

	ts.handleRegenerateJob(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	var job types.GenerationJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.NotEqual(t, jobID, job.ID)
	assert.Equal(t, types.JobPending, job.Status)
}

func TestOpenStream_SSE(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodPost, "/generation/stream", strings.NewReader(submitBody())), tenantID)
	w := httptest.NewRecorder()

	ts.handleOpenStream(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: session")
	assert.Contains(t, body, "event: delta")
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, "Morning Light")
}

func TestOpenStream_GenerationDisabled(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(false)

	req := authed(httptest.NewRequest(http.MethodPost, "/generation/stream", strings.NewReader(submitBody())), tenantID)
	w := httptest.NewRecorder()

	ts.handleOpenStream(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelStream_NotFound(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	sessionID := uuid.New()

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/stream/%s/cancel", sessionID), nil), tenantID)
	req.SetPathValue("id", sessionID.String())
	w := httptest.NewRecorder()

	ts.handleCancelStream(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcceptStream_AfterCompletion(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	// Run a full streaming session first.
	open := authed(httptest.NewRequest(http.MethodPost, "/generation/stream", strings.NewReader(submitBody())), tenantID)
	openW := httptest.NewRecorder()
	ts.handleOpenStream(openW, open)
	require.Equal(t, http.StatusOK, openW.Code)

	sessionID := sessionIDFromSSE(t, openW.Body.String())

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/generation/stream/%s/accept", sessionID), nil), tenantID)
	req.SetPathValue("id", sessionID)
	w := httptest.NewRecorder()

	ts.handleAcceptStream(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var rec types.ContentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, types.SourceInteractiveAI, rec.Source)
	assert.Equal(t, types.StatusDraft, rec.ModerationStatus)
}

// sessionIDFromSSE pulls the session id out of the first SSE data line.
func sessionIDFromSSE(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var payload struct {
			SessionID string `json:"session_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload))
		require.NotEmpty(t, payload.SessionID)
		return payload.SessionID
	}
	t.Fatal("no session event in SSE body")
	return ""
}

func TestReviewQueue_FilterAndOrder(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	ts.seedRecord(t, tenantID, types.StatusPendingReview)
	ts.seedRecord(t, tenantID, types.StatusDraft)

	req := authed(httptest.NewRequest(http.MethodGet, "/review-queue", nil), tenantID)
	w := httptest.NewRecorder()

	ts.handleReviewQueue(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []types.ContentRecord `json:"items"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, types.StatusPendingReview, resp.Items[0].ModerationStatus)
}

func TestReviewQueue_BadContentTypeFilter(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodGet, "/review-queue?content_type=poem", nil), tenantID)
	w := httptest.NewRecorder()

	ts.handleReviewQueue(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveContent_WithSchedule(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	recordID := ts.seedRecord(t, tenantID, types.StatusPendingReview)

	body := fmt.Sprintf(`{"scheduled_publish_at": %q}`, time.Now().UTC().Add(24*time.Hour).Format(time.RFC3339))
	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/content/%s/approve", recordID), strings.NewReader(body)), tenantID)
	req.SetPathValue("id", recordID.String())
	w := httptest.NewRecorder()

	ts.handleApproveContent(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var rec types.ContentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, types.StatusApproved, rec.ModerationStatus)
	assert.NotNil(t, rec.ScheduledPublishAt)
}

func TestRejectContent_TerminalConflicts(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	recordID := ts.seedRecord(t, tenantID, types.StatusApproved)

	req := authed(httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/content/%s/reject", recordID), strings.NewReader(`{"reason": "late"}`)), tenantID)
	req.SetPathValue("id", recordID.String())
	w := httptest.NewRecorder()

	ts.handleRejectContent(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBulkApprove_PartialOutcome(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)
	good := ts.seedRecord(t, tenantID, types.StatusPendingReview)
	missing := uuid.New()

	payload, err := json.Marshal(map[string]any{"ids": []uuid.UUID{good, missing}})
	require.NoError(t, err)

	req := authed(httptest.NewRequest(http.MethodPost, "/content/bulk-approve", bytes.NewReader(payload)), tenantID)
	w := httptest.NewRecorder()

	ts.handleBulkApprove(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome types.BulkOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, []uuid.UUID{good}, outcome.Succeeded)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, missing, outcome.Failed[0].ID)
}

func TestBulkReject_EmptyIDs(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	req := authed(httptest.NewRequest(http.MethodPost, "/content/bulk-reject", strings.NewReader(`{"ids": []}`)), tenantID)
	w := httptest.NewRecorder()

	ts.handleBulkReject(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutonomousTrigger_Disabled(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(false)

	req := authed(httptest.NewRequest(http.MethodPost, "/autonomous/trigger", nil), tenantID)
	w := httptest.NewRecorder()

	ts.handleAutonomousTrigger(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAutonomousTrigger_Accepted(t *testing.T) {
	ts := newTestServer()
	tenantID := ts.store.addTenant(true)

	body := `{"content_types": ["devotion"]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/autonomous/trigger", strings.NewReader(body)), tenantID)
	w := httptest.NewRecorder()

	ts.handleAutonomousTrigger(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The run is asynchronous; poll the store for the generated record.
	deadline := time.Now().Add(5 * time.Second)
	for {
		records, err := ts.store.ListContentByStatus(context.Background(), tenantID, types.StatusPendingReview, nil)
		require.NoError(t, err)
		if len(records) == 1 {
			assert.Equal(t, types.SourceAutonomousAI, records[0].Source)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("autonomous record never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
