package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/jobs"
	"github.com/gracebase/content-pipeline/internal/moderation"
	"github.com/gracebase/content-pipeline/internal/server/middleware"
	"github.com/gracebase/content-pipeline/internal/stream"
	"github.com/gracebase/content-pipeline/internal/types"
)

// mockStore implements the store surfaces of every service for testing.
type mockStore struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*types.Tenant
	jobs    map[uuid.UUID]*types.GenerationJob
	records map[uuid.UUID]*types.ContentRecord
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants: make(map[uuid.UUID]*types.Tenant),
		jobs:    make(map[uuid.UUID]*types.GenerationJob),
		records: make(map[uuid.UUID]*types.ContentRecord),
	}
}

func (m *mockStore) addTenant(aiEnabled bool) uuid.UUID {
	id := uuid.New()
	m.tenants[id] = &types.Tenant{ID: id, Name: "test", AIEnabled: aiEnabled}
	return id
}

func (m *mockStore) GetTenant(_ context.Context, id uuid.UUID) (*types.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tenants[id], nil
}

func (m *mockStore) CreateJob(_ context.Context, job *types.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockStore) GetJob(_ context.Context, tenantID, jobID uuid.UUID) (*types.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *mockStore) ListActiveJobs(_ context.Context, tenantID uuid.UUID) ([]types.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.GenerationJob
	for _, job := range m.jobs {
		if job.TenantID == tenantID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockStore) MarkJobGenerating(_ context.Context, tenantID, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.TenantID != tenantID || job.Status != types.JobPending {
		return false, nil
	}
	job.Status = types.JobGenerating
	return true, nil
}

func (m *mockStore) CompleteJob(_ context.Context, tenantID, jobID uuid.UUID, status types.JobStatus, result types.ContentFields, errorMessage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.TenantID != tenantID || job.Status.IsTerminal() {
		return false, nil
	}
	job.Status = status
	job.Result = result
	job.ErrorMessage = errorMessage
	return true, nil
}

func (m *mockStore) DeleteJob(_ context.Context, tenantID, jobID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return false, nil
	}
	delete(m.jobs, jobID)
	return true, nil
}

func (m *mockStore) DeleteJobAndCreateRecord(_ context.Context, tenantID, jobID uuid.UUID, rec *types.ContentRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return false, nil
	}
	delete(m.jobs, jobID)
	cp := *rec
	m.records[rec.ID] = &cp
	return true, nil
}

func (m *mockStore) FailStaleJobs(_ context.Context, _ int) (int, error) {
	return 0, nil
}

func (m *mockStore) CreateContentRecord(_ context.Context, rec *types.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockStore) GetContentRecord(_ context.Context, tenantID, recordID uuid.UUID) (*types.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordID]
	if !ok || rec.TenantID != tenantID {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockStore) ListContentByStatus(_ context.Context, tenantID uuid.UUID, status types.ModerationStatus, contentType *types.ContentType) ([]types.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ContentRecord
	for _, rec := range m.records {
		if rec.TenantID != tenantID || rec.ModerationStatus != status {
			continue
		}
		if contentType != nil && rec.ContentType != *contentType {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) UpdateModerationStatusCAS(_ context.Context, tenantID, recordID uuid.UUID, from, to types.ModerationStatus, scheduledAt *time.Time, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordID]
	if !ok || rec.TenantID != tenantID || rec.ModerationStatus != from {
		return false, nil
	}
	rec.ModerationStatus = to
	rec.ScheduledPublishAt = scheduledAt
	rec.RejectionReason = reason
	rec.UpdatedAt = time.Now().UTC()
	return true, nil
}

// stubProvider returns canned devotion fields and a canned delta stream.
type stubProvider struct{}

func (p *stubProvider) Generate(_ context.Context, _ types.GenerationRequest) (types.ContentFields, error) {
	return types.ContentFields{
		"title":              {"en": "Morning Light"},
		"body":               {"en": "A reflection on hope."},
		"scriptureReference": {types.LanguageAny: "Psalm 30:5"},
	}, nil
}

func (p *stubProvider) GenerateStream(ctx context.Context, _ types.GenerationRequest) (<-chan ai.Event, error) {
	ch := make(chan ai.Event)
	go func() {
		defer close(ch)
		events := []ai.Event{
			{Delta: &types.Delta{Path: "title/en", Append: "Morning Light"}},
			{Result: types.ContentFields{
				"title":              {"en": "Morning Light"},
				"body":               {"en": "A reflection on hope."},
				"scriptureReference": {types.LanguageAny: "Psalm 30:5"},
			}},
		}
		for _, ev := range events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (p *stubProvider) Close() error { return nil }

// testServer wires a server around the mock store, with no HTTP listener.
type testServer struct {
	*Server
	store *mockStore
}

func newTestServer() *testServer {
	store := newMockStore()
	provider := &stubProvider{}
	log := zerolog.Nop()
	s := &Server{
		tenants:    store,
		jobs:       jobs.NewService(store, nil, log),
		streams:    stream.NewManager(store, provider, log),
		moderation: moderation.NewService(store, provider, log),
		log:        log,
	}
	return &testServer{Server: s, store: store}
}

// authed attaches a tenant context the way the auth middleware would.
func authed(req *http.Request, tenantID uuid.UUID) *http.Request {
	tc := &middleware.TenantContext{TenantID: tenantID, OperatorID: uuid.New()}
	return req.WithContext(middleware.WithTenant(req.Context(), tc))
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&types.ErrInvalidContentType{Value: "poem"}, http.StatusBadRequest},
		{&types.ErrValidation{Field: "x", Message: "y"}, http.StatusBadRequest},
		{&types.ErrGenerationDisabled{}, http.StatusForbidden},
		{&types.ErrNotFound{Kind: "job"}, http.StatusNotFound},
		{&types.ErrAlreadyTerminal{}, http.StatusConflict},
		{&types.ErrNotCompleted{}, http.StatusConflict},
		{&types.ErrInvalidTransition{}, http.StatusConflict},
		{&types.ErrSessionAlreadyActive{}, http.StatusConflict},
		{&types.ErrProvider{Message: "boom"}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "error %v", tt.err)
	}
}
