// Package stream manages live generation sessions: one ephemeral delta
// channel per requester, never persisted. Completed results go straight to
// the accept path without touching the job store or the pending-review state.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/types"
)

// Store is the persistence surface the session manager needs.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*types.Tenant, error)
	CreateContentRecord(ctx context.Context, rec *types.ContentRecord) error
}

// requesterKey identifies the holder of the single-writer slot.
type requesterKey struct {
	tenantID   uuid.UUID
	operatorID uuid.UUID
}

// Manager enforces the one-active-session-per-requester policy and retains
// completed results until they are accepted or discarded.
type Manager struct {
	store    Store
	provider ai.Provider
	log      zerolog.Logger

	mu        sync.Mutex
	active    map[requesterKey]*Session
	completed map[uuid.UUID]*Session
}

// NewManager creates a streaming session manager.
func NewManager(store Store, provider ai.Provider, log zerolog.Logger) *Manager {
	return &Manager{
		store:     store,
		provider:  provider,
		log:       log,
		active:    make(map[requesterKey]*Session),
		completed: make(map[uuid.UUID]*Session),
	}
}

// Open begins a streaming session for the requester. It fails with
// SessionAlreadyActive while the requester holds an active session; the slot
// frees on any terminal event or cancellation.
func (m *Manager) Open(ctx context.Context, tenantID, operatorID uuid.UUID, req types.GenerationRequest) (*Session, error) {
	if _, err := types.ParseContentType(string(req.ContentType)); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, err := m.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil || !tenant.AIEnabled {
		return nil, &types.ErrGenerationDisabled{TenantID: tenantID}
	}

	key := requesterKey{tenantID: tenantID, operatorID: operatorID}

	m.mu.Lock()
	if _, held := m.active[key]; held {
		m.mu.Unlock()
		return nil, &types.ErrSessionAlreadyActive{}
	}

	// Generation outlives the opening request: the session must survive a
	// consumer disconnect so its result stays available for accept.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	session := &Session{
		ID:           uuid.New(),
		TenantID:     tenantID,
		OperatorID:   operatorID,
		Request:      req,
		state:        types.SessionActive,
		events:       make(chan ai.Event),
		done:         make(chan struct{}),
		consumerGone: make(chan struct{}),
		cancel:       cancel,
		openedAt:     time.Now().UTC(),
	}
	m.active[key] = session
	m.mu.Unlock()

	providerEvents, err := m.provider.GenerateStream(streamCtx, req)
	if err != nil {
		m.release(session)
		cancel()
		return nil, err
	}

	go m.relay(session, providerEvents)

	m.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("session_id", session.ID.String()).
		Str("content_type", string(req.ContentType)).
		Msg("streaming session opened")

	return session, nil
}

// relay forwards provider events to the session's consumer, recording the
// terminal outcome. A cancelled session swallows whatever the provider still
// emits: cancellation promises no further events. A detached consumer only
// stops delivery; the relay keeps draining the provider so the terminal
// result still lands and stays available for accept.
func (m *Manager) relay(session *Session, providerEvents <-chan ai.Event) {
	defer close(session.events)

	deliver := func(ev ai.Event) bool {
		select {
		case session.events <- ev:
			return true
		case <-session.consumerGone:
			return true
		case <-session.done:
			return false
		}
	}

	for ev := range providerEvents {
		if session.State() == types.SessionCancelled {
			return
		}

		switch {
		case ev.Err != nil:
			if session.transition(types.SessionActive, types.SessionErrored) {
				m.release(session)
				session.cancel()
				deliver(ev)
			}
			return
		case ev.Result != nil:
			session.setResult(ev.Result)
			if session.transition(types.SessionActive, types.SessionCompleted) {
				m.release(session)
				m.retain(session)
				session.cancel()
				m.log.Info().
					Str("tenant_id", session.TenantID.String()).
					Str("session_id", session.ID.String()).
					Dur("elapsed", time.Since(session.openedAt)).
					Msg("streaming session completed")
				deliver(ev)
			}
			return
		default:
			if !deliver(ev) {
				return
			}
		}
	}
}

// Cancel aborts an active session: provider work is cancelled, accumulated
// state discarded, and no further events are emitted. Cancelling a session
// that already hit a terminal event is a no-op.
func (m *Manager) Cancel(tenantID, sessionID uuid.UUID) error {
	m.mu.Lock()
	var session *Session
	for _, s := range m.active {
		if s.ID == sessionID && s.TenantID == tenantID {
			session = s
			break
		}
	}
	m.mu.Unlock()

	if session == nil {
		return &types.ErrNotFound{Kind: "session", ID: sessionID}
	}

	if session.transition(types.SessionActive, types.SessionCancelled) {
		close(session.done)
		session.cancel()
		m.release(session)
		m.log.Info().
			Str("tenant_id", tenantID.String()).
			Str("session_id", sessionID.String()).
			Msg("streaming session cancelled")
	}
	return nil
}

// Accept turns a completed session's result into a content record, merging
// any field-level edits, and invalidates the session handle.
func (m *Manager) Accept(ctx context.Context, tenantID, sessionID uuid.UUID, edits types.ContentFields) (*types.ContentRecord, error) {
	session := m.takeCompleted(tenantID, sessionID)
	if session == nil {
		return nil, &types.ErrNotFound{Kind: "session", ID: sessionID}
	}

	tenant, err := m.store.GetTenant(ctx, tenantID)
	if err != nil {
		m.retain(session)
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
		ContentType:      session.Request.ContentType,
		Fields:           session.Result().Merge(edits),
		ModerationStatus: status,
		Source:           types.SourceInteractiveAI,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.CreateContentRecord(ctx, rec); err != nil {
		// The result is not lost on a failed insert: accept stays retryable.
		m.retain(session)
		return nil, err
	}
	return rec, nil
}

// Discard drops a completed session's result without creating a record.
// There is no reject state for streams: nothing was ever persisted.
func (m *Manager) Discard(tenantID, sessionID uuid.UUID) error {
	if m.takeCompleted(tenantID, sessionID) == nil {
		return &types.ErrNotFound{Kind: "session", ID: sessionID}
	}
	return nil
}

// release frees the requester's single-writer slot.
func (m *Manager) release(session *Session) {
	key := requesterKey{tenantID: session.TenantID, operatorID: session.OperatorID}
	m.mu.Lock()
	if m.active[key] == session {
		delete(m.active, key)
	}
	m.mu.Unlock()
}

// retain keeps a completed session's result around for accept or discard.
func (m *Manager) retain(session *Session) {
	m.mu.Lock()
	m.completed[session.ID] = session
	m.mu.Unlock()
}

// takeCompleted removes and returns a completed session, scoped to the
// tenant so a foreign session id behaves as absent.
func (m *Manager) takeCompleted(tenantID, sessionID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.completed[sessionID]
	if !ok || session.TenantID != tenantID {
		return nil
	}
	delete(m.completed, sessionID)
	return session
}
