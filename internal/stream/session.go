package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/types"
)

// Session is one live generation channel. It is ephemeral: nothing about it
// is ever persisted, and its handle is invalidated by a terminal event.
type Session struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	OperatorID uuid.UUID
	Request    types.GenerationRequest

	events       chan ai.Event
	done         chan struct{}
	consumerGone chan struct{}
	detachOnce   sync.Once
	cancel       context.CancelFunc
	openedAt     time.Time

	mu     sync.Mutex
	state  types.SessionState
	result types.ContentFields
}

// Events returns the ordered event sequence: zero or more deltas followed by
// at most one terminal event. The channel closes after the terminal event,
// or without one if the session was cancelled.
func (s *Session) Events() <-chan ai.Event {
	return s.events
}

// Detach signals that the consumer stopped reading Events. Undelivered
// events are dropped from then on; the session itself keeps running, so a
// completed result is still retained for accept or discard.
func (s *Session) Detach() {
	s.detachOnce.Do(func() { close(s.consumerGone) })
}

// State returns the session's current lifecycle state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the accumulated final payload of a completed session.
func (s *Session) Result() types.ContentFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// transition moves the state from one value to another atomically, reporting
// whether the move happened. Terminal states never transition again, which
// is what makes cancel racing a terminal event a no-op.
func (s *Session) transition(from, to types.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Session) setResult(fields types.ContentFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = fields
}
