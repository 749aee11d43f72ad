package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidContentType indicates an unrecognized content type value.
type ErrInvalidContentType struct {
	Value string
}

func (e *ErrInvalidContentType) Error() string {
	return fmt.Sprintf("invalid content type: %q", e.Value)
}

// ErrGenerationDisabled indicates AI generation is not enabled for the tenant.
type ErrGenerationDisabled struct {
	TenantID uuid.UUID
}

func (e *ErrGenerationDisabled) Error() string {
	return fmt.Sprintf("AI generation is disabled for tenant %s", e.TenantID)
}

// ErrNotFound indicates the job or record does not exist within the caller's
// tenant. Cross-tenant access deliberately surfaces as this same error so
// that foreign data is never confirmed to exist.
type ErrNotFound struct {
	Kind string
	ID   uuid.UUID
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ErrAlreadyTerminal indicates a second terminal transition was attempted on
// a job that already completed or failed.
type ErrAlreadyTerminal struct {
	JobID  uuid.UUID
	Status JobStatus
}

func (e *ErrAlreadyTerminal) Error() string {
	return fmt.Sprintf("job %s is already terminal (%s)", e.JobID, e.Status)
}

// ErrNotCompleted indicates accept was called on a job that has not
// completed successfully.
type ErrNotCompleted struct {
	JobID  uuid.UUID
	Status JobStatus
}

func (e *ErrNotCompleted) Error() string {
	return fmt.Sprintf("job %s is not completed (%s)", e.JobID, e.Status)
}

// ErrInvalidTransition indicates a disallowed moderation state change.
type ErrInvalidTransition struct {
	From ModerationStatus
	To   ModerationStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid moderation transition: %s -> %s", e.From, e.To)
}

// ErrSessionAlreadyActive indicates the requester already holds an active
// streaming session.
type ErrSessionAlreadyActive struct{}

func (e *ErrSessionAlreadyActive) Error() string {
	return "a streaming session is already active for this requester"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrProvider wraps an opaque failure surfaced from the generation provider.
type ErrProvider struct {
	Message string
	Cause   error
}

func (e *ErrProvider) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ErrProvider) Unwrap() error {
	return e.Cause
}
