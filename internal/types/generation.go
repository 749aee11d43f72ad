package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GenerationRequest carries the parameters of one generation work order,
// shared by the queued and streaming entry points.
type GenerationRequest struct {
	ContentType  ContentType `json:"content_type" validate:"required"`
	Model        string      `json:"model" validate:"required"`
	CustomPrompt string      `json:"custom_prompt,omitempty"`
	Languages    []string    `json:"languages" validate:"required,min=1,dive,required"`
}

// Validate validates the GenerationRequest using the validator.
func (r *GenerationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// GenerationJob is an interactive, queued generation work order. Jobs are
// polled by the operator surface and leave the active set when accepted,
// rejected, or regenerated.
type GenerationJob struct {
	ID           uuid.UUID     `json:"id"`
	TenantID     uuid.UUID     `json:"tenant_id"`
	ContentType  ContentType   `json:"content_type"`
	Model        string        `json:"model"`
	CustomPrompt string        `json:"custom_prompt,omitempty"`
	Languages    []string      `json:"languages"`
	Status       JobStatus     `json:"status"`
	Result       ContentFields `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Request reconstructs the generation parameters the job was submitted with.
func (j *GenerationJob) Request() GenerationRequest {
	return GenerationRequest{
		ContentType:  j.ContentType,
		Model:        j.Model,
		CustomPrompt: j.CustomPrompt,
		Languages:    append([]string(nil), j.Languages...),
	}
}

// ContentRecord is a durable content item carrying its moderation state.
// Both the interactive and autonomous generation paths terminate in this
// shape, which is what the review queue operates on.
type ContentRecord struct {
	ID                 uuid.UUID        `json:"id"`
	TenantID           uuid.UUID        `json:"tenant_id"`
	ContentType        ContentType      `json:"content_type"`
	Fields             ContentFields    `json:"fields"`
	ModerationStatus   ModerationStatus `json:"moderation_status"`
	ScheduledPublishAt *time.Time       `json:"scheduled_publish_at,omitempty"`
	RejectionReason    string           `json:"rejection_reason,omitempty"`
	Source             Source           `json:"source"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Tenant is an isolated organization. Every job, record, and session is
// scoped by tenant; nothing crosses this boundary.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	AIEnabled    bool      `json:"ai_enabled"`
	AutoPublish  bool      `json:"auto_publish"`
	APITokenHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// BulkFailure reports why one item of a batch operation failed.
type BulkFailure struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// BulkOutcome is the per-item report of a batch moderation call. Items
// succeed or fail independently; a failure never rolls back the rest.
type BulkOutcome struct {
	Succeeded []uuid.UUID   `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// TypeOutcome reports the result of autonomous generation for one content type.
type TypeOutcome struct {
	ContentType ContentType `json:"content_type"`
	RecordID    uuid.UUID   `json:"record_id,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// AutonomousOutcome is the soft-failure report of an autonomous generation
// run: some content types may have produced a record while others failed.
type AutonomousOutcome struct {
	Outcomes []TypeOutcome `json:"outcomes"`
}

// Succeeded returns the outcomes that produced a record.
func (o AutonomousOutcome) Succeeded() []TypeOutcome {
	var ok []TypeOutcome
	for _, t := range o.Outcomes {
		if t.Error == "" {
			ok = append(ok, t)
		}
	}
	return ok
}
