// Package types provides type definitions for structured data used throughout the content pipeline.
package types

// ContentType identifies one of the spiritual content collections the
// pipeline can generate and moderate.
type ContentType string

const (
	ContentDevotion        ContentType = "devotion"
	ContentVerse           ContentType = "verse"
	ContentFigure          ContentType = "figure"
	ContentQuiz            ContentType = "quiz"
	ContentStudy           ContentType = "study"
	ContentDevotionPlan    ContentType = "devotionPlan"
	ContentTopicalCategory ContentType = "topicalCategory"
	ContentTopicalVerse    ContentType = "topicalVerse"
	ContentShareableImage  ContentType = "shareableImage"
)

// AllContentTypes lists every recognized content type.
var AllContentTypes = []ContentType{
	ContentDevotion,
	ContentVerse,
	ContentFigure,
	ContentQuiz,
	ContentStudy,
	ContentDevotionPlan,
	ContentTopicalCategory,
	ContentTopicalVerse,
	ContentShareableImage,
}

// ParseContentType validates a raw string against the known content types.
func ParseContentType(raw string) (ContentType, error) {
	for _, ct := range AllContentTypes {
		if string(ct) == raw {
			return ct, nil
		}
	}
	return "", &ErrInvalidContentType{Value: raw}
}

// JobStatus represents the lifecycle state of a queued generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobGenerating JobStatus = "generating"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is one of the two terminal states.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ModerationStatus is the publish-readiness state of a content record,
// independent of how the record was produced.
type ModerationStatus string

const (
	StatusDraft         ModerationStatus = "draft"
	StatusPendingReview ModerationStatus = "pending_review"
	StatusApproved      ModerationStatus = "approved"
	StatusRejected      ModerationStatus = "rejected"
)

// CanTransitionTo reports whether the moderation state machine allows a move
// from s to next. Approved and Rejected are terminal; a rejected record must
// be resubmitted as a new record rather than revived.
func (s ModerationStatus) CanTransitionTo(next ModerationStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPendingReview || next == StatusApproved
	case StatusPendingReview:
		return next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// Source records which path produced a content record.
type Source string

const (
	SourceManual        Source = "manual"
	SourceInteractiveAI Source = "interactive_ai"
	SourceAutonomousAI  Source = "autonomous_ai"
)

// SessionState represents the lifecycle state of a streaming session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionCancelled SessionState = "cancelled"
	SessionErrored   SessionState = "errored"
)

func (s SessionState) String() string {
	return string(s)
}

// ValidateModerationExtras checks the side constraints the moderation state
// machine attaches to its terminal states: a scheduled publish time only
// makes sense on approval, a rejection reason only on rejection.
func ValidateModerationExtras(next ModerationStatus, hasSchedule, hasReason bool) error {
	if hasSchedule && next != StatusApproved {
		return &ErrValidation{Field: "scheduled_publish_at", Message: "only valid when approving"}
	}
	if hasReason && next != StatusRejected {
		return &ErrValidation{Field: "rejection_reason", Message: "only valid when rejecting"}
	}
	return nil
}
