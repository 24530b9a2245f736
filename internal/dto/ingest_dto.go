package dto

// Outcome statuses reported per ingested event.
const (
	IngestStatusScored  = "SCORED"
	IngestStatusDeduped = "DEDUPED"
	IngestStatusError   = "ERROR"
)

// IngestRequest is a batch of attempt events.
type IngestRequest struct {
	Events []AttemptEventRequest `json:"events" validate:"required,dive"`
}

// AttemptEventRequest is one attempt event as produced by a coaching centre.
// Timestamps stay raw strings so a malformed value fails only its own event.
type AttemptEventRequest struct {
	EventID      string            `json:"event_id" validate:"required,max=255"`
	StudentName  string            `json:"student_name" validate:"required,max=255"`
	StudentEmail *string           `json:"student_email,omitempty" validate:"omitempty,max=320"`
	StudentPhone *string           `json:"student_phone,omitempty" validate:"omitempty,max=64"`
	TestID       string            `json:"test_id" validate:"required,max=255"`
	TestName     string            `json:"test_name" validate:"required,max=255"`
	StartedAt    string            `json:"started_at"`
	SubmittedAt  *string           `json:"submitted_at,omitempty"`
	Answers      map[string]string `json:"answers" validate:"required"`
	Channel      string            `json:"channel,omitempty" validate:"omitempty,max=64"`
}

// IngestEventResult reports what happened to one event.
type IngestEventResult struct {
	EventID            string   `json:"event_id"`
	AttemptID          string   `json:"attempt_id,omitempty"`
	Status             string   `json:"status"`
	Score              *float64 `json:"score,omitempty"`
	CanonicalAttemptID string   `json:"canonical_attempt_id,omitempty"`
	Reason             string   `json:"reason,omitempty"`
}

// IngestSummary aggregates the outcome of a batch.
type IngestSummary struct {
	TotalReceived      int                 `json:"total_received"`
	Ingested           int                 `json:"ingested"`
	DuplicatesDetected int                 `json:"duplicates_detected"`
	Scored             int                 `json:"scored"`
	Errors             int                 `json:"errors"`
	Details            []IngestEventResult `json:"details"`
}
