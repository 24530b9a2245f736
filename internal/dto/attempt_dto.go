package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/scoring"
)

// AttemptListRequest carries the query filters for listing attempts.
type AttemptListRequest struct {
	TestID        string `query:"test_id" validate:"omitempty,max=36"`
	StudentID     string `query:"student_id" validate:"omitempty,max=36"`
	Status        string `query:"status" validate:"omitempty,oneof=INGESTED DEDUPED SCORED FLAGGED"`
	HasDuplicates string `query:"has_duplicates" validate:"omitempty,oneof=true false"`
	DateFrom      string `query:"date_from"`
	DateTo        string `query:"date_to"`
	Search        string `query:"search" validate:"omitempty,max=255"`
	Page          int    `query:"page" validate:"omitempty,min=1"`
	PerPage       int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

// ScoreResponse is the public view of an attempt score.
type ScoreResponse struct {
	AttemptID   string              `json:"attempt_id"`
	Correct     int                 `json:"correct"`
	Wrong       int                 `json:"wrong"`
	Skipped     int                 `json:"skipped"`
	Accuracy    float64             `json:"accuracy"`
	NetCorrect  int                 `json:"net_correct"`
	Score       float64             `json:"score"`
	ComputedAt  time.Time           `json:"computed_at"`
	Explanation scoring.Explanation `json:"explanation"`
}

// NewScoreResponse maps a stored score.
func NewScoreResponse(score models.AttemptScore) ScoreResponse {
	var explanation scoring.Explanation
	_ = json.Unmarshal(score.Explanation, &explanation)

	return ScoreResponse{
		AttemptID:   score.AttemptID,
		Correct:     score.Correct,
		Wrong:       score.Wrong,
		Skipped:     score.Skipped,
		Accuracy:    score.Accuracy,
		NetCorrect:  score.NetCorrect,
		Score:       score.Score,
		ComputedAt:  score.ComputedAt,
		Explanation: explanation,
	}
}

// AttemptResponse is the list view of an attempt.
type AttemptResponse struct {
	ID                   string            `json:"id"`
	StudentID            string            `json:"student_id"`
	TestID               string            `json:"test_id"`
	SourceEventID        *string           `json:"source_event_id"`
	StartedAt            time.Time         `json:"started_at"`
	SubmittedAt          *time.Time        `json:"submitted_at"`
	Answers              map[string]string `json:"answers"`
	Status               string            `json:"status"`
	DuplicateOfAttemptID *string           `json:"duplicate_of_attempt_id"`
	DuplicateCount       int64             `json:"duplicate_count"`
	Flagged              bool              `json:"flagged"`
	FlaggedAt            *time.Time        `json:"flagged_at"`
	Student              *StudentResponse  `json:"student,omitempty"`
	Test                 *TestOption       `json:"test,omitempty"`
	Score                *ScoreResponse    `json:"score"`
	CreatedAt            time.Time         `json:"created_at"`
}

// NewAttemptResponse maps an attempt with whatever associations were loaded.
func NewAttemptResponse(attempt models.Attempt, duplicateCount int64) AttemptResponse {
	response := AttemptResponse{
		ID:                   attempt.ID,
		StudentID:            attempt.StudentID,
		TestID:               attempt.TestID,
		SourceEventID:        attempt.SourceEventID,
		StartedAt:            attempt.StartedAt,
		SubmittedAt:          attempt.SubmittedAt,
		Answers:              attempt.AnswerMap(),
		Status:               string(attempt.Status),
		DuplicateOfAttemptID: attempt.DuplicateOfAttemptID,
		DuplicateCount:       duplicateCount,
		Flagged:              attempt.Flagged,
		FlaggedAt:            attempt.FlaggedAt,
		CreatedAt:            attempt.CreatedAt,
	}
	if attempt.Student.ID != "" {
		student := NewStudentResponse(attempt.Student)
		response.Student = &student
	}
	if attempt.Test.ID != "" {
		response.Test = &TestOption{ID: attempt.Test.ID, Name: attempt.Test.Name}
	}
	if attempt.Score != nil {
		score := NewScoreResponse(*attempt.Score)
		response.Score = &score
	}
	return response
}

// AttemptListResponse is a page of attempts.
type AttemptListResponse struct {
	Items      []AttemptResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// DuplicateThreadEntry is one member of a canonical attempt and its duplicates.
type DuplicateThreadEntry struct {
	ID          string    `json:"id"`
	StudentName string    `json:"student_name"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	Score       *float64  `json:"score"`
	IsCanonical bool      `json:"is_canonical"`
}

// NewDuplicateThreadEntry maps one thread member.
func NewDuplicateThreadEntry(attempt models.Attempt) DuplicateThreadEntry {
	entry := DuplicateThreadEntry{
		ID:          attempt.ID,
		StudentName: attempt.Student.FullName,
		Status:      string(attempt.Status),
		StartedAt:   attempt.StartedAt,
		IsCanonical: attempt.DuplicateOfAttemptID == nil,
	}
	if attempt.Score != nil {
		score := attempt.Score.Score
		entry.Score = &score
	}
	return entry
}

// AttemptDetailResponse is the full view of one attempt.
type AttemptDetailResponse struct {
	AttemptResponse
	RawPayload      json.RawMessage        `json:"raw_payload"`
	MarkingScheme   scoring.Scheme         `json:"marking_scheme"`
	Flags           []FlagResponse         `json:"flags"`
	DuplicateThread []DuplicateThreadEntry `json:"duplicate_thread"`
}

// FlagRequest raises a review concern.
type FlagRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// FlagResponse is the public view of a review flag.
type FlagResponse struct {
	ID            string    `json:"id"`
	AttemptID     string    `json:"attempt_id"`
	Reason        string    `json:"reason"`
	RaisedBy      string    `json:"raised_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	AttemptStatus string    `json:"attempt_status,omitempty"`
}

// NewFlagResponse maps a flag model.
func NewFlagResponse(flag models.Flag) FlagResponse {
	return FlagResponse{
		ID:        flag.ID,
		AttemptID: flag.AttemptID,
		Reason:    flag.Reason,
		RaisedBy:  flag.RaisedBy,
		CreatedAt: flag.CreatedAt,
	}
}
