package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptStatus tracks where an attempt is in the processing lifecycle.
type AttemptStatus string

const (
	AttemptStatusIngested AttemptStatus = "INGESTED"
	AttemptStatusDeduped  AttemptStatus = "DEDUPED"
	AttemptStatusScored   AttemptStatus = "SCORED"
	AttemptStatusFlagged  AttemptStatus = "FLAGGED"
)

// Valid reports whether the status is one of the known values.
func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptStatusIngested, AttemptStatusDeduped, AttemptStatusScored, AttemptStatusFlagged:
		return true
	default:
		return false
	}
}

// DedupCandidateStatuses lists the statuses an attempt may hold to be a canonical attempt.
var DedupCandidateStatuses = []AttemptStatus{AttemptStatusIngested, AttemptStatusScored}

// AnswerSheet maps a question identifier to the chosen option.
type AnswerSheet map[string]string

// Attempt is one student's submission of a test.
type Attempt struct {
	ID                   string                          `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID            string                          `gorm:"type:varchar(36);not null;index" json:"student_id"`
	TestID               string                          `gorm:"type:varchar(36);not null;index" json:"test_id"`
	SourceEventID        *string                         `gorm:"size:255;index" json:"source_event_id"`
	StartedAt            time.Time                       `gorm:"not null;index" json:"started_at"`
	SubmittedAt          *time.Time                      `json:"submitted_at"`
	Answers              datatypes.JSONType[AnswerSheet] `gorm:"type:json;not null" json:"answers"`
	RawPayload           datatypes.JSON                  `gorm:"type:json;not null" json:"-"`
	Status               AttemptStatus                   `gorm:"size:16;not null;index" json:"status"`
	DuplicateOfAttemptID *string                         `gorm:"type:varchar(36);index" json:"duplicate_of_attempt_id"`
	Flagged              bool                            `gorm:"not null;default:false" json:"flagged"`
	FlaggedAt            *time.Time                      `json:"flagged_at"`
	CreatedAt            time.Time                       `json:"created_at"`
	UpdatedAt            time.Time                       `json:"updated_at"`
	Student              Student                         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Test                 Test                            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test"`
	Score                *AttemptScore                   `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"score,omitempty"`
	Flags                []Flag                          `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"flags,omitempty"`
}

// BeforeCreate assigns the identifier and JSON column defaults.
func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AttemptStatusIngested
	}
	if a.Answers.Data() == nil {
		a.Answers = datatypes.NewJSONType(AnswerSheet{})
	}
	if len(a.RawPayload) == 0 {
		a.RawPayload = datatypes.JSON([]byte("{}"))
	}
	return nil
}

// AnswerMap returns the answers as a plain map.
func (a Attempt) AnswerMap() map[string]string {
	answers := a.Answers.Data()
	if answers == nil {
		return map[string]string{}
	}
	return answers
}
