package dto

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/scoring"
)

// TestResponse is the public view of a test and its scoring setup.
type TestResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	SourceRef     string         `json:"source_ref"`
	MaxMarks      int            `json:"max_marks"`
	MarkingScheme scoring.Scheme `json:"marking_scheme" copier:"-"`
	ScoringMode   scoring.Mode   `json:"scoring_mode"`
	HasAnswerKey  bool           `json:"has_answer_key"`
	AnswerKeySize int            `json:"answer_key_size"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewTestResponse maps a test model.
func NewTestResponse(test models.Test) TestResponse {
	var response TestResponse
	_ = copier.Copy(&response, &test)

	key := test.AnswerKeyMap()
	response.MarkingScheme = test.Scheme()
	response.AnswerKeySize = len(key)
	response.HasAnswerKey = len(key) > 0
	response.ScoringMode = scoring.ModePlaceholder
	if response.HasAnswerKey {
		response.ScoringMode = scoring.ModeAnswerKey
	}
	return response
}

// TestScoringUpdateRequest changes how a test is scored. Omitted fields are kept.
type TestScoringUpdateRequest struct {
	MaxMarks       *int              `json:"max_marks" validate:"omitempty,gt=0"`
	MarkingScheme  *scoring.Scheme   `json:"marking_scheme"`
	AnswerKey      map[string]string `json:"answer_key" validate:"omitempty,dive,keys,required,max=32,endkeys,required,max=16"`
	ClearAnswerKey bool              `json:"clear_answer_key"`
	Rescore        bool              `json:"rescore"`
}

// TestScoringUpdateResponse reports the new setup and how many attempts were rescored.
type TestScoringUpdateResponse struct {
	Test     TestResponse `json:"test"`
	Rescored int          `json:"rescored"`
}
