package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/scoring"
)

// DefaultMaxMarks is applied to tests created during ingestion.
const DefaultMaxMarks = 400

// Test is an assessment that attempts are submitted against.
type Test struct {
	ID            string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string         `gorm:"size:255;not null;index" json:"name"`
	SourceRef     string         `gorm:"size:255" json:"source_ref"`
	MaxMarks      int            `gorm:"not null;default:400" json:"max_marks"`
	MarkingScheme datatypes.JSON `gorm:"column:negative_marking;type:json;not null" json:"negative_marking"`
	AnswerKey     datatypes.JSON `gorm:"type:json;not null" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// BeforeCreate assigns the identifier and JSON column defaults.
func (t *Test) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.MaxMarks <= 0 {
		t.MaxMarks = DefaultMaxMarks
	}
	if len(t.MarkingScheme) == 0 {
		t.MarkingScheme = datatypes.JSON([]byte(`{"correct":4,"wrong":-1,"skip":0}`))
	}
	if len(t.AnswerKey) == 0 {
		t.AnswerKey = datatypes.JSON([]byte("{}"))
	}
	return nil
}

// Scheme decodes the stored marking scheme.
func (t Test) Scheme() scoring.Scheme {
	return scoring.ParseScheme(t.MarkingScheme)
}

// AnswerKeyMap decodes the stored answer key. A malformed key reads as empty.
func (t Test) AnswerKeyMap() map[string]string {
	key := map[string]string{}
	if len(t.AnswerKey) == 0 {
		return key
	}
	if err := json.Unmarshal(t.AnswerKey, &key); err != nil {
		return map[string]string{}
	}
	return key
}
