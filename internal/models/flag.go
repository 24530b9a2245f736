package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Flag records a manual review concern raised against an attempt.
type Flag struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AttemptID string    `gorm:"type:varchar(36);not null;index" json:"attempt_id"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	RaisedBy  string    `gorm:"size:255" json:"raised_by"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns the identifier.
func (f *Flag) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
