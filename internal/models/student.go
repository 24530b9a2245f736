package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student is a learner identified by a normalized email or phone number.
type Student struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	Email     *string   `gorm:"size:320;index" json:"email"`
	Phone     *string   `gorm:"size:32;index" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns the identifier.
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
