package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Review actions captured in the activity log.
const (
	ActivityAttemptFlagged     = "attempt.flagged"
	ActivityAttemptRecomputed  = "attempt.recomputed"
	ActivityTestScoringUpdated = "test.scoring_updated"
)

// Entity types referenced by activity log entries.
const (
	ActivityEntityAttempt = "attempt"
	ActivityEntityTest    = "test"
)

// ActivityLog captures review actions taken by reviewers and administrators.
// ActorID is empty when review authentication is disabled.
type ActivityLog struct {
	ID         string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	ActorID    string            `gorm:"size:255;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:32;not null" json:"entity_type"`
	EntityID   string            `gorm:"type:varchar(36);not null;index" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns the identifier.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
