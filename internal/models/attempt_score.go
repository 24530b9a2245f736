package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptScore is the current score of an attempt. Recomputation overwrites it.
type AttemptScore struct {
	AttemptID   string         `gorm:"type:varchar(36);primaryKey" json:"attempt_id"`
	Correct     int            `gorm:"not null" json:"correct"`
	Wrong       int            `gorm:"not null" json:"wrong"`
	Skipped     int            `gorm:"not null" json:"skipped"`
	Accuracy    float64        `gorm:"not null" json:"accuracy"`
	NetCorrect  int            `gorm:"not null" json:"net_correct"`
	Score       float64        `gorm:"not null" json:"score"`
	ComputedAt  time.Time      `gorm:"not null" json:"computed_at"`
	Explanation datatypes.JSON `gorm:"type:json;not null" json:"explanation"`
}
