package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// ScoreRepository persists the current score of an attempt.
type ScoreRepository interface {
	GetByAttemptID(ctx context.Context, attemptID string) (models.AttemptScore, error)
	Upsert(ctx context.Context, score *models.AttemptScore) error
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository constructs a score repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) GetByAttemptID(ctx context.Context, attemptID string) (models.AttemptScore, error) {
	var score models.AttemptScore
	if err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&score).Error; err != nil {
		return models.AttemptScore{}, err
	}

	return score, nil
}

// Upsert overwrites any previous score for the same attempt.
func (r *scoreRepository) Upsert(ctx context.Context, score *models.AttemptScore) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}},
			UpdateAll: true,
		}).
		Create(score).Error
}
