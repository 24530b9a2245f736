package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// FlagRepository stores review flags.
type FlagRepository interface {
	Create(ctx context.Context, flag *models.Flag) error
	ListByAttempt(ctx context.Context, attemptID string) ([]models.Flag, error)
}

type flagRepository struct {
	db *gorm.DB
}

// NewFlagRepository constructs a flag repository.
func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

func (r *flagRepository) Create(ctx context.Context, flag *models.Flag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}

func (r *flagRepository) ListByAttempt(ctx context.Context, attemptID string) ([]models.Flag, error) {
	var flags []models.Flag
	if err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("created_at ASC").Find(&flags).Error; err != nil {
		return nil, err
	}

	return flags, nil
}
