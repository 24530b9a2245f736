package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// ActivityLogFilter narrows audit trail queries. Empty fields match everything.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Since      *time.Time
}

func (f ActivityLogFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Scopes(
		whereIf("actor_id", f.ActorID),
		whereIf("action", f.Action),
		whereIf("entity_type", f.EntityType),
		whereIf("entity_id", f.EntityID),
	)
	if f.Since != nil {
		db = db.Where("created_at >= ?", f.Since.UTC())
	}
	return db
}

// ActivityLogRepository stores who flagged, recomputed or rescored what.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns the newest entries first along with the unpaginated total.
func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Scopes(filter.scope, paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
