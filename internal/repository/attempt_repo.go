package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// AttemptFilter narrows attempt listings.
type AttemptFilter struct {
	TestID        *string
	StudentID     *string
	Status        *models.AttemptStatus
	HasDuplicates *bool
	StartedFrom   *time.Time
	StartedTo     *time.Time
	Search        string
	Page          int
	PageSize      int
}

// AttemptRepository defines data operations for attempts.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id string) (models.Attempt, error)
	List(ctx context.Context, filter AttemptFilter) ([]models.Attempt, int64, error)
	ListDedupCandidates(ctx context.Context, testID string) ([]models.Attempt, error)
	ListByStatuses(ctx context.Context, testID string, statuses []models.AttemptStatus) ([]models.Attempt, error)
	ListDuplicates(ctx context.Context, canonicalID string) ([]models.Attempt, error)
	CountDuplicates(ctx context.Context, ids []string) (map[string]int64, error)
	ListScoredForTest(ctx context.Context, testID string) ([]models.Attempt, error)
	UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates the repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Attempt{}).
		Preload("Student").
		Preload("Test").
		Preload("Score")
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (models.Attempt, error) {
	var attempt models.Attempt
	err := r.baseQuery(ctx).
		Preload("Flags", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		Where("attempts.id = ?", id).
		First(&attempt).Error
	if err != nil {
		return models.Attempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) List(ctx context.Context, filter AttemptFilter) ([]models.Attempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Attempt{})

	if filter.TestID != nil {
		query = query.Where("attempts.test_id = ?", *filter.TestID)
	}
	if filter.StudentID != nil {
		query = query.Where("attempts.student_id = ?", *filter.StudentID)
	}
	if filter.Status != nil {
		query = query.Where("attempts.status = ?", *filter.Status)
	}
	if filter.HasDuplicates != nil {
		if *filter.HasDuplicates {
			query = query.Where("attempts.duplicate_of_attempt_id IS NOT NULL")
		} else {
			query = query.Where("attempts.duplicate_of_attempt_id IS NULL")
		}
	}
	if filter.StartedFrom != nil {
		query = query.Where("attempts.started_at >= ?", *filter.StartedFrom)
	}
	if filter.StartedTo != nil {
		query = query.Where("attempts.started_at <= ?", *filter.StartedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN students ON students.id = attempts.student_id").
			Where("LOWER(students.full_name) LIKE ? OR LOWER(students.email) LIKE ? OR students.phone LIKE ?", like, like, like)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Student").Preload("Test").Preload("Score").
		Scopes(paginate(filter.Page, filter.PageSize)).
		Order("attempts.started_at DESC").
		Order("attempts.id ASC")

	var attempts []models.Attempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

// ListDedupCandidates returns attempts of the test that may act as canonical
// attempts, in insertion order.
func (r *attemptRepository) ListDedupCandidates(ctx context.Context, testID string) ([]models.Attempt, error) {
	return r.ListByStatuses(ctx, testID, models.DedupCandidateStatuses)
}

func (r *attemptRepository) ListByStatuses(ctx context.Context, testID string, statuses []models.AttemptStatus) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("test_id = ?", testID).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Order("id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) ListDuplicates(ctx context.Context, canonicalID string) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Score").
		Where("duplicate_of_attempt_id = ?", canonicalID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	return attempts, nil
}

// CountDuplicates reports how many attempts reference each of the given ids.
func (r *attemptRepository) CountDuplicates(ctx context.Context, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		DuplicateOfAttemptID string
		Total                int64
	}
	err := r.db.WithContext(ctx).Model(&models.Attempt{}).
		Select("duplicate_of_attempt_id, COUNT(*) AS total").
		Where("duplicate_of_attempt_id IN ?", ids).
		Group("duplicate_of_attempt_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.DuplicateOfAttemptID] = row.Total
	}
	return counts, nil
}

// ListScoredForTest returns scored attempts of the test that carry a score row.
func (r *attemptRepository) ListScoredForTest(ctx context.Context, testID string) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := r.db.WithContext(ctx).
		InnerJoins("Score").
		Preload("Student").
		Where("attempts.test_id = ?", testID).
		Where("attempts.status = ?", models.AttemptStatusScored).
		Order("attempts.created_at ASC").
		Order("attempts.id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Attempt{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
