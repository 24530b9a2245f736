package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// TestRepository provides access to tests and their scoring configuration.
type TestRepository interface {
	GetByID(ctx context.Context, id string) (models.Test, error)
	FindByName(ctx context.Context, name string) (models.Test, error)
	List(ctx context.Context) ([]models.Test, error)
	Create(ctx context.Context, test *models.Test) error
	Update(ctx context.Context, id string, updates map[string]interface{}) (models.Test, error)
}

type testRepository struct {
	db *gorm.DB
}

// NewTestRepository constructs a test repository.
func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) GetByID(ctx context.Context, id string) (models.Test, error) {
	var test models.Test
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&test).Error; err != nil {
		return models.Test{}, err
	}

	return test, nil
}

func (r *testRepository) FindByName(ctx context.Context, name string) (models.Test, error) {
	var test models.Test
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC").
		Take(&test).Error
	if err != nil {
		return models.Test{}, err
	}

	return test, nil
}

// List returns tests in creation order.
func (r *testRepository) List(ctx context.Context) ([]models.Test, error) {
	var tests []models.Test
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&tests).Error; err != nil {
		return nil, err
	}

	return tests, nil
}

func (r *testRepository) Create(ctx context.Context, test *models.Test) error {
	return r.db.WithContext(ctx).Create(test).Error
}

func (r *testRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (models.Test, error) {
	result := r.db.WithContext(ctx).Model(&models.Test{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.Test{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Test{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}
