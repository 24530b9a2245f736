package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (models.Student, error)
	FindByEmail(ctx context.Context, email string) (models.Student, error)
	FindByPhone(ctx context.Context, phone string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

// FindByEmail expects an already normalized address.
func (r *studentRepository) FindByEmail(ctx context.Context, email string) (models.Student, error) {
	return r.findBy(ctx, "email", email)
}

// FindByPhone expects digits only.
func (r *studentRepository) FindByPhone(ctx context.Context, phone string) (models.Student, error) {
	return r.findBy(ctx, "phone", phone)
}

func (r *studentRepository) findBy(ctx context.Context, column, value string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where(column+" = ?", value).
		Order("created_at ASC").
		Take(&student).Error
	if err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}
