package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database session. Work done
// through the Store passed to Transaction commits or rolls back as a unit;
// nested calls use savepoints.
type Store interface {
	Students() StudentRepository
	Tests() TestRepository
	Attempts() AttemptRepository
	Scores() ScoreRepository
	Flags() FlagRepository
	Activity() ActivityLogRepository
	Transaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db       *gorm.DB
	students StudentRepository
	tests    TestRepository
	attempts AttemptRepository
	scores   ScoreRepository
	flags    FlagRepository
	activity ActivityLogRepository
}

// NewStore builds a Store on top of the provided session.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:       db,
		students: NewStudentRepository(db),
		tests:    NewTestRepository(db),
		attempts: NewAttemptRepository(db),
		scores:   NewScoreRepository(db),
		flags:    NewFlagRepository(db),
		activity: NewActivityLogRepository(db),
	}
}

func (s *gormStore) Students() StudentRepository { return s.students }
func (s *gormStore) Tests() TestRepository       { return s.tests }
func (s *gormStore) Attempts() AttemptRepository { return s.attempts }
func (s *gormStore) Scores() ScoreRepository     { return s.scores }
func (s *gormStore) Flags() FlagRepository       { return s.flags }
func (s *gormStore) Activity() ActivityLogRepository {
	return s.activity
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
