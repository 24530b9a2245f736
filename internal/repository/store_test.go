package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/database"
	"github.com/noah-isme/assessment-ops-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func strPtr(value string) *string {
	return &value
}

type fixture struct {
	store   Store
	student models.Student
	test    models.Test
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	student := models.Student{FullName: "Asha Rao", Email: strPtr("asha@example.com"), Phone: strPtr("919876543210")}
	require.NoError(t, store.Students().Create(ctx, &student))

	test := models.Test{Name: "Mock 1", SourceRef: "mock-1"}
	require.NoError(t, store.Tests().Create(ctx, &test))

	return fixture{store: store, student: student, test: test}
}

func (f fixture) attempt(t *testing.T, startedAt time.Time, status models.AttemptStatus) models.Attempt {
	t.Helper()
	attempt := models.Attempt{
		StudentID: f.student.ID,
		TestID:    f.test.ID,
		StartedAt: startedAt,
		Answers:   datatypes.NewJSONType(models.AnswerSheet{"1": "A"}),
		Status:    status,
	}
	require.NoError(t, f.store.Attempts().Create(context.Background(), &attempt))
	return attempt
}

func TestStudentLookupByIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	found, err := f.store.Students().FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.Equal(t, f.student.ID, found.ID)

	found, err = f.store.Students().FindByPhone(ctx, "919876543210")
	require.NoError(t, err)
	require.Equal(t, f.student.ID, found.ID)

	_, err = f.store.Students().FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTestRepositoryDefaultsAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Equal(t, models.DefaultMaxMarks, f.test.MaxMarks)

	found, err := f.store.Tests().FindByName(ctx, "Mock 1")
	require.NoError(t, err)
	require.Equal(t, f.test.ID, found.ID)
	require.Equal(t, 4.0, found.Scheme().Correct)
	require.Empty(t, found.AnswerKeyMap())

	updated, err := f.store.Tests().Update(ctx, f.test.ID, map[string]interface{}{
		"max_marks":  120,
		"answer_key": datatypes.JSON([]byte(`{"1":"B"}`)),
	})
	require.NoError(t, err)
	require.Equal(t, 120, updated.MaxMarks)
	require.Equal(t, map[string]string{"1": "B"}, updated.AnswerKeyMap())

	_, err = f.store.Tests().Update(ctx, "missing", map[string]interface{}{"max_marks": 1})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAttemptListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	first := f.attempt(t, base, models.AttemptStatusScored)
	second := f.attempt(t, base.Add(time.Hour), models.AttemptStatusIngested)
	require.NoError(t, f.store.Attempts().UpdateFields(ctx, second.ID, map[string]interface{}{
		"status":                  models.AttemptStatusDeduped,
		"duplicate_of_attempt_id": first.ID,
	}))

	attempts, total, err := f.store.Attempts().List(ctx, AttemptFilter{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, second.ID, attempts[0].ID, "expected latest start first")
	require.Equal(t, "Asha Rao", attempts[0].Student.FullName)

	hasDuplicates := true
	attempts, total, err = f.store.Attempts().List(ctx, AttemptFilter{HasDuplicates: &hasDuplicates, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, second.ID, attempts[0].ID)

	status := models.AttemptStatusScored
	_, total, err = f.store.Attempts().List(ctx, AttemptFilter{Status: &status})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	from := base.Add(30 * time.Minute)
	_, total, err = f.store.Attempts().List(ctx, AttemptFilter{StartedFrom: &from})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	attempts, total, err = f.store.Attempts().List(ctx, AttemptFilter{Search: "ASHA", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, attempts, 1)
	require.Equal(t, first.ID, attempts[0].ID)

	counts, err := f.store.Attempts().CountDuplicates(ctx, []string{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[first.ID])
	require.Zero(t, counts[second.ID])

	duplicates, err := f.store.Attempts().ListDuplicates(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, duplicates, 1)

	candidates, err := f.store.Attempts().ListDedupCandidates(ctx, f.test.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, first.ID, candidates[0].ID)
}

func TestScoreUpsertOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, time.Now().UTC(), models.AttemptStatusScored)

	score := models.AttemptScore{AttemptID: attempt.ID, Correct: 1, Score: 4, ComputedAt: time.Now().UTC(), Explanation: datatypes.JSON([]byte(`{}`))}
	require.NoError(t, f.store.Scores().Upsert(ctx, &score))

	score.Correct = 2
	score.Score = 8
	require.NoError(t, f.store.Scores().Upsert(ctx, &score))

	stored, err := f.store.Scores().GetByAttemptID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Correct)
	require.Equal(t, 8.0, stored.Score)

	scored, err := f.store.Attempts().ListScoredForTest(ctx, f.test.ID)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	require.NotNil(t, scored[0].Score)
	require.Equal(t, 8.0, scored[0].Score.Score)
}

func TestFlagsAreOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, time.Now().UTC(), models.AttemptStatusScored)

	base := time.Now().UTC()
	require.NoError(t, f.store.Flags().Create(ctx, &models.Flag{AttemptID: attempt.ID, Reason: "second", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, f.store.Flags().Create(ctx, &models.Flag{AttemptID: attempt.ID, Reason: "first", CreatedAt: base}))

	flags, err := f.store.Flags().ListByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	require.Equal(t, "first", flags[0].Reason)

	loaded, err := f.store.Attempts().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Flags, 2)
	require.Equal(t, "second", loaded.Flags[1].Reason)
}

func TestTransactionRollsBackAndNests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.Transaction(ctx, func(tx Store) error {
		student := models.Student{FullName: "Kept"}
		if err := tx.Students().Create(ctx, &student); err != nil {
			return err
		}

		nestedErr := tx.Transaction(ctx, func(inner Store) error {
			discarded := models.Student{FullName: "Discarded", Email: strPtr("discarded@example.com")}
			if err := inner.Students().Create(ctx, &discarded); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, nestedErr, boom)
		return nil
	})
	require.NoError(t, err)

	_, err = f.store.Students().FindByEmail(ctx, "discarded@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = f.store.Transaction(ctx, func(tx Store) error {
		student := models.Student{FullName: "Rolled", Email: strPtr("rolled@example.com")}
		if err := tx.Students().Create(ctx, &student); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = f.store.Students().FindByEmail(ctx, "rolled@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestActivityLogListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	entries := []models.ActivityLog{
		{ActorID: "reviewer-1", ActorRole: "reviewer", Action: models.ActivityAttemptFlagged, EntityType: models.ActivityEntityAttempt, EntityID: "a-1", CreatedAt: base},
		{ActorID: "admin-1", ActorRole: "admin", Action: models.ActivityAttemptRecomputed, EntityType: models.ActivityEntityAttempt, EntityID: "a-1", CreatedAt: base.Add(time.Minute)},
		{ActorID: "admin-1", ActorRole: "admin", Action: models.ActivityTestScoringUpdated, EntityType: models.ActivityEntityTest, EntityID: f.test.ID, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, f.store.Activity().Create(ctx, &entries[i]))
		require.NotEmpty(t, entries[i].ID)
	}

	all, total, err := f.store.Activity().List(ctx, ActivityLogFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, models.ActivityTestScoringUpdated, all[0].Action, "newest first")

	byAttempt, total, err := f.store.Activity().List(ctx, ActivityLogFilter{EntityType: models.ActivityEntityAttempt, EntityID: "a-1"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, byAttempt, 2)

	byActor, total, err := f.store.Activity().List(ctx, ActivityLogFilter{ActorID: "admin-1", PageSize: 1, Page: 2})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, byActor, 1)
	require.Equal(t, models.ActivityAttemptRecomputed, byActor[0].Action)

	since := base.Add(90 * time.Second)
	recent, total, err := f.store.Activity().List(ctx, ActivityLogFilter{Since: &since})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, f.test.ID, recent[0].EntityID)
}
