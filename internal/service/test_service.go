package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/dedup"
	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
)

// TestService manages tests and how they are scored.
type TestService interface {
	List(ctx context.Context) ([]dto.TestResponse, error)
	UpdateScoring(ctx context.Context, id string, request dto.TestScoringUpdateRequest, actor ReviewActor) (dto.TestScoringUpdateResponse, error)
}

type testService struct {
	store     repository.Store
	validator *validator.Validate
	cache     *LeaderboardCache
	publisher EventPublisher
	scorer    attemptScorer
	logger    zerolog.Logger
}

// NewTestService constructs the test service.
func NewTestService(store repository.Store, validate *validator.Validate, cache *LeaderboardCache, publisher EventPublisher, logger zerolog.Logger) TestService {
	componentLogger := logger.With().Str("component", "test_service").Logger()
	return &testService{
		store:     store,
		validator: validate,
		cache:     cache,
		publisher: publisher,
		scorer:    attemptScorer{logger: componentLogger, now: time.Now},
		logger:    componentLogger,
	}
}

func (s *testService) List(ctx context.Context) ([]dto.TestResponse, error) {
	tests, err := s.store.Tests().List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TestResponse, 0, len(tests))
	for _, test := range tests {
		responses = append(responses, dto.NewTestResponse(test))
	}
	return responses, nil
}

func (s *testService) UpdateScoring(ctx context.Context, id string, request dto.TestScoringUpdateRequest, actor ReviewActor) (dto.TestScoringUpdateResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/assessment-ops-api/internal/service/test")
	ctx, span := tracer.Start(ctx, "tests.update_scoring")
	span.SetAttributes(attribute.String("test.id", id))
	defer span.End()

	if err := s.validator.Struct(request); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.TestScoringUpdateResponse{}, err
	}

	updates, err := scoringUpdates(request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_scoring_config")
		return dto.TestScoringUpdateResponse{}, err
	}

	var (
		updated  models.Test
		rescored int
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if len(updates) == 0 {
			updated, err = tx.Tests().GetByID(ctx, id)
		} else {
			updated, err = tx.Tests().Update(ctx, id, updates)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTestNotFound
			}
			return err
		}

		if request.Rescore {
			attempts, err := tx.Attempts().ListByStatuses(ctx, updated.ID, models.DedupCandidateStatuses)
			if err != nil {
				return fmt.Errorf("load attempts to rescore: %w", err)
			}
			for _, attempt := range attempts {
				if _, err := s.scorer.score(ctx, tx, attempt, updated, scoreTriggerRescore); err != nil {
					return err
				}
				rescored++
			}
		}

		changed := make([]string, 0, len(updates))
		for column := range updates {
			changed = append(changed, column)
		}
		sort.Strings(changed)
		return recordActivity(ctx, tx, actor, models.ActivityTestScoringUpdated, models.ActivityEntityTest, updated.ID, map[string]interface{}{
			"changed":  changed,
			"rescored": rescored,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update_scoring_failed")
		return dto.TestScoringUpdateResponse{}, err
	}

	span.SetAttributes(attribute.Int("test.rescored", rescored))
	s.logger.Info().Str("test_id", updated.ID).Int("rescored", rescored).Msg("test scoring updated")

	s.cache.Invalidate(ctx)
	response := dto.TestScoringUpdateResponse{Test: dto.NewTestResponse(updated), Rescored: rescored}
	publishEvent(ctx, s.publisher, s.logger, EventTestScoringUpdated, response)
	return response, nil
}

func scoringUpdates(request dto.TestScoringUpdateRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if request.MaxMarks != nil {
		updates["max_marks"] = *request.MaxMarks
	}

	if request.MarkingScheme != nil {
		if err := request.MarkingScheme.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScoringConfig, err)
		}
		updates["negative_marking"] = datatypes.JSON(request.MarkingScheme.JSON())
	}

	switch {
	case request.ClearAnswerKey && len(request.AnswerKey) > 0:
		return nil, fmt.Errorf("%w: answer_key and clear_answer_key are exclusive", ErrInvalidScoringConfig)
	case request.ClearAnswerKey:
		updates["answer_key"] = datatypes.JSON([]byte("{}"))
	case len(request.AnswerKey) > 0:
		key := make(map[string]string, len(request.AnswerKey))
		for question, answer := range request.AnswerKey {
			normalized := dedup.NormalizeAnswer(answer)
			if normalized == "" {
				return nil, fmt.Errorf("%w: empty answer for question %s", ErrInvalidScoringConfig, question)
			}
			key[question] = normalized
		}
		payload, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		updates["answer_key"] = datatypes.JSON(payload)
	}

	return updates, nil
}
