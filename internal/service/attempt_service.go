package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/observability"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
)

const (
	defaultAttemptPageSize = 20
	maxAttemptPageSize     = 100
)

// ReviewActor identifies who performed a review action.
type ReviewActor struct {
	Subject string
	Role    string
}

// AttemptService exposes attempt queries and review operations.
type AttemptService interface {
	List(ctx context.Context, request dto.AttemptListRequest) (dto.AttemptListResponse, error)
	Get(ctx context.Context, id string) (dto.AttemptDetailResponse, error)
	Recompute(ctx context.Context, id string, actor ReviewActor) (dto.ScoreResponse, error)
	Flag(ctx context.Context, id string, request dto.FlagRequest, actor ReviewActor) (dto.FlagResponse, error)
}

type attemptService struct {
	store     repository.Store
	validator *validator.Validate
	cache     *LeaderboardCache
	publisher EventPublisher
	sanitizer *bluemonday.Policy
	scorer    attemptScorer
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAttemptService constructs the attempt service.
func NewAttemptService(store repository.Store, validate *validator.Validate, cache *LeaderboardCache, publisher EventPublisher, logger zerolog.Logger) AttemptService {
	componentLogger := logger.With().Str("component", "attempt_service").Logger()
	return &attemptService{
		store:     store,
		validator: validate,
		cache:     cache,
		publisher: publisher,
		sanitizer: bluemonday.StrictPolicy(),
		scorer:    attemptScorer{logger: componentLogger, now: time.Now},
		logger:    componentLogger,
		tracer:    otel.Tracer("github.com/noah-isme/assessment-ops-api/internal/service/attempt"),
		now:       time.Now,
	}
}

func (s *attemptService) List(ctx context.Context, request dto.AttemptListRequest) (dto.AttemptListResponse, error) {
	request.Status = strings.ToUpper(strings.TrimSpace(request.Status))
	request.HasDuplicates = strings.ToLower(strings.TrimSpace(request.HasDuplicates))
	if err := s.validator.Struct(request); err != nil {
		return dto.AttemptListResponse{}, err
	}

	filter, err := buildAttemptFilter(request)
	if err != nil {
		return dto.AttemptListResponse{}, err
	}

	attempts, total, err := s.store.Attempts().List(ctx, filter)
	if err != nil {
		return dto.AttemptListResponse{}, err
	}

	ids := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		ids = append(ids, attempt.ID)
	}
	counts, err := s.store.Attempts().CountDuplicates(ctx, ids)
	if err != nil {
		return dto.AttemptListResponse{}, err
	}

	items := make([]dto.AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, dto.NewAttemptResponse(attempt, counts[attempt.ID]))
	}

	return dto.AttemptListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func buildAttemptFilter(request dto.AttemptListRequest) (repository.AttemptFilter, error) {
	filter := repository.AttemptFilter{
		Search:   strings.TrimSpace(request.Search),
		Page:     request.Page,
		PageSize: request.PerPage,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultAttemptPageSize
	}
	if filter.PageSize > maxAttemptPageSize {
		filter.PageSize = maxAttemptPageSize
	}

	if testID := strings.TrimSpace(request.TestID); testID != "" {
		filter.TestID = &testID
	}
	if studentID := strings.TrimSpace(request.StudentID); studentID != "" {
		filter.StudentID = &studentID
	}
	if request.Status != "" {
		status := models.AttemptStatus(request.Status)
		filter.Status = &status
	}
	if request.HasDuplicates != "" {
		hasDuplicates := request.HasDuplicates == "true"
		filter.HasDuplicates = &hasDuplicates
	}
	if raw := strings.TrimSpace(request.DateFrom); raw != "" {
		from, err := parseTimestamp(raw)
		if err != nil {
			return repository.AttemptFilter{}, fmt.Errorf("%w: date_from", ErrInvalidAttemptFilter)
		}
		filter.StartedFrom = &from
	}
	if raw := strings.TrimSpace(request.DateTo); raw != "" {
		to, err := parseTimestamp(raw)
		if err != nil {
			return repository.AttemptFilter{}, fmt.Errorf("%w: date_to", ErrInvalidAttemptFilter)
		}
		filter.StartedTo = &to
	}

	return filter, nil
}

func (s *attemptService) Get(ctx context.Context, id string) (dto.AttemptDetailResponse, error) {
	attempt, err := s.store.Attempts().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptDetailResponse{}, ErrAttemptNotFound
		}
		return dto.AttemptDetailResponse{}, err
	}

	counts, err := s.store.Attempts().CountDuplicates(ctx, []string{attempt.ID})
	if err != nil {
		return dto.AttemptDetailResponse{}, err
	}

	thread, err := s.duplicateThread(ctx, attempt)
	if err != nil {
		return dto.AttemptDetailResponse{}, err
	}

	flags := make([]dto.FlagResponse, 0, len(attempt.Flags))
	for _, flag := range attempt.Flags {
		flags = append(flags, dto.NewFlagResponse(flag))
	}

	return dto.AttemptDetailResponse{
		AttemptResponse: dto.NewAttemptResponse(attempt, counts[attempt.ID]),
		RawPayload:      []byte(attempt.RawPayload),
		MarkingScheme:   attempt.Test.Scheme(),
		Flags:           flags,
		DuplicateThread: thread,
	}, nil
}

// duplicateThread returns the canonical attempt followed by its duplicates.
// Attempts outside any thread get an empty list.
func (s *attemptService) duplicateThread(ctx context.Context, attempt models.Attempt) ([]dto.DuplicateThreadEntry, error) {
	thread := make([]dto.DuplicateThreadEntry, 0)

	canonical := attempt
	if attempt.DuplicateOfAttemptID != nil {
		loaded, err := s.store.Attempts().GetByID(ctx, *attempt.DuplicateOfAttemptID)
		switch {
		case err == nil:
			canonical = loaded
		case errors.Is(err, gorm.ErrRecordNotFound):
			canonical = models.Attempt{}
		default:
			return nil, err
		}
	}

	canonicalID := canonical.ID
	if canonicalID == "" {
		canonicalID = *attempt.DuplicateOfAttemptID
	}
	duplicates, err := s.store.Attempts().ListDuplicates(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	if len(duplicates) == 0 {
		return thread, nil
	}

	if canonical.ID != "" {
		thread = append(thread, dto.NewDuplicateThreadEntry(canonical))
	}
	for _, duplicate := range duplicates {
		thread = append(thread, dto.NewDuplicateThreadEntry(duplicate))
	}
	return thread, nil
}

func (s *attemptService) Recompute(ctx context.Context, id string, actor ReviewActor) (dto.ScoreResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attempts.recompute")
	span.SetAttributes(attribute.String("attempt.id", id))
	defer span.End()

	var score models.AttemptScore
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		attempt, err := tx.Attempts().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttemptNotFound
			}
			return err
		}
		// A flagged duplicate keeps its canonical reference and stays unscored.
		if attempt.Status == models.AttemptStatusDeduped || attempt.DuplicateOfAttemptID != nil {
			return ErrAttemptDeduplicated
		}

		previous := attempt.Score
		score, err = s.scorer.score(ctx, tx, attempt, attempt.Test, scoreTriggerRecompute)
		if err != nil {
			return err
		}

		metadata := map[string]interface{}{"score": score.Score}
		if previous != nil {
			metadata["previous_score"] = previous.Score
		}
		return recordActivity(ctx, tx, actor, models.ActivityAttemptRecomputed, models.ActivityEntityAttempt, attempt.ID, metadata)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recompute_failed")
		return dto.ScoreResponse{}, err
	}

	span.SetAttributes(attribute.Float64("attempt.score", score.Score))
	s.logger.Info().Str("attempt_id", id).Float64("score", score.Score).Msg("score recomputed")

	s.cache.Invalidate(ctx)
	response := dto.NewScoreResponse(score)
	publishEvent(ctx, s.publisher, s.logger, EventAttemptRescored, response)
	return response, nil
}

func (s *attemptService) Flag(ctx context.Context, id string, request dto.FlagRequest, actor ReviewActor) (dto.FlagResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attempts.flag")
	span.SetAttributes(attribute.String("attempt.id", id))
	defer span.End()

	if err := s.validator.Struct(request); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.FlagResponse{}, err
	}

	var flag models.Flag
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		attempt, err := tx.Attempts().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttemptNotFound
			}
			return err
		}

		reason := strings.TrimSpace(s.sanitizer.Sanitize(request.Reason))
		if reason == "" {
			return ErrFlagReasonRequired
		}

		flag = models.Flag{
			AttemptID: attempt.ID,
			Reason:    reason,
			RaisedBy:  strings.TrimSpace(actor.Subject),
		}
		if err := tx.Flags().Create(ctx, &flag); err != nil {
			return fmt.Errorf("create flag: %w", err)
		}

		flaggedAt := s.now().UTC()
		err = tx.Attempts().UpdateFields(ctx, attempt.ID, map[string]interface{}{
			"status":     models.AttemptStatusFlagged,
			"flagged":    true,
			"flagged_at": flaggedAt,
		})
		if err != nil {
			return err
		}

		return recordActivity(ctx, tx, actor, models.ActivityAttemptFlagged, models.ActivityEntityAttempt, attempt.ID, map[string]interface{}{
			"flag_id":         flag.ID,
			"reason":          flag.Reason,
			"previous_status": string(attempt.Status),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flag_failed")
		return dto.FlagResponse{}, err
	}

	observability.AttemptFlags().Inc()
	s.logger.Info().Str("attempt_id", id).Str("flag_id", flag.ID).Str("reason", truncateRunes(flag.Reason, 100)).Msg("attempt flagged")

	s.cache.Invalidate(ctx)
	response := dto.NewFlagResponse(flag)
	response.AttemptStatus = string(models.AttemptStatusFlagged)
	publishEvent(ctx, s.publisher, s.logger, EventAttemptFlagged, response)
	return response, nil
}

// truncateRunes cuts s to at most limit runes without splitting a UTF-8 sequence.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
