package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/dedup"
	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/observability"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
)

// IngestionService runs attempt batches through identity resolution,
// duplicate detection and scoring.
type IngestionService interface {
	Ingest(ctx context.Context, request dto.IngestRequest) (dto.IngestSummary, error)
	IngestExport(ctx context.Context, data []byte) (dto.IngestSummary, error)
}

type ingestionService struct {
	store     repository.Store
	matcher   *dedup.Matcher
	validator *validator.Validate
	cache     *LeaderboardCache
	publisher EventPublisher
	maxBatch  int
	scorer    attemptScorer
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewIngestionService constructs the ingestion orchestrator. A maxBatch of zero
// disables the batch size check.
func NewIngestionService(store repository.Store, matcher *dedup.Matcher, validate *validator.Validate, cache *LeaderboardCache, publisher EventPublisher, maxBatch int, logger zerolog.Logger) IngestionService {
	componentLogger := logger.With().Str("component", "ingestion_service").Logger()
	return &ingestionService{
		store:     store,
		matcher:   matcher,
		validator: validate,
		cache:     cache,
		publisher: publisher,
		maxBatch:  maxBatch,
		scorer:    attemptScorer{logger: componentLogger, now: time.Now},
		logger:    componentLogger,
		tracer:    otel.Tracer("github.com/noah-isme/assessment-ops-api/internal/service/ingestion"),
		now:       time.Now,
	}
}

// ingestBatch remembers reference entities resolved earlier in the batch.
type ingestBatch struct {
	students map[dedup.Identity]models.Student
	tests    map[string]models.Test
}

func newIngestBatch() *ingestBatch {
	return &ingestBatch{
		students: make(map[dedup.Identity]models.Student),
		tests:    make(map[string]models.Test),
	}
}

func (b *ingestBatch) remember(student models.Student, test models.Test) {
	if email, ok := dedup.NormalizeEmail(deref(student.Email)); ok {
		b.students[dedup.Identity{Kind: dedup.IdentityEmail, Value: email}] = student
	}
	if phone, ok := dedup.NormalizePhone(deref(student.Phone)); ok {
		b.students[dedup.Identity{Kind: dedup.IdentityPhone, Value: phone}] = student
	}
	b.tests[test.Name] = test
}

type eventOutcome struct {
	student models.Student
	test    models.Test
	attempt models.Attempt
	match   dedup.Result
	score   *models.AttemptScore
}

func (s *ingestionService) Ingest(ctx context.Context, request dto.IngestRequest) (dto.IngestSummary, error) {
	ctx, span := s.tracer.Start(ctx, "ingestion.batch")
	span.SetAttributes(attribute.Int("ingest.events", len(request.Events)))
	defer span.End()

	if s.maxBatch > 0 && len(request.Events) > s.maxBatch {
		span.SetStatus(codes.Error, "batch_too_large")
		observability.IngestBatches().WithLabelValues("rejected").Inc()
		return dto.IngestSummary{}, ErrBatchTooLarge
	}

	if err := s.validator.Struct(request); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		observability.IngestBatches().WithLabelValues("rejected").Inc()
		return dto.IngestSummary{}, err
	}

	started := time.Now()
	s.logger.Info().Int("total_events", len(request.Events)).Msg("starting batch ingestion")

	summary := dto.IngestSummary{
		TotalReceived: len(request.Events),
		Details:       make([]dto.IngestEventResult, 0, len(request.Events)),
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		batch := newIngestBatch()
		for _, event := range request.Events {
			summary.Details = append(summary.Details, s.ingestEvent(ctx, tx, batch, event))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_commit_failed")
		observability.IngestBatches().WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Msg("failed to commit ingestion batch")
		return dto.IngestSummary{}, fmt.Errorf("%w: %v", ErrBatchCommit, err)
	}

	for _, detail := range summary.Details {
		switch detail.Status {
		case dto.IngestStatusScored:
			summary.Ingested++
			summary.Scored++
		case dto.IngestStatusDeduped:
			summary.Ingested++
			summary.DuplicatesDetected++
		default:
			summary.Errors++
		}
		observability.IngestEvents().WithLabelValues(strings.ToLower(detail.Status)).Inc()
	}

	duration := time.Since(started)
	observability.IngestBatches().WithLabelValues("committed").Inc()
	observability.IngestBatchDuration().Observe(duration.Seconds())
	span.SetAttributes(
		attribute.Int("ingest.ingested", summary.Ingested),
		attribute.Int("ingest.duplicates", summary.DuplicatesDetected),
		attribute.Int("ingest.errors", summary.Errors),
	)

	s.logger.Info().
		Int("ingested", summary.Ingested).
		Int("duplicates_detected", summary.DuplicatesDetected).
		Int("scored", summary.Scored).
		Int("errors", summary.Errors).
		Float64("duration_ms", float64(duration.Microseconds())/1000).
		Msg("ingestion complete")

	if summary.Ingested > 0 {
		s.cache.Invalidate(ctx)
	}
	publishEvent(ctx, s.publisher, s.logger, EventIngestionCompleted, map[string]interface{}{
		"total_received":      summary.TotalReceived,
		"ingested":            summary.Ingested,
		"duplicates_detected": summary.DuplicatesDetected,
		"scored":              summary.Scored,
		"errors":              summary.Errors,
	})

	return summary, nil
}

// IngestExport ingests a coaching-centre export: a JSON array of nested
// source events.
func (s *ingestionService) IngestExport(ctx context.Context, data []byte) (dto.IngestSummary, error) {
	detected := mimetype.Detect(data)
	if !detected.Is("application/json") {
		s.logger.Warn().Str("detected_mime", detected.String()).Msg("rejected export upload")
		return dto.IngestSummary{}, fmt.Errorf("%w: %s", ErrUnsupportedExport, detected.String())
	}

	request, err := dto.ParseSourceEvents(data)
	if err != nil {
		return dto.IngestSummary{}, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}

	return s.Ingest(ctx, request)
}

// ingestEvent processes one event inside its own savepoint so a failure only
// discards that event's writes.
func (s *ingestionService) ingestEvent(ctx context.Context, tx repository.Store, batch *ingestBatch, event dto.AttemptEventRequest) dto.IngestEventResult {
	result := dto.IngestEventResult{EventID: event.EventID}
	logger := s.logger.With().Str("event_id", event.EventID).Logger()

	startedAt, err := parseTimestamp(event.StartedAt)
	if err != nil {
		logger.Warn().Str("started_at", event.StartedAt).Msg("failed to parse started_at")
		result.Status = dto.IngestStatusError
		result.Reason = invalidStartedAtReason
		return result
	}
	submittedAt := parseOptionalTimestamp(event.SubmittedAt)

	var outcome eventOutcome
	err = tx.Transaction(ctx, func(etx repository.Store) error {
		var err error
		outcome, err = s.persistEvent(ctx, etx, batch, event, startedAt, submittedAt)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to process event")
		result.Status = dto.IngestStatusError
		result.Reason = err.Error()
		return result
	}

	batch.remember(outcome.student, outcome.test)
	result.AttemptID = outcome.attempt.ID

	if outcome.match.IsDuplicate {
		observability.DuplicateSimilarity().Observe(outcome.match.Similarity)
		result.Status = dto.IngestStatusDeduped
		result.CanonicalAttemptID = outcome.match.CanonicalAttemptID
		return result
	}

	score := outcome.score.Score
	result.Status = dto.IngestStatusScored
	result.Score = &score
	return result
}

func (s *ingestionService) persistEvent(ctx context.Context, store repository.Store, batch *ingestBatch, event dto.AttemptEventRequest, startedAt time.Time, submittedAt *time.Time) (eventOutcome, error) {
	student, err := s.resolveStudent(ctx, store, batch, event)
	if err != nil {
		return eventOutcome{}, err
	}

	test, err := s.resolveTest(ctx, store, batch, event)
	if err != nil {
		return eventOutcome{}, err
	}

	candidates, err := store.Attempts().ListDedupCandidates(ctx, test.ID)
	if err != nil {
		return eventOutcome{}, fmt.Errorf("load duplicate candidates: %w", err)
	}

	pool := make([]dedup.Attempt, 0, len(candidates))
	for _, candidate := range candidates {
		pool = append(pool, dedup.Attempt{
			ID:        candidate.ID,
			Identity:  dedup.ResolveIdentityPtr(candidate.Student.Email, candidate.Student.Phone),
			Answers:   candidate.AnswerMap(),
			StartedAt: candidate.StartedAt,
		})
	}

	match := s.matcher.Match(dedup.Attempt{
		Identity:  dedup.ResolveIdentityPtr(event.StudentEmail, event.StudentPhone),
		Answers:   event.Answers,
		StartedAt: startedAt,
	}, pool)

	rawPayload, err := json.Marshal(event)
	if err != nil {
		return eventOutcome{}, fmt.Errorf("encode raw payload: %w", err)
	}

	answers := models.AnswerSheet{}
	for question, answer := range event.Answers {
		answers[question] = answer
	}

	attempt := models.Attempt{
		StudentID:   student.ID,
		TestID:      test.ID,
		StartedAt:   startedAt,
		SubmittedAt: submittedAt,
		Answers:     datatypes.NewJSONType(answers),
		RawPayload:  datatypes.JSON(rawPayload),
		Status:      models.AttemptStatusIngested,
	}
	if eventID := strings.TrimSpace(event.EventID); eventID != "" {
		attempt.SourceEventID = &eventID
	}
	if match.IsDuplicate {
		canonicalID := match.CanonicalAttemptID
		attempt.Status = models.AttemptStatusDeduped
		attempt.DuplicateOfAttemptID = &canonicalID
	}

	if err := store.Attempts().Create(ctx, &attempt); err != nil {
		return eventOutcome{}, fmt.Errorf("persist attempt: %w", err)
	}

	outcome := eventOutcome{student: student, test: test, attempt: attempt, match: match}
	if match.IsDuplicate {
		return outcome, nil
	}

	score, err := s.scorer.score(ctx, store, attempt, test, scoreTriggerIngest)
	if err != nil {
		return eventOutcome{}, err
	}
	outcome.attempt.Status = models.AttemptStatusScored
	outcome.score = &score
	return outcome, nil
}

// resolveStudent looks the student up by normalized email, then by phone,
// checking the batch index before the database. Unknown students are created.
func (s *ingestionService) resolveStudent(ctx context.Context, store repository.Store, batch *ingestBatch, event dto.AttemptEventRequest) (models.Student, error) {
	email, hasEmail := dedup.NormalizeEmail(deref(event.StudentEmail))
	phone, hasPhone := dedup.NormalizePhone(deref(event.StudentPhone))

	if hasEmail {
		if student, ok := batch.students[dedup.Identity{Kind: dedup.IdentityEmail, Value: email}]; ok {
			return student, nil
		}
		student, err := store.Students().FindByEmail(ctx, email)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, fmt.Errorf("find student by email: %w", err)
		}
	}

	if hasPhone {
		if student, ok := batch.students[dedup.Identity{Kind: dedup.IdentityPhone, Value: phone}]; ok {
			return student, nil
		}
		student, err := store.Students().FindByPhone(ctx, phone)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, fmt.Errorf("find student by phone: %w", err)
		}
	}

	student := models.Student{FullName: strings.TrimSpace(event.StudentName)}
	if hasEmail {
		student.Email = &email
	}
	if hasPhone {
		student.Phone = &phone
	}
	if err := store.Students().Create(ctx, &student); err != nil {
		return models.Student{}, fmt.Errorf("create student: %w", err)
	}

	s.logger.Info().Str("student_id", student.ID).Msg("created student")
	return student, nil
}

// resolveTest finds the test by exact name or creates it with the default scheme.
func (s *ingestionService) resolveTest(ctx context.Context, store repository.Store, batch *ingestBatch, event dto.AttemptEventRequest) (models.Test, error) {
	if test, ok := batch.tests[event.TestName]; ok {
		return test, nil
	}

	test, err := store.Tests().FindByName(ctx, event.TestName)
	if err == nil {
		return test, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Test{}, fmt.Errorf("find test: %w", err)
	}

	test = models.Test{
		Name:      event.TestName,
		SourceRef: event.TestID,
		MaxMarks:  models.DefaultMaxMarks,
	}
	if err := store.Tests().Create(ctx, &test); err != nil {
		return models.Test{}, fmt.Errorf("create test: %w", err)
	}

	s.logger.Info().Str("test_id", test.ID).Str("test_name", test.Name).Msg("created test")
	return test, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
