package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/database"
	"github.com/noah-isme/assessment-ops-api/internal/dedup"
	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func newTestStore(t *testing.T) (repository.Store, *gorm.DB) {
	t.Helper()

	db, err := database.Connect("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return repository.NewStore(db), db
}

func newTestIngestion(store repository.Store, cache *LeaderboardCache, publisher EventPublisher) IngestionService {
	matcher := dedup.NewMatcher(dedup.DefaultConfig(), testLogger())
	return NewIngestionService(store, matcher, testValidator(), cache, publisher, 100, testLogger())
}

var reviewer = ReviewActor{Subject: "reviewer-1", Role: "reviewer"}

func strPtr(value string) *string {
	return &value
}

func attemptEvent(eventID, email string, startedAt time.Time, answers map[string]string) dto.AttemptEventRequest {
	event := dto.AttemptEventRequest{
		EventID:     eventID,
		StudentName: "Student " + eventID,
		TestID:      "jee-mock-1",
		TestName:    "JEE Mock 1",
		StartedAt:   startedAt.Format(time.RFC3339),
		Answers:     answers,
		Channel:     "web",
	}
	if email != "" {
		event.StudentEmail = strPtr(email)
	}
	return event
}

func ingestEvents(t *testing.T, svc IngestionService, events ...dto.AttemptEventRequest) dto.IngestSummary {
	t.Helper()
	summary, err := svc.Ingest(context.Background(), dto.IngestRequest{Events: events})
	require.NoError(t, err)
	return summary
}

type publishedEvent struct {
	Type string
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

var baseTime = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

var placeholderAnswers = map[string]string{
	"1": "A", "2": "B", "3": "C", "4": "D", "5": "A",
	"6": "B", "7": "C", "8": "D", "9": "A", "10": "B",
	"11": "C", "12": "D", "13": "A", "14": "B", "15": "C",
	"16": "D", "17": "A", "18": "B", "19": "C", "20": "D",
}

func copyAnswers(source map[string]string) map[string]string {
	answers := make(map[string]string, len(source))
	for question, answer := range source {
		answers[question] = answer
	}
	return answers
}
