package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/observability"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
)

const leaderboardTopN = 3

// LeaderboardService ranks students by their best scored attempt.
type LeaderboardService interface {
	Get(ctx context.Context, testID string) (dto.LeaderboardResponse, error)
}

type leaderboardService struct {
	store  repository.Store
	cache  *LeaderboardCache
	logger zerolog.Logger
	now    func() time.Time
}

// NewLeaderboardService constructs the leaderboard service.
func NewLeaderboardService(store repository.Store, cache *LeaderboardCache, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "leaderboard_service").Logger(),
		now:    time.Now,
	}
}

func (s *leaderboardService) Get(ctx context.Context, testID string) (dto.LeaderboardResponse, error) {
	testID = strings.TrimSpace(testID)

	tracer := otel.Tracer("github.com/noah-isme/assessment-ops-api/internal/service/leaderboard")
	ctx, span := tracer.Start(ctx, "leaderboard.generate")
	span.SetAttributes(attribute.String("leaderboard.test_id", testID))
	defer span.End()

	if cached, ok := s.cache.Get(ctx, testID); ok {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("leaderboard.cache_hit", true))
		observability.LeaderboardRequests().WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.LeaderboardRequests().WithLabelValues("miss").Inc()

	tests, err := s.store.Tests().List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_tests_failed")
		return dto.LeaderboardResponse{}, err
	}

	response := dto.LeaderboardResponse{
		Tests:       dto.NewTestOptions(tests),
		Entries:     make([]dto.LeaderboardEntry, 0),
		GeneratedAt: s.now().UTC(),
	}

	selected := testID
	if selected == "" && len(tests) > 0 {
		selected = tests[0].ID
	}
	if selected == "" {
		return response, nil
	}
	response.TestID = &selected

	attempts, err := s.store.Attempts().ListScoredForTest(ctx, selected)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_attempts_failed")
		return dto.LeaderboardResponse{}, err
	}

	best := bestAttemptPerStudent(attempts)
	for index, attempt := range best {
		rank := index + 1
		score := attempt.Score
		response.Entries = append(response.Entries, dto.LeaderboardEntry{
			Rank:        rank,
			IsTop3:      rank <= leaderboardTopN,
			AttemptID:   attempt.ID,
			Student:     dto.NewStudentResponse(attempt.Student),
			Score:       score.Score,
			Accuracy:    score.Accuracy,
			NetCorrect:  score.NetCorrect,
			Correct:     score.Correct,
			Wrong:       score.Wrong,
			Skipped:     score.Skipped,
			StartedAt:   attempt.StartedAt,
			SubmittedAt: attempt.SubmittedAt,
		})
	}

	span.SetAttributes(attribute.Int("leaderboard.entries", len(response.Entries)))
	s.logger.Info().Str("test_id", selected).Int("entries", len(response.Entries)).Msg("leaderboard generated")

	s.cache.Set(ctx, testID, response)
	return response, nil
}

// bestAttemptPerStudent keeps each student's best attempt and orders the
// result by score, accuracy and net correct, all descending. Ties keep the
// order in which students first appear.
func bestAttemptPerStudent(attempts []models.Attempt) []models.Attempt {
	order := make([]string, 0)
	best := make(map[string]models.Attempt)

	for _, attempt := range attempts {
		if attempt.Score == nil {
			continue
		}
		current, seen := best[attempt.StudentID]
		if !seen {
			order = append(order, attempt.StudentID)
			best[attempt.StudentID] = attempt
			continue
		}
		if ranksAbove(*attempt.Score, *current.Score) {
			best[attempt.StudentID] = attempt
		}
	}

	ranked := make([]models.Attempt, 0, len(order))
	for _, studentID := range order {
		ranked = append(ranked, best[studentID])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranksAbove(*ranked[i].Score, *ranked[j].Score)
	})
	return ranked
}

func ranksAbove(a, b models.AttemptScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	return a.NetCorrect > b.NetCorrect
}
