package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/assessment-ops-api/internal/models"
	"github.com/noah-isme/assessment-ops-api/internal/observability"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
	"github.com/noah-isme/assessment-ops-api/internal/scoring"
)

// Score computation triggers recorded in metrics.
const (
	scoreTriggerIngest    = "ingest"
	scoreTriggerRecompute = "recompute"
	scoreTriggerRescore   = "rescore"
)

type attemptScorer struct {
	logger zerolog.Logger
	now    func() time.Time
}

// score grades the attempt against the test, upserts the score row and moves
// the attempt to SCORED.
func (s attemptScorer) score(ctx context.Context, store repository.Store, attempt models.Attempt, test models.Test, trigger string) (models.AttemptScore, error) {
	started := time.Now()
	result := scoring.Calculate(attempt.AnswerMap(), test.Scheme(), test.AnswerKeyMap())

	explanation, err := json.Marshal(result.Explanation)
	if err != nil {
		return models.AttemptScore{}, fmt.Errorf("encode score explanation: %w", err)
	}

	score := models.AttemptScore{
		AttemptID:   attempt.ID,
		Correct:     result.Correct,
		Wrong:       result.Wrong,
		Skipped:     result.Skipped,
		Accuracy:    result.Accuracy,
		NetCorrect:  result.NetCorrect,
		Score:       result.Score,
		ComputedAt:  s.now().UTC(),
		Explanation: datatypes.JSON(explanation),
	}

	if err := store.Scores().Upsert(ctx, &score); err != nil {
		return models.AttemptScore{}, fmt.Errorf("persist score: %w", err)
	}
	if err := store.Attempts().UpdateFields(ctx, attempt.ID, map[string]interface{}{
		"status": models.AttemptStatusScored,
	}); err != nil {
		return models.AttemptScore{}, fmt.Errorf("mark attempt scored: %w", err)
	}

	observability.ScoresComputed().WithLabelValues(trigger, string(result.Explanation.Mode)).Inc()
	s.logger.Debug().
		Str("attempt_id", attempt.ID).
		Str("trigger", trigger).
		Str("mode", string(result.Explanation.Mode)).
		Float64("score", result.Score).
		Float64("duration_ms", float64(time.Since(started).Microseconds())/1000).
		Msg("score computed")

	return score, nil
}
