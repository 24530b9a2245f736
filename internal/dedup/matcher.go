package dedup

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultWindow bounds how far apart two start times may be for a duplicate.
	DefaultWindow = 7 * time.Minute
	// DefaultSimilarityThreshold is the minimum answer similarity for a duplicate.
	DefaultSimilarityThreshold = 0.92
)

// Config tunes the duplicate rules.
type Config struct {
	Window              time.Duration
	SimilarityThreshold float64
}

// DefaultConfig returns the production duplicate rules.
func DefaultConfig() Config {
	return Config{
		Window:              DefaultWindow,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

func (c Config) normalized() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return c
}

// Attempt is the view of an attempt the matcher needs. A zero StartedAt means
// the start time is unknown.
type Attempt struct {
	ID        string
	Identity  Identity
	Answers   map[string]string
	StartedAt time.Time
}

// Result describes the outcome of a duplicate check.
type Result struct {
	IsDuplicate        bool
	CanonicalAttemptID string
	Similarity         float64
	Compared           int
}

// Matcher decides whether an incoming attempt repeats an existing one.
type Matcher struct {
	config Config
	logger zerolog.Logger
}

// NewMatcher constructs a matcher. Out of range settings fall back to defaults.
func NewMatcher(cfg Config, logger zerolog.Logger) *Matcher {
	return &Matcher{
		config: cfg.normalized(),
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// Config exposes the effective rules.
func (m *Matcher) Config() Config {
	return m.config
}

// Match walks the pool in order and returns the first candidate passing the
// identity, time window and similarity rules.
func (m *Matcher) Match(incoming Attempt, pool []Attempt) Result {
	if !incoming.Identity.Known() {
		m.logger.Warn().
			Str("attempt_id", incoming.ID).
			Msg("attempt has no usable identity; skipping duplicate check")
		return Result{}
	}

	result := Result{}
	for _, candidate := range pool {
		if candidate.ID != "" && candidate.ID == incoming.ID {
			continue
		}
		if !incoming.Identity.Equal(candidate.Identity) {
			continue
		}
		if !m.withinWindow(incoming.StartedAt, candidate.StartedAt) {
			continue
		}

		similarity := AnswerSimilarity(incoming.Answers, candidate.Answers)
		result.Compared++
		if similarity < m.config.SimilarityThreshold {
			continue
		}

		m.logger.Debug().
			Str("canonical_attempt_id", candidate.ID).
			Str("identity_kind", string(incoming.Identity.Kind)).
			Float64("similarity", similarity).
			Msg("duplicate attempt detected")

		result.IsDuplicate = true
		result.CanonicalAttemptID = candidate.ID
		result.Similarity = similarity
		return result
	}

	return result
}

func (m *Matcher) withinWindow(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= m.config.Window
}
