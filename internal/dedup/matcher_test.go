package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func answerSet(total, changed int) map[string]string {
	answers := make(map[string]string, total)
	for i := 1; i <= total; i++ {
		answers[fmt.Sprintf("%d", i)] = "A"
	}
	for i := 1; i <= changed; i++ {
		answers[fmt.Sprintf("%d", i)] = "B"
	}
	return answers
}

func TestMatcherDuplicateRules(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	identity := ResolveIdentity("rina@example.com", "")
	existing := Attempt{ID: "existing", Identity: identity, Answers: answerSet(20, 0), StartedAt: base}

	cases := []struct {
		name      string
		offset    time.Duration
		changed   int
		duplicate bool
	}{
		{name: "six minutes and 95 percent", offset: 6 * time.Minute, changed: 1, duplicate: true},
		{name: "eight minutes apart", offset: 8 * time.Minute, changed: 1, duplicate: false},
		{name: "five minutes and 80 percent", offset: 5 * time.Minute, changed: 4, duplicate: false},
		{name: "exactly on the window", offset: 7 * time.Minute, changed: 0, duplicate: true},
		{name: "earlier start also counts", offset: -3 * time.Minute, changed: 0, duplicate: true},
	}

	matcher := NewMatcher(DefaultConfig(), zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			incoming := Attempt{Identity: identity, Answers: answerSet(20, tc.changed), StartedAt: base.Add(tc.offset)}
			result := matcher.Match(incoming, []Attempt{existing})
			require.Equal(t, tc.duplicate, result.IsDuplicate)
			if tc.duplicate {
				require.Equal(t, "existing", result.CanonicalAttemptID)
			} else {
				require.Empty(t, result.CanonicalAttemptID)
			}
		})
	}
}

func TestMatcherThresholdIsInclusive(t *testing.T) {
	base := time.Now().UTC()
	identity := ResolveIdentity("", "0812 3456")
	matcher := NewMatcher(Config{Window: time.Minute, SimilarityThreshold: 0.75}, zerolog.Nop())

	existing := Attempt{ID: "a1", Identity: identity, Answers: answerSet(4, 0), StartedAt: base}
	incoming := Attempt{Identity: identity, Answers: answerSet(4, 1), StartedAt: base}

	result := matcher.Match(incoming, []Attempt{existing})
	require.True(t, result.IsDuplicate)
	require.Equal(t, 0.75, result.Similarity)
}

func TestMatcherFirstMatchWins(t *testing.T) {
	base := time.Now().UTC()
	identity := ResolveIdentity("rina@example.com", "")
	answers := answerSet(10, 0)
	pool := []Attempt{
		{ID: "other-student", Identity: ResolveIdentity("budi@example.com", ""), Answers: answers, StartedAt: base},
		{ID: "first", Identity: identity, Answers: answers, StartedAt: base.Add(time.Minute)},
		{ID: "second", Identity: identity, Answers: answers, StartedAt: base},
	}

	result := NewMatcher(DefaultConfig(), zerolog.Nop()).Match(Attempt{Identity: identity, Answers: answers, StartedAt: base}, pool)
	require.True(t, result.IsDuplicate)
	require.Equal(t, "first", result.CanonicalAttemptID)
}

func TestMatcherUnknownIdentityIsNeverDuplicate(t *testing.T) {
	base := time.Now().UTC()
	answers := answerSet(5, 0)
	pool := []Attempt{{ID: "a1", Identity: Identity{Kind: IdentityUnknown}, Answers: answers, StartedAt: base}}

	result := NewMatcher(DefaultConfig(), zerolog.Nop()).Match(Attempt{Identity: ResolveIdentity("", ""), Answers: answers, StartedAt: base}, pool)
	require.False(t, result.IsDuplicate)
	require.Zero(t, result.Compared)
}

func TestMatcherMissingTimestampSatisfiesWindow(t *testing.T) {
	identity := ResolveIdentity("rina@example.com", "")
	answers := answerSet(5, 0)
	pool := []Attempt{{ID: "a1", Identity: identity, Answers: answers}}

	result := NewMatcher(DefaultConfig(), zerolog.Nop()).Match(Attempt{Identity: identity, Answers: answers, StartedAt: time.Now()}, pool)
	require.True(t, result.IsDuplicate)
}

func TestMatcherEmptyAnswersNeverMatch(t *testing.T) {
	base := time.Now().UTC()
	identity := ResolveIdentity("rina@example.com", "")
	pool := []Attempt{{ID: "a1", Identity: identity, Answers: map[string]string{}, StartedAt: base}}

	result := NewMatcher(DefaultConfig(), zerolog.Nop()).Match(Attempt{Identity: identity, Answers: map[string]string{}, StartedAt: base}, pool)
	require.False(t, result.IsDuplicate)
}

func TestNewMatcherFallsBackToDefaults(t *testing.T) {
	matcher := NewMatcher(Config{Window: -time.Second, SimilarityThreshold: 3}, zerolog.Nop())
	require.Equal(t, DefaultConfig(), matcher.Config())
}
