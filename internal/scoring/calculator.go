package scoring

import (
	"strconv"
	"strings"

	"github.com/noah-isme/assessment-ops-api/internal/dedup"
)

// SkipAnswer marks a question the student chose not to answer.
const SkipAnswer = "SKIP"

// Mode records where the expected answers came from.
type Mode string

const (
	// ModeAnswerKey grades against the answer key stored on the test.
	ModeAnswerKey Mode = "answer_key"
	// ModePlaceholder grades against the cyclic A, B, C, D placeholder key.
	ModePlaceholder Mode = "placeholder_key"
)

var placeholderCycle = [4]string{"A", "B", "C", "D"}

// Counts tallies answers per category.
type Counts struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Skipped int `json:"skipped"`
}

// Breakdown lists the points contributed by each category.
type Breakdown struct {
	CorrectPoints float64 `json:"correct_points"`
	WrongPoints   float64 `json:"wrong_points"`
	SkipPoints    float64 `json:"skip_points"`
	Total         float64 `json:"total"`
}

// Explanation is the audit snapshot stored with every score.
type Explanation struct {
	Mode          Mode      `json:"mode"`
	MarkingScheme Scheme    `json:"marking_scheme"`
	Counts        Counts    `json:"counts"`
	Breakdown     Breakdown `json:"breakdown"`
}

// Result is the outcome of grading one answer sheet.
type Result struct {
	Counts
	Accuracy    float64
	NetCorrect  int
	Score       float64
	Explanation Explanation
}

// Calculate grades answers under the scheme. A non-empty key switches to
// answer key mode; otherwise the placeholder key is used.
func Calculate(answers map[string]string, scheme Scheme, key map[string]string) Result {
	mode := ModePlaceholder
	if len(key) > 0 {
		mode = ModeAnswerKey
	}

	var counts Counts
	for question, answer := range answers {
		given := dedup.NormalizeAnswer(answer)
		if given == SkipAnswer {
			counts.Skipped++
			continue
		}

		expected, ok := expectedAnswer(mode, question, key)
		if ok && given == expected {
			counts.Correct++
		} else {
			counts.Wrong++
		}
	}

	accuracy := 0.0
	if graded := counts.Correct + counts.Wrong; graded > 0 {
		accuracy = float64(counts.Correct) / float64(graded) * 100
	}

	breakdown := Breakdown{
		CorrectPoints: float64(counts.Correct) * scheme.Correct,
		WrongPoints:   float64(counts.Wrong) * scheme.Wrong,
		SkipPoints:    float64(counts.Skipped) * scheme.Skip,
	}
	breakdown.Total = breakdown.CorrectPoints + breakdown.WrongPoints + breakdown.SkipPoints

	return Result{
		Counts:     counts,
		Accuracy:   accuracy,
		NetCorrect: counts.Correct - counts.Wrong,
		Score:      breakdown.Total,
		Explanation: Explanation{
			Mode:          mode,
			MarkingScheme: scheme,
			Counts:        counts,
			Breakdown:     breakdown,
		},
	}
}

func expectedAnswer(mode Mode, question string, key map[string]string) (string, bool) {
	if mode == ModeAnswerKey {
		answer, ok := key[question]
		if !ok {
			return "", false
		}
		return dedup.NormalizeAnswer(answer), true
	}
	return PlaceholderAnswer(question), true
}

// PlaceholderAnswer returns the cyclic placeholder answer for a question.
// Non-numeric questions expect "A".
func PlaceholderAnswer(question string) string {
	number, err := strconv.Atoi(strings.TrimSpace(question))
	if err != nil {
		return placeholderCycle[0]
	}
	index := (number - 1) % len(placeholderCycle)
	if index < 0 {
		index += len(placeholderCycle)
	}
	return placeholderCycle[index]
}
