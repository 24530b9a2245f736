package dedup

import "strings"

// AnswerSimilarity returns the share of commonly answered questions on which
// both answer sets agree. Questions answered in only one set are ignored.
func AnswerSimilarity(a, b map[string]string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	common := 0
	matching := 0
	for question, answer := range a {
		other, ok := b[question]
		if !ok {
			continue
		}
		common++
		if NormalizeAnswer(answer) == NormalizeAnswer(other) {
			matching++
		}
	}

	if common == 0 {
		return 0
	}
	return float64(matching) / float64(common)
}

// NormalizeAnswer uppercases and trims an answer for comparison.
func NormalizeAnswer(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}
