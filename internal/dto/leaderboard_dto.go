package dto

import "time"

// LeaderboardEntry is one ranked student.
type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	IsTop3      bool            `json:"is_top_3"`
	AttemptID   string          `json:"attempt_id"`
	Student     StudentResponse `json:"student"`
	Score       float64         `json:"score"`
	Accuracy    float64         `json:"accuracy"`
	NetCorrect  int             `json:"net_correct"`
	Correct     int             `json:"correct"`
	Wrong       int             `json:"wrong"`
	Skipped     int             `json:"skipped"`
	StartedAt   time.Time       `json:"started_at"`
	SubmittedAt *time.Time      `json:"submitted_at"`
}

// LeaderboardResponse ranks the best attempt of each student for one test.
type LeaderboardResponse struct {
	Tests       []TestOption       `json:"tests"`
	TestID      *string            `json:"test_id"`
	Entries     []LeaderboardEntry `json:"leaderboard"`
	GeneratedAt time.Time          `json:"generated_at"`
	CacheHit    bool               `json:"cache_hit"`
}
