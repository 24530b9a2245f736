package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/handler"
)

type mockLeaderboardService struct {
	testID   string
	response dto.LeaderboardResponse
	err      error
}

func (m *mockLeaderboardService) Get(_ context.Context, testID string) (dto.LeaderboardResponse, error) {
	m.testID = testID
	return m.response, m.err
}

func TestLeaderboardHandler_Get(t *testing.T) {
	testID := "t-1"
	svc := &mockLeaderboardService{response: dto.LeaderboardResponse{
		Tests:  []dto.TestOption{{ID: testID, Name: "Mock 1"}},
		TestID: &testID,
		Entries: []dto.LeaderboardEntry{
			{Rank: 1, IsTop3: true, AttemptID: "a-1", Student: dto.StudentResponse{ID: "s-1", FullName: "Asha"}, Score: 80},
		},
	}}

	app := fiber.New()
	handler.NewLeaderboardHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/leaderboard"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/leaderboard?test_id=t-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "t-1", svc.testID)

	var body envelope
	decodeResponse(t, resp, &body)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &payload))
	require.Equal(t, "t-1", payload["test_id"])
	entries := payload["leaderboard"].([]interface{})
	require.Len(t, entries, 1)
	require.Equal(t, true, entries[0].(map[string]interface{})["is_top_3"])
}

func TestLeaderboardHandler_Failure(t *testing.T) {
	app := fiber.New()
	handler.NewLeaderboardHandler(&mockLeaderboardService{err: errors.New("db down")}, zerolog.New(io.Discard)).Register(app.Group("/api/leaderboard"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
