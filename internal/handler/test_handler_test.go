package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/handler"
	"github.com/noah-isme/assessment-ops-api/internal/middleware"
	"github.com/noah-isme/assessment-ops-api/internal/scoring"
	"github.com/noah-isme/assessment-ops-api/internal/service"
)

type mockTestService struct {
	tests    []dto.TestResponse
	id       string
	request  dto.TestScoringUpdateRequest
	actor    service.ReviewActor
	response dto.TestScoringUpdateResponse
	err      error
}

func (m *mockTestService) List(context.Context) ([]dto.TestResponse, error) {
	return m.tests, m.err
}

func (m *mockTestService) UpdateScoring(_ context.Context, id string, request dto.TestScoringUpdateRequest, actor service.ReviewActor) (dto.TestScoringUpdateResponse, error) {
	m.actor = actor
	m.id = id
	m.request = request
	return m.response, m.err
}

func newTestApp(svc service.TestService, guards ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handler.NewTestHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/tests"), guards...)
	return app
}

func TestTestHandler_List(t *testing.T) {
	svc := &mockTestService{tests: []dto.TestResponse{{ID: "t-1", Name: "Mock 1", ScoringMode: scoring.ModePlaceholder}}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/tests", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)

	var tests []dto.TestResponse
	require.NoError(t, json.Unmarshal(body.Data, &tests))
	require.Len(t, tests, 1)
	require.Equal(t, "Mock 1", tests[0].Name)
}

func TestTestHandler_UpdateScoring(t *testing.T) {
	svc := &mockTestService{response: dto.TestScoringUpdateResponse{
		Test:     dto.TestResponse{ID: "t-1", ScoringMode: scoring.ModeAnswerKey, HasAnswerKey: true, AnswerKeySize: 2},
		Rescored: 4,
	}}
	app := newTestApp(svc)

	req := jsonRequest(t, http.MethodPut, "/api/tests/t-1/scoring", map[string]interface{}{
		"marking_scheme": map[string]float64{"correct": 3, "wrong": -1, "skip": 0},
		"answer_key":     map[string]string{"1": "A", "2": "C"},
		"rescore":        true,
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, "t-1", svc.id)
	require.NotNil(t, svc.request.MarkingScheme)
	require.Equal(t, scoring.Scheme{Correct: 3, Wrong: -1, Skip: 0}, *svc.request.MarkingScheme)
	require.Equal(t, map[string]string{"1": "A", "2": "C"}, svc.request.AnswerKey)
	require.True(t, svc.request.Rescore)

	var body envelope
	decodeResponse(t, resp, &body)

	var payload dto.TestScoringUpdateResponse
	require.NoError(t, json.Unmarshal(body.Data, &payload))
	require.Equal(t, 4, payload.Rescored)
	require.Equal(t, scoring.ModeAnswerKey, payload.Test.ScoringMode)
}

func TestTestHandler_UpdateScoringErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: service.ErrTestNotFound, status: fiber.StatusNotFound},
		{err: fmt.Errorf("%w: correct must exceed wrong", service.ErrInvalidScoringConfig), status: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		app := newTestApp(&mockTestService{err: tc.err})
		resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/tests/t-1/scoring", map[string]interface{}{"max_marks": 10}))
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode)
	}
}

func TestTestHandler_ScoringUpdateRequiresReviewer(t *testing.T) {
	svc := &mockTestService{}
	app := newTestApp(svc, middleware.ReviewGuard("review-secret")...)

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/tests/t-1/scoring", map[string]interface{}{"max_marks": 10}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, svc.id)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/tests", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
