package contract_test

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/assessment-ops-api/internal/config"
	"github.com/noah-isme/assessment-ops-api/internal/database"
	"github.com/noah-isme/assessment-ops-api/internal/dedup"
	"github.com/noah-isme/assessment-ops-api/internal/handler"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
	"github.com/noah-isme/assessment-ops-api/internal/router"
	"github.com/noah-isme/assessment-ops-api/internal/service"
)

func setupContractApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := database.Connect("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)
	matcher := dedup.NewMatcher(dedup.DefaultConfig(), logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Contract", IngestRateLimit: 1000}, router.Dependencies{
		DB:                 db,
		IngestHandler:      handler.NewIngestHandler(service.NewIngestionService(store, matcher, validate, nil, nil, 100, logger), logger),
		AttemptHandler:     handler.NewAttemptHandler(service.NewAttemptService(store, validate, nil, nil, logger), logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(service.NewLeaderboardService(store, nil, logger), logger),
		TestHandler:        handler.NewTestHandler(service.NewTestService(store, validate, nil, nil, logger), logger),
		ActivityHandler:    handler.NewActivityHandler(service.NewActivityService(store, validate, logger), logger),
	})
	return app
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func readPayload(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

var contractEvents = map[string]interface{}{
	"events": []map[string]interface{}{
		{
			"event_id":      "evt-1",
			"student_name":  "Asha Rao",
			"student_email": "Asha@Example.com",
			"test_id":       "jee-mock-1",
			"test_name":     "JEE Mock 1",
			"started_at":    "2024-03-10T09:00:00Z",
			"submitted_at":  "2024-03-10T10:00:00Z",
			"answers":       map[string]string{"1": "A", "2": "B", "3": "SKIP", "4": "A"},
		},
		{
			"event_id":      "evt-2",
			"student_name":  "Asha R",
			"student_email": "asha@example.com ",
			"test_id":       "jee-mock-1",
			"test_name":     "JEE Mock 1",
			"started_at":    "2024-03-10T09:03:00Z",
			"answers":       map[string]string{"1": "A", "2": "B", "3": "SKIP", "4": "A"},
		},
		{
			"event_id":      "evt-3",
			"student_name":  "Ravi",
			"student_phone": "+91 98765 43210",
			"test_id":       "jee-mock-1",
			"test_name":     "JEE Mock 1",
			"started_at":    "not a time",
			"answers":       map[string]string{"1": "C"},
		},
		{
			"event_id":      "evt-4",
			"student_name":  "Mira",
			"student_phone": "98765-00000",
			"test_id":       "jee-mock-1",
			"test_name":     "JEE Mock 1",
			"started_at":    "2024-03-10 09:30:00",
			"answers":       map[string]string{"1": "A", "2": "C"},
		},
	},
}
