package unit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/assessment-ops-api/internal/config"
	"github.com/noah-isme/assessment-ops-api/internal/handler"
	"github.com/noah-isme/assessment-ops-api/internal/router"
)

type response struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
}

func TestHealthRoutes(t *testing.T) {
	cfg := config.Config{
		AppName: "Assessment Ops API",
		AppEnv:  "test",
	}

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{})

	for _, path := range []string{"/health", "/api/health"} {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("failed to execute request: %v", err)
		}

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var payload response
		err = json.NewDecoder(resp.Body).Decode(&payload)
		assert.NoError(t, err)
		assert.True(t, payload.Success)
		assert.Equal(t, "ok", payload.Data.Status)
		assert.Equal(t, "unknown", payload.Data.Database)
		assert.Equal(t, cfg.AppName, payload.Data.Service)
		assert.Equal(t, cfg.AppEnv, payload.Data.Environment)
		assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
	}
}

func TestAPIGroupSetsApplicationHeader(t *testing.T) {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "Assessment Ops API"}, router.Dependencies{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil), -1)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}
	assert.Equal(t, "Assessment Ops API", resp.Header.Get("X-Application"))
}
