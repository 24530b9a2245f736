package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func correlationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})
	return app
}

func TestCorrelationIDEchoesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
	require.Equal(t, "req-123", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	resp, err := correlationApp().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	generated := resp.Header.Get("X-Request-ID")
	_, parseErr := uuid.Parse(generated)
	require.NoError(t, parseErr)
}

func TestCorrelationIDTruncatesOversizedValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("x", 500))

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Len(t, resp.Header.Get("X-Correlation-ID"), maxCorrelationIDLength)
}

func TestCorrelationIDPrefersBatchHeaderOverRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Ingest-Batch-ID", "batch-7")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "batch-7", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDStripsWhitespace(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "batch 9")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "batch9", resp.Header.Get("X-Correlation-ID"))
}
