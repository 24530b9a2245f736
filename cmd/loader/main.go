package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
)

const defaultAPIURL = "http://localhost:8080"

type summaryEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    dto.IngestSummary `json:"data"`
}

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	apiURL := flag.String("api", envOr("API_URL", defaultAPIURL), "base URL of the assessment ops API")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-api url] <export.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to read export")
	}

	request, err := dto.ParseSourceEvents(data)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to parse export")
	}

	endpoint := strings.TrimRight(*apiURL, "/") + "/api/ingest/attempts"
	batchID := uuid.NewString()
	agent := fiber.Post(endpoint).JSON(request).Timeout(*timeout)
	agent.Set("X-Ingest-Batch-ID", batchID)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		logger.Fatal().Err(errs[0]).Str("endpoint", endpoint).Msg("ingest request failed")
	}

	var envelope summaryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logger.Fatal().Err(err).Int("status", status).Msg("unexpected response from api")
	}
	if status != fiber.StatusOK || !envelope.Success {
		logger.Fatal().Int("status", status).Str("message", envelope.Message).Msg("ingest rejected")
	}

	summary := envelope.Data
	logger.Info().
		Int("total_received", summary.TotalReceived).
		Int("ingested", summary.Ingested).
		Int("duplicates_detected", summary.DuplicatesDetected).
		Int("scored", summary.Scored).
		Int("errors", summary.Errors).
		Str("batch_id", batchID).
		Msg("export ingested")

	for _, detail := range summary.Details {
		if detail.Status == dto.IngestStatusError {
			logger.Warn().Str("event_id", detail.EventID).Str("reason", detail.Reason).Msg("event rejected")
		}
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to encode summary")
	}
	fmt.Println(string(out))
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
