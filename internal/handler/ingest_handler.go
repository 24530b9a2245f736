package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/service"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

const maxExportBytes = 20 << 20

// IngestHandler accepts attempt batches.
type IngestHandler struct {
	service service.IngestionService
	logger  zerolog.Logger
}

// NewIngestHandler constructs the handler.
func NewIngestHandler(service service.IngestionService, logger zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		service: service,
		logger:  logger.With().Str("component", "ingest_handler").Logger(),
	}
}

// Register wires ingestion routes. Guards run before every route, typically a
// rate limiter.
func (h *IngestHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/attempts", withGuards(guards, h.ingest)...)
	router.Post("/attempts/file", withGuards(guards, h.ingestFile)...)
}

func (h *IngestHandler) ingest(c *fiber.Ctx) error {
	var payload dto.IngestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.Ingest(c.UserContext(), payload)
	if err != nil {
		return h.fail(c, err)
	}

	return utils.SendSuccess(c, "batch ingested", summary)
}

func (h *IngestHandler) ingestFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	if file.Size > maxExportBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "export file is too large")
	}

	handle, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file could not be read")
	}
	defer handle.Close()

	data, err := io.ReadAll(io.LimitReader(handle, maxExportBytes+1))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file could not be read")
	}
	if len(data) > maxExportBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "export file is too large")
	}

	summary, err := h.service.IngestExport(c.UserContext(), data)
	if err != nil {
		return h.fail(c, err)
	}

	return utils.SendSuccess(c, "export ingested", summary)
}

func (h *IngestHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBatchTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUnsupportedExport):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrInvalidExport):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid attempt events", validationDetails(err))
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to ingest batch")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to ingest batch")
	}
}
