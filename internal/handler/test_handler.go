package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/service"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

// TestHandler exposes tests and their scoring setup.
type TestHandler struct {
	service service.TestService
	logger  zerolog.Logger
}

// NewTestHandler constructs the handler.
func NewTestHandler(service service.TestService, logger zerolog.Logger) *TestHandler {
	return &TestHandler{
		service: service,
		logger:  logger.With().Str("component", "test_handler").Logger(),
	}
}

// Register wires test routes. Guards protect the scoring update.
func (h *TestHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("", h.list)
	router.Put("/:id/scoring", withGuards(guards, h.updateScoring)...)
}

func (h *TestHandler) list(c *fiber.Ctx) error {
	tests, err := h.service.List(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list tests")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list tests")
	}

	return utils.SendSuccess(c, "tests retrieved", tests)
}

func (h *TestHandler) updateScoring(c *fiber.Ctx) error {
	var payload dto.TestScoringUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	id := c.Params("id")
	response, err := h.service.UpdateScoring(c.UserContext(), id, payload, reviewActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "test not found")
		case errors.Is(err, service.ErrInvalidScoringConfig):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("test_id", id).Msg("failed to update test scoring")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update test scoring")
		}
	}

	return utils.SendSuccess(c, "test scoring updated", response)
}
