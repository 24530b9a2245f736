package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/service"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

// AttemptHandler exposes attempt queries and review actions.
type AttemptHandler struct {
	service service.AttemptService
	logger  zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(service service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		service: service,
		logger:  logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register wires attempt routes. Guards protect the review actions only.
func (h *AttemptHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/recompute", withGuards(guards, h.recompute)...)
	router.Post("/:id/flag", withGuards(guards, h.flag)...)
}

func (h *AttemptHandler) list(c *fiber.Ctx) error {
	var request dto.AttemptListRequest
	if err := c.QueryParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(c.UserContext(), request)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAttemptFilter):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", validationDetails(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list attempts")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to list attempts")
		}
	}

	return utils.OK(c, response.Items, "attempts retrieved", response.Pagination)
}

func (h *AttemptHandler) get(c *fiber.Ctx) error {
	id := c.Params("id")
	response, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "attempt not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("attempt_id", id).Msg("failed to load attempt")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load attempt")
	}

	return utils.SendSuccess(c, "attempt retrieved", response)
}

func (h *AttemptHandler) recompute(c *fiber.Ctx) error {
	id := c.Params("id")
	score, err := h.service.Recompute(c.UserContext(), id, reviewActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "attempt not found")
		case errors.Is(err, service.ErrAttemptDeduplicated):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("attempt_id", id).Msg("failed to recompute score")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to recompute score")
		}
	}

	return utils.SendSuccess(c, "score recomputed", score)
}

func (h *AttemptHandler) flag(c *fiber.Ctx) error {
	var payload dto.FlagRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	id := c.Params("id")
	flag, err := h.service.Flag(c.UserContext(), id, payload, reviewActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "attempt not found")
		case errors.Is(err, service.ErrFlagReasonRequired):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("attempt_id", id).Msg("failed to flag attempt")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to flag attempt")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt flagged", flag)
}
