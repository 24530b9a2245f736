package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
	"github.com/noah-isme/assessment-ops-api/internal/service"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

// ActivityHandler serves the review audit trail.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires the audit trail route behind the given guards.
func (h *ActivityHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("", withGuards(guards, h.list)...)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	var request dto.ActivityListRequest
	if err := c.QueryParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(c.UserContext(), request)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidActivityFilter):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", validationDetails(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity")
		}
	}

	return utils.OK(c, response.Items, "activity retrieved", response.Pagination)
}
