package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/service"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

// LeaderboardHandler serves per-test rankings.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler constructs the handler.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register wires the leaderboard route.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *LeaderboardHandler) get(c *fiber.Ctx) error {
	response, err := h.service.Get(c.UserContext(), c.Query("test_id"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build leaderboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build leaderboard")
	}

	return utils.SendSuccess(c, "leaderboard retrieved", response)
}
