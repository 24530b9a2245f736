package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/dto"
)

const leaderboardGenerationKey = "leaderboard:generation"

// LeaderboardCache stores rendered leaderboards under a generation counter.
// Bumping the generation invalidates every cached board at once.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewLeaderboardCache builds the cache. A nil client disables caching.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *LeaderboardCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "leaderboard_cache").Logger(),
	}
}

func (c *LeaderboardCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *LeaderboardCache) key(ctx context.Context, testID string) (string, error) {
	generation, err := c.client.Get(ctx, leaderboardGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if testID == "" {
		testID = "default"
	}
	return fmt.Sprintf("leaderboard:v1:%d:%s", generation, testID), nil
}

// Get returns a cached leaderboard when one exists for the current generation.
func (c *LeaderboardCache) Get(ctx context.Context, testID string) (dto.LeaderboardResponse, bool) {
	if !c.enabled() {
		return dto.LeaderboardResponse{}, false
	}

	key, err := c.key(ctx, testID)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read leaderboard generation")
		return dto.LeaderboardResponse{}, false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
		return dto.LeaderboardResponse{}, false
	}

	var response dto.LeaderboardResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		c.logger.Warn().Err(err).Msg("discarding malformed leaderboard cache entry")
		return dto.LeaderboardResponse{}, false
	}
	return response, true
}

// Set stores a leaderboard under the current generation.
func (c *LeaderboardCache) Set(ctx context.Context, testID string, response dto.LeaderboardResponse) {
	if !c.enabled() {
		return
	}

	key, err := c.key(ctx, testID)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read leaderboard generation")
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
	}
}

// Invalidate drops every cached leaderboard.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, leaderboardGenerationKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}
