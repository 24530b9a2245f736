package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                  string
	AppEnv                   string
	AppPort                  string
	LogLevel                 string
	DatabaseURL              string
	RedisURL                 string
	NATSURL                  string
	NATSSubject              string
	JWTSecret                string
	CORSAllowOrigins         string
	LeaderboardCacheTTL      time.Duration
	DedupWindow              time.Duration
	DedupSimilarityThreshold float64
	IngestMaxBatchSize       int
	IngestRateLimit          int
	IngestRateWindow         time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// ReviewAuthEnabled reports whether review endpoints require a bearer token.
func (c Config) ReviewAuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ASSESSMENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Assessment Ops API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.url", "sqlite://assessment_ops.db")
	v.SetDefault("nats.subject", "assessment.ingestion")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("dedup.window", "7m")
	v.SetDefault("dedup.similarity_threshold", 0.92)
	v.SetDefault("ingest.max_batch_size", 5000)
	v.SetDefault("ingest.rate_limit", 30)
	v.SetDefault("ingest.rate_window", "1m")

	cacheTTL, err := parseDuration(v, "leaderboard.cache_ttl", "1m")
	if err != nil {
		return Config{}, err
	}

	window, err := parseDuration(v, "dedup.window", "7m")
	if err != nil {
		return Config{}, err
	}
	if window <= 0 {
		return Config{}, fmt.Errorf("dedup window must be positive")
	}

	rateWindow, err := parseDuration(v, "ingest.rate_window", "1m")
	if err != nil {
		return Config{}, err
	}

	threshold := v.GetFloat64("dedup.similarity_threshold")
	if threshold <= 0 || threshold > 1 {
		return Config{}, fmt.Errorf("dedup similarity threshold must be within (0, 1], got %v", threshold)
	}

	cfg := Config{
		AppName:                  v.GetString("app.name"),
		AppEnv:                   v.GetString("app.env"),
		AppPort:                  v.GetString("app.port"),
		LogLevel:                 strings.ToLower(v.GetString("log.level")),
		DatabaseURL:              v.GetString("database.url"),
		RedisURL:                 v.GetString("redis.url"),
		NATSURL:                  v.GetString("nats.url"),
		NATSSubject:              v.GetString("nats.subject"),
		JWTSecret:                v.GetString("jwt.secret"),
		CORSAllowOrigins:         v.GetString("cors.allow_origins"),
		LeaderboardCacheTTL:      cacheTTL,
		DedupWindow:              window,
		DedupSimilarityThreshold: threshold,
		IngestMaxBatchSize:       v.GetInt("ingest.max_batch_size"),
		IngestRateLimit:          v.GetInt("ingest.rate_limit"),
		IngestRateWindow:         rateWindow,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.IngestMaxBatchSize <= 0 {
		cfg.IngestMaxBatchSize = 5000
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
