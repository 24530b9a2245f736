package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assessment-ops-api/internal/config"
	"github.com/noah-isme/assessment-ops-api/internal/database"
	"github.com/noah-isme/assessment-ops-api/internal/dedup"
	"github.com/noah-isme/assessment-ops-api/internal/handler"
	"github.com/noah-isme/assessment-ops-api/internal/middleware"
	"github.com/noah-isme/assessment-ops-api/internal/observability"
	"github.com/noah-isme/assessment-ops-api/internal/repository"
	"github.com/noah-isme/assessment-ops-api/internal/router"
	"github.com/noah-isme/assessment-ops-api/internal/service"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level).With().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	probes := make(map[string]handler.HealthProbe)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, leaderboard cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
			probes["redis"] = func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events go to redis only")
			natsConn = nil
		} else {
			defer natsConn.Drain()
			probes["nats"] = func(context.Context) error {
				if !natsConn.IsConnected() {
					return nats.ErrConnectionClosed
				}
				return nil
			}
		}
	}

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)
	matcher := dedup.NewMatcher(dedup.Config{
		Window:              cfg.DedupWindow,
		SimilarityThreshold: cfg.DedupSimilarityThreshold,
	}, logger)
	cache := service.NewLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL, logger)
	publisher := service.NewEventPublisher(redisClient, natsConn, cfg.NATSSubject, logger)

	ingestionService := service.NewIngestionService(store, matcher, validate, cache, publisher, cfg.IngestMaxBatchSize, logger)
	attemptService := service.NewAttemptService(store, validate, cache, publisher, logger)
	leaderboardService := service.NewLeaderboardService(store, cache, logger)
	testService := service.NewTestService(store, validate, cache, publisher, logger)
	activityService := service.NewActivityService(store, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
			return utils.SendError(c, status, err.Error())
		},
	})

	middleware.Register(app, middleware.Config{
		Logger:        &logger,
		AccessLogging: cfg.AppEnv == "development",
		AllowOrigins:  cfg.CORSAllowOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		DB:                 db,
		HealthProbes:       probes,
		IngestHandler:      handler.NewIngestHandler(ingestionService, logger),
		AttemptHandler:     handler.NewAttemptHandler(attemptService, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboardService, logger),
		TestHandler:        handler.NewTestHandler(testService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
	})

	if !cfg.ReviewAuthEnabled() {
		logger.Warn().Msg("jwt secret not set, review endpoints are unauthenticated")
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
