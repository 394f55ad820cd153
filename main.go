package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wayfarer/config"
	"wayfarer/cron"
	"wayfarer/database"
	resultsRepo "wayfarer/database/repository/results"
	"wayfarer/handlers"
	"wayfarer/routes"
	"wayfarer/services/advisory"
	"wayfarer/services/events"
	ai "wayfarer/services/intelligence"
	"wayfarer/services/orchestration"
	"wayfarer/services/places"
	"wayfarer/services/session"
	"wayfarer/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger, err := utils.NewLogger(config.IsProduction(), cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	settings, err := sessionSettings(cfg)
	if err != nil {
		sugar.Fatalf("main: invalid orchestration settings: %v", err)
	}

	// Redis: one logical database per concern.
	eventsRedis, err := utils.NewRedisClient(ctx, redisOptions(cfg, cfg.RedisEventsDB))
	if err != nil {
		sugar.Fatalf("main: %v", err)
	}
	defer eventsRedis.Close()
	sessionRedis, err := utils.NewRedisClient(ctx, redisOptions(cfg, cfg.RedisSessionDB))
	if err != nil {
		sugar.Fatalf("main: %v", err)
	}
	defer sessionRedis.Close()

	// Optional results archive.
	var (
		mongoClient *mongo.Client
		results     resultsRepo.ResultsRepository
		archive     orchestration.Archive = orchestration.NopArchive{}
	)
	if cfg.DatabaseURL != "" {
		mongoClient, err = database.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			sugar.Fatalf("main: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())

		repo := resultsRepo.NewMongoResultsRepo(mongoClient.Database(cfg.DatabaseName))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Results indexes not created", zap.Error(err))
		}
		results, archive = repo, repo
	}

	// Reasoning, places and advisory collaborators.
	gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		sugar.Fatalf("main: failed to create Gemini client: %v", err)
	}
	defer gemini.Close()
	reasoner := ai.NewReasoner(gemini, ai.ReasonerOptions{
		ReviewModel: cfg.GeminiReviewModel,
		AdvisoryURL: cfg.AdvisoryURL,
	}, logger)

	placesClient, err := places.NewClient(cfg.GooglePlacesAPIKey, cfg.PlacesRatePerSec, logger)
	if err != nil {
		sugar.Fatalf("main: failed to create places client: %v", err)
	}
	advisoryService, err := advisory.NewService(cfg.AdvisoryURL, reasoner, logger)
	if err != nil {
		sugar.Fatalf("main: %v", err)
	}

	bus := events.NewRedisBus(eventsRedis, cfg.EventNamespace, logger)

	// Temporal client and worker.
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    utils.NewTemporalLogger(logger),
	})
	if err != nil {
		sugar.Fatalf("main: failed to connect to Temporal: %v", err)
	}
	defer temporalClient.Close()

	temporalWorker := worker.New(temporalClient, cfg.TaskQueue, worker.Options{})
	temporalWorker.RegisterWorkflowWithOptions(orchestration.SessionWorkflow, workflow.RegisterOptions{
		Name: orchestration.WorkflowName,
	})
	temporalWorker.RegisterActivity(&orchestration.Activities{
		Reasoner:  reasoner,
		Places:    placesClient,
		Advisory:  advisoryService,
		Publisher: bus,
		Archive:   archive,
	})
	if err := temporalWorker.Start(); err != nil {
		sugar.Fatalf("main: failed to start Temporal worker: %v", err)
	}
	defer temporalWorker.Stop()

	// Session registry and its background tasks.
	queueOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	queue := asynq.NewClient(queueOpt)
	defer queue.Close()

	sessionStore := session.NewStore(sessionRedis, sessionTTL(cfg.SessionIdleTTL))
	registry := session.NewRegistry(
		temporalClient,
		sessionStore,
		bus,
		queue,
		session.Options{TaskQueue: cfg.TaskQueue, Settings: settings},
		logger,
	)

	taskWorker := cron.NewWorker(registry, sessionStore, cron.WorkerOptions{Redis: queueOpt, IdleTTL: cfg.SessionIdleTTL}, logger)
	if err := taskWorker.Start(ctx); err != nil {
		sugar.Fatalf("main: %v", err)
	}

	utils.StartHealthMonitor(ctx, utils.HealthChecks{
		Redis:    []*redis.Client{eventsRedis, sessionRedis},
		Mongo:    mongoClient,
		Temporal: temporalClient,
	}, 60*time.Second)

	// HTTP transport.
	router := gin.New()
	routes.RegisterRoutes(router, handlers.NewHandlerBundle(registry, results), cfg.MaxRequestsPerMin, logger)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	sugar.Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Some sessions were not terminated", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	taskWorker.Shutdown()
	stop()

	sugar.Info("main: server stopped gracefully")
}

func redisOptions(cfg config.Config, db int) utils.RedisOptions {
	return utils.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: db}
}

func sessionSettings(cfg config.Config) (orchestration.Settings, error) {
	policy, err := orchestration.ParseOverflowPolicy(cfg.MailboxPolicy)
	if err != nil {
		return orchestration.Settings{}, err
	}
	return orchestration.Settings{
		MaxAttempts:       cfg.MaxAttempts,
		MaxCritiqueRounds: cfg.MaxCritiqueRounds,
		MailboxCapacity:   cfg.MailboxCapacity,
		MailboxPolicy:     policy,
		History: orchestration.HistoryPolicy{
			MaxTranscript: cfg.MaxTranscript,
			MaxCritique:   cfg.MaxCritiqueHistory,
		},
		ContinueAsNewAfter: cfg.ContinueAsNewAfter,
		MaxPhaseRetries:    cfg.MaxPhaseRetries,
		ArchiveResults:     cfg.DatabaseURL != "",
	}, nil
}

// sessionTTL keeps session metadata around longer than the idle sweep so
// the reaper always finds it.
func sessionTTL(idle time.Duration) time.Duration {
	if idle <= 0 {
		return 24 * time.Hour
	}
	return 2 * idle
}
