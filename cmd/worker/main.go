package main

import (
	"context"
	"os"

	"github.com/timmy/finanalyzer/internal/bootstrap"
	"github.com/timmy/finanalyzer/internal/config"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/queue"
	"github.com/timmy/finanalyzer/internal/repository"
)

func main() {
	appLogger := logger.NewDefault("finanalyzer-worker")
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	client, err := bootstrap.NewLLMClient(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize LLM client")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ctx := appLogger.WithContext(context.Background())
	archive, err := bootstrap.OpenArchive(ctx, &cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	redisOpt, err := bootstrap.RedisConnOpt(&cfg.Redis)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid redis config")
	}

	runner := bootstrap.NewJobRunner(cfg, client, repository.NewAnalysisRepository(db), archive)
	worker := queue.NewWorker(redisOpt, bootstrap.QueueOptions(&cfg.Queue), runner, appLogger)

	appLogger.WithFields(logger.Fields{
		"queue":       cfg.Queue.Name,
		"concurrency": cfg.Queue.Concurrency,
		"model":       client.Model(),
	}).Info("Starting worker")

	// Run blocks until SIGINT/SIGTERM and drains active jobs.
	if err := worker.Run(); err != nil {
		appLogger.WithError(err).Fatal("Worker stopped")
	}
	appLogger.Info("Worker exited")
}
