package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/finanalyzer/internal/api"
	"github.com/timmy/finanalyzer/internal/api/middleware"
	"github.com/timmy/finanalyzer/internal/bootstrap"
	"github.com/timmy/finanalyzer/internal/config"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/queue"
	"github.com/timmy/finanalyzer/internal/repository"
	"github.com/timmy/finanalyzer/internal/service"
	"github.com/timmy/finanalyzer/internal/storage"
)

func main() {
	appLogger := logger.NewDefault("finanalyzer-api")
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = appLogger.WithContext(ctx)

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	analysisRepo := repository.NewAnalysisRepository(db)

	uploads, err := storage.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize upload directory")
	}

	archive, err := bootstrap.OpenArchive(ctx, &cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	jobQueue, err := newQueue(ctx, cfg, analysisRepo, archive)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize queue")
	}

	analysisService := service.NewAnalysisService(uploads, archive, jobQueue, analysisRepo, service.AnalysisConfig{
		MaxUploadBytes:    cfg.Upload.MaxSizeMB << 20,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		ArchivePrefix:     cfg.Storage.Prefix,
	})

	// Setup router
	router := api.SetupRouter(analysisService, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		MaxUploadBytes: cfg.Upload.MaxSizeMB << 20,
	}, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":  cfg.Server.Port,
			"mode":  cfg.Server.Mode,
			"queue": cfg.Queue.Driver,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// In-process jobs get their own window; whatever is left is cancelled.
	queueCtx, cancelQueue := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelQueue()
	if err := jobQueue.Shutdown(queueCtx); err != nil {
		appLogger.WithError(err).Warn("Queue shutdown did not finish cleanly")
	}

	appLogger.Info("Server exited")
}

type jobQueue interface {
	service.JobQueue
	Shutdown(ctx context.Context) error
}

// newQueue returns the asynq client, or an in-process pool running the
// pipeline when queue.driver is "memory".
func newQueue(ctx context.Context, cfg *config.Config, repo *repository.AnalysisRepository, archive storage.ObjectStorage) (jobQueue, error) {
	opts := bootstrap.QueueOptions(&cfg.Queue)

	switch cfg.Queue.Driver {
	case "memory":
		client, err := bootstrap.NewLLMClient(cfg)
		if err != nil {
			return nil, err
		}
		q := queue.NewMemoryQueue(bootstrap.NewJobRunner(cfg, client, repo, archive), opts)
		// Shutdown drains the pool after the server stops, so jobs outlive the signal.
		q.Start(context.WithoutCancel(ctx))
		return q, nil
	default:
		redisOpt, err := bootstrap.RedisConnOpt(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return queue.NewAsynqQueue(redisOpt, opts), nil
	}
}
