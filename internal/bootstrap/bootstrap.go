// Package bootstrap builds the components shared by the binaries from Config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/timmy/finanalyzer/internal/agent"
	"github.com/timmy/finanalyzer/internal/config"
	"github.com/timmy/finanalyzer/internal/llm"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/queue"
	"github.com/timmy/finanalyzer/internal/repository"
	"github.com/timmy/finanalyzer/internal/service"
	"github.com/timmy/finanalyzer/internal/storage"
)

// RedisConnOpt returns the broker connection. redis.url wins over addr/password/db.
func RedisConnOpt(cfg *config.RedisConfig) (asynq.RedisConnOpt, error) {
	if cfg.URL != "" {
		opt, err := asynq.ParseRedisURI(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid url: %w", err)
		}
		return opt, nil
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr or url is required")
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

// QueueOptions maps the queue section onto queue.Options.
func QueueOptions(cfg *config.QueueConfig) queue.Options {
	return queue.Options{
		Name:        cfg.Name,
		Concurrency: cfg.Concurrency,
		Retention:   cfg.Retention,
		TaskTimeout: cfg.TaskTimeout,
	}
}

// OpenArchive returns the upload archive, or nil when storage is disabled.
// Buckets are created on demand for backends that support it.
func OpenArchive(ctx context.Context, cfg *config.StorageConfig) (storage.ObjectStorage, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	archive, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	if b, ok := archive.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}
	logger.CtxInfo(ctx, "Upload archive enabled: type=%s, bucket=%s", cfg.Type, cfg.Bucket)
	return archive, nil
}

// NewLLMClient validates the llm section and creates the client.
func NewLLMClient(cfg *config.Config) (llm.Client, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	return llm.NewClient(&llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
}

// PipelineConfig maps the agent and extract sections onto agent.Config.
func PipelineConfig(cfg *config.Config) agent.Config {
	return agent.Config{
		MaxDocumentChars: cfg.Agent.MaxDocumentChars,
		MaxPages:         cfg.Extract.MaxPages,
	}
}

// NewJobRunner wires the runner used by queue workers.
func NewJobRunner(cfg *config.Config, client llm.Client, repo *repository.AnalysisRepository, archive storage.ObjectStorage) *service.JobRunner {
	var records service.RecordSaver
	if repo != nil {
		records = repo
	}
	return service.NewJobRunner(client, records, archive, service.RunnerConfig{
		Pipeline:               PipelineConfig(cfg),
		CleanupAfterProcessing: cfg.Upload.CleanupAfterProcessing,
	})
}
