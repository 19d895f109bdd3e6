package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/timmy/finanalyzer/internal/agent"
	"github.com/timmy/finanalyzer/internal/bootstrap"
	"github.com/timmy/finanalyzer/internal/config"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/repository"
)

const defaultQuery = "Analyze this financial document for investment insights"

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "finanalyzer-analyze",
	})
	logger.SetDefaultLogger(appLogger)

	file := flag.String("file", "", "Path to the PDF to analyze")
	query := flag.String("query", defaultQuery, "Question to answer about the document")
	configPath := flag.String("config", "", "Path to config file")
	persist := flag.Bool("persist", false, "Store the report in the configured database")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -file report.pdf [-query ...] [-persist]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	client, err := bootstrap.NewLLMClient(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize LLM client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	jobID := uuid.NewString()
	ctx = logger.SetJobID(appLogger.WithContext(ctx), jobID)

	res, err := agent.NewFinancialPipeline(client, bootstrap.PipelineConfig(cfg)).Run(ctx, agent.Inputs{
		Query:        *query,
		DocumentPath: *file,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Analysis failed")
	}

	if *persist {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize database")
		}
		rec, err := repository.NewAnalysisRepository(db).Save(ctx, jobID, *file, *query, res.Report)
		if err != nil {
			appLogger.WithError(err).Error("Failed to persist analysis result")
		} else {
			appLogger.WithField("record_id", rec.ID).Info("Analysis result stored")
		}
	}

	fmt.Println(res.Report)
}
