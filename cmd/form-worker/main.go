package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/joseph-ayodele/form-extractor/internal/bootstrap"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/queue"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Queue.InputURL == "" || cfg.Queue.OutputURL == "" {
		logger.Error("SQS_INPUT_URL and SQS_OUTPUT_URL are required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Store == nil {
		logger.Error("STORAGE_BUCKET is required to download queued documents")
		os.Exit(2)
	}

	manager := queue.NewSQSManager(sqs.NewFromConfig(*app.AWS), cfg.Queue.InputURL, cfg.Queue.OutputURL)
	worker := queue.NewWorker(manager, app.Store, app.Orchestrator, cfg.Queue.Workers, cfg.Queue.ProcessTimeout, logger)

	worker.Start(ctx)
	logger.Info("stopped")
}
