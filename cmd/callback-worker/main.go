// Command callback-worker drains the callback queue and emails practices.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/practice-booking/cmd/mainconfig"
	"github.com/wolfman30/practice-booking/internal/app/bootstrap"
	"github.com/wolfman30/practice-booking/internal/callbacks"
	appconfig "github.com/wolfman30/practice-booking/internal/config"
	"github.com/wolfman30/practice-booking/internal/notify"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).Component("callback-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, cleanup, err := buildWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise callback worker", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("callback worker started", "workers", cfg.WorkerCount, "queue", cfg.CallbackQueueURL)
	worker.Run(ctx)
	logger.Info("callback worker stopped")
}

func buildWorker(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*callbacks.Worker, func(), error) {
	if cfg.UseMemoryQueue || cfg.CallbackQueueURL == "" {
		return nil, nil, errors.New("CALLBACK_QUEUE_URL is required and USE_MEMORY_QUEUE must be false")
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	queue, _ := bootstrap.BuildCallbackQueue(cfg, &awsCfg)
	return buildWorkerWithQueue(cfg, &awsCfg, queue, logger)
}

func buildWorkerWithQueue(cfg *appconfig.Config, awsCfg *aws.Config, queue callbacks.Queue, logger *logging.Logger) (*callbacks.Worker, func(), error) {
	sender, err := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := bootstrap.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}
	notifier := notify.NewService(sender, bootstrap.BuildDirectory(sqlDB, logger), logger)
	worker := callbacks.NewWorker(queue, notifier, logger,
		callbacks.WithWorkerCount(cfg.WorkerCount),
		callbacks.WithReceiveWaitSeconds(int(cfg.WorkerPollWait.Seconds())),
		callbacks.WithReceiveBatchSize(cfg.WorkerMaxMessages),
	)
	return worker, cleanup, nil
}
