package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/labdent/labexport/internal/app"
	jobmetrics "github.com/labdent/labexport/internal/jobs"
	"github.com/labdent/labexport/internal/laborator"
	"github.com/labdent/labexport/internal/platform/cache"
	"github.com/labdent/labexport/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	export, err := app.NewExport(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("init export", slog.Any("error", err))
		os.Exit(1)
	}
	defer export.Close()

	exportJob := laborator.NewJob(laborator.JobConfig{
		Exporter:   export.Service,
		StorageDir: cfg.ExportStorageDir,
		Redis:      redisClient,
		Metrics:    jobmetrics.NewMetrics(nil),
		Logger:     logger,
	})

	monthlyTask, err := jobs.NewExportLaboratorTask(jobs.ExportLaboratorPayload{})
	if err != nil {
		logger.Error("build export task", slog.Any("error", err))
		os.Exit(1)
	}

	var schedule []jobs.ScheduledTask
	if cfg.ExportSchedule != "" {
		schedule = append(schedule, jobs.ScheduledTask{Cron: cfg.ExportSchedule, Task: monthlyTask})
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExportLaborator, Handler: exportJob.Handle},
		},
		Schedule: schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("schedule", cfg.ExportSchedule), slog.String("storage", cfg.ExportStorageDir))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
