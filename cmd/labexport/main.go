package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/labdent/labexport/cmd/labexport/cli"
	"github.com/labdent/labexport/internal/app"
	laboratorhttp "github.com/labdent/labexport/internal/laborator/http"
	"github.com/labdent/labexport/internal/observability"
	"github.com/labdent/labexport/internal/platform/cache"
	"github.com/labdent/labexport/jobs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "labexport",
		Short:         "Dental laboratory order export",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), exportCmd(), enqueueCmd(), queueCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Default().Error("labexport", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the export HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping runtime startup")
				return nil
			}
			return runServer()
		},
	}
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	export, err := app.NewExport(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer export.Close()

	var jobHandler *jobs.Handler
	if redisClient, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, queue health disabled", slog.Any("error", err))
	} else {
		_ = redisClient.Close()
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Source:        export.Selection,
		ExportHandler: laboratorhttp.NewHandler(logger, export.Service),
		JobHandler:    jobHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("using_mock", export.Selection.UsingMock()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func exportCmd() *cobra.Command {
	var opts cli.ExportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run one export locally and write the zip archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := app.NewLogger(cfg)
			export, err := app.NewExport(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer export.Close()

			runner, err := cli.NewExportCLI(export.Service)
			if err != nil {
				return err
			}
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			if code := runner.Run(ctx, opts); code != cli.ExitOK {
				return fmt.Errorf("export exited with code %d", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "first completion date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "last completion date, inclusive")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "print the summary instead of building the archive")
	cmd.Flags().StringVar(&opts.OutDir, "out", ".", "directory for the archive")
	return cmd
}

func enqueueCmd() *cobra.Command {
	var payload jobs.ExportLaboratorPayload
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue an export for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
			defer jobsCLI.Close()

			info, err := jobsCLI.TriggerExport(cmd.Context(), payload)
			if err != nil {
				return fmt.Errorf("enqueue export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&payload.StartDate, "start", "", "first completion date; empty with --end empty means previous month")
	cmd.Flags().StringVar(&payload.EndDate, "end", "", "last completion date, inclusive")
	return cmd
}

func queueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Print export queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
			defer jobsCLI.Close()

			stats, err := jobsCLI.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
