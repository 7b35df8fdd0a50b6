package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/amm-core/internal/core/processorloop"
	internalhttp "github.com/jmylchreest/amm-core/internal/http"
	"github.com/jmylchreest/amm-core/internal/http/handlers"
	"github.com/jmylchreest/amm-core/internal/observability"
	"github.com/jmylchreest/amm-core/internal/scheduler"
	"github.com/jmylchreest/amm-core/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the amm scheduler daemon",
	Long: `Start every registered processor loop and the TaskManager's idle loop, and
serve the ambient HTTP surface (/healthz, /status, /plugins).

This is the long-running mode: the Scanner processor continuously discovers
work and the TaskManager schedules it through the concurrency gate until
the process receives SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return newExitError(exitConfigurationError, err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)
	observability.SetRequestLogging(cfg.Logging.RequestLogging)
	logger.Info("starting amm", slog.String("version", version.Version))

	app, err := newPipelineApp(cfg, logger)
	if err != nil {
		return newExitError(exitGenericFailure, err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("closing database", slog.String("error", cerr.Error()))
		}
	}()

	loop := processorloop.New(app.Registry, app.Ctrl, app.Manager, logger)
	runner := newTrackedTaskRunner(app.Manager, app.TaskRuns, logger)

	httpServer := internalhttp.NewServer(internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     internalhttp.DefaultServerConfig().IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger, version.Version)

	handlers.NewHealthHandler(version.Version).WithDB(app.DB).WithTaskManager(app.Manager).Register(httpServer.API())
	handlers.NewStatusHandler(app.Files, app.Manager).Register(httpServer.API())
	handlers.NewPluginsHandler(app.Registry).Register(httpServer.API())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	app.DB.StartStatsMonitor(ctx)

	processorNames := app.Registry.ProcessorNames()
	loop.StartAll(ctx, processorNames)
	app.Manager.StartIdleLoop(ctx)

	var cronSched *scheduler.PipelineScheduler
	if cfg.Server.CronSchedule != "" {
		cronSched = scheduler.New(logger)
		if jerr := cronSched.AddJob(cfg.Server.CronSchedule, func() {
			if rerr := runner.RunPipeline(ctx); rerr != nil {
				logger.Error("cron: pipeline run failed", slog.String("error", rerr.Error()))
			}
		}); jerr != nil {
			return newExitError(exitConfigurationError, fmt.Errorf("scheduling cron pipeline run: %w", jerr))
		}
		cronSched.Start()
		defer cronSched.Stop()
	}

	logger.Info("serving",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		slog.Int("processors", len(processorNames)),
	)

	err = httpServer.ListenAndServe(ctx)
	loop.Shutdown()
	app.Manager.Shutdown(context.Background())
	if err != nil {
		return newExitError(exitGenericFailure, err)
	}
	return nil
}
