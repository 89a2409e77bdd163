package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/backup"
	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/scheduler"
	"github.com/mangomango3x/Discord-fact-check/internal/server"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
	"github.com/mangomango3x/Discord-fact-check/web/handlers"
)

var originPatterns []string

type scheduledJob struct {
	name, spec string
	fn         scheduler.JobFunc
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion API, alert feed and background jobs",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringSliceVar(&originPatterns, "ws-origin", nil, "Extra Origin host patterns accepted on /ws/alerts")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := handlers.NewAlertHub(originPatterns, logger)
	go hub.Run()

	a, err := newApp(ctx, cfg, logger, hub)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("shutdown: close failed", zap.Error(err))
		}
	}()

	httpLimiter := handlers.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst)

	sched := scheduler.New(logger)
	jobs := []scheduledJob{
		{scheduler.JobPrunePatterns, cfg.Patterns.PruneSchedule, scheduler.PruneJob(a.patterns, cfg.Patterns.MaxAge.Duration())},
		{scheduler.JobFlushRateLimits, cfg.Patterns.FlushSchedule, scheduler.FlushJob(a.autoLimiter, a.cmdLimiter)},
		{"cleanup-http-limiter", "@every 10m", func(context.Context) error {
			httpLimiter.Cleanup()
			return nil
		}},
	}
	if cfg.Storage.Engine == storage.EngineSQLite && cfg.Storage.BackupSchedule != "" {
		svc, err := backup.NewService(cfg.Storage.SQLitePath(), cfg.Storage.BackupPath(), backup.WithLogger(logger))
		if err != nil {
			return err
		}
		jobs = append(jobs, scheduledJob{scheduler.JobBackup, cfg.Storage.BackupSchedule, scheduler.BackupJob(svc)})
	}
	for _, j := range jobs {
		if err := sched.Add(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}
	sched.Start(ctx)
	defer sched.Stop()

	if configPath != "" {
		watcher := config.NewWatcher(configPath, a.settings, logger)
		if err := watcher.Start(); err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	addr, err := server.Start(ctx, server.Deps{
		Config:    cfg,
		Runtime:   a.settings,
		Pipeline:  a.detector,
		History:   a.buffer,
		Providers: a.orchestrator,
		Hub:       hub,
		Limiter:   httpLimiter,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	logger.Info("factcheckd running", zap.String("addr", "http://"+addr))

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
