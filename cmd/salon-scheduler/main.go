package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"salon/internal/cache"
	"salon/internal/cli"
	"salon/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("Starting salon-scheduler",
		"schedule", cfg.BackupSchedule,
		"frequency", cfg.BackupFrequency,
		"backup_dir", cfg.BackupDir)

	finished := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(sctx context.Context) {
		select {
		case <-finished:
		case <-sctx.Done():
		}
	})

	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to load salon data", "error", err)
		os.Exit(1)
	}

	sinks := []services.BackupSink{services.FileSink{Dir: cfg.BackupDir}}
	if cfg.AMQPEnabled() {
		client, err := rt.AMQP()
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, services.AMQPSink{Publisher: client})
		logger.Info("Publishing backups to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	publisher, err := rt.ReportPublisher(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if publisher != nil {
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	scheduler, err := services.NewBackupScheduler(services.BackupSchedulerConfig{
		Schedule:  cfg.BackupSchedule,
		Frequency: services.Frequency(cfg.BackupFrequency),
		Location:  cfg.Location(),
		Loader:    rt.Persister,
	}, rt.Backups, sinks, rt.Backend.Store, rt.Reports, publisher, logger)
	if err != nil {
		logger.Error("Invalid backup schedule", "error", err)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	caches.Register(rt.Cache)

	if err := rt.Autosaver.Start(ctx); err != nil {
		logger.Error("Failed to start autosaver", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return caches.Run(gctx, cfg.ReportCacheTTL) })
	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil {
		logger.Error("Failed to save salon data", "error", err)
	}
	close(finished)

	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	if runErr != nil {
		logger.Error("Scheduler stopped", "error", runErr)
		os.Exit(1)
	}
}
