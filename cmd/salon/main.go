package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"salon/internal/cli"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays clean for -json and exports.
	logger, err := cli.SetupLogger(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to load salon data", "error", err)
		os.Exit(1)
	}

	runErr := cli.NewApp(rt, os.Stdout).Run(ctx, os.Args[1:])

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil {
		logger.Error("Failed to save salon data", "error", err)
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "salon:", runErr)
		if errors.Is(runErr, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
