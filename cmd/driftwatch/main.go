package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgewall-hq/go-sonicos/internal/app"
	"github.com/edgewall-hq/go-sonicos/internal/config"
	"github.com/edgewall-hq/go-sonicos/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "driftwatch start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	// Credentials stay out of the log line.
	logger.InfoObj("driftwatch starting", "config", map[string]any{
		"app_name":        cfg.AppName,
		"env":             cfg.Env,
		"targets_file":    cfg.TargetsFile,
		"publishers_file": cfg.PublishersFile,
		"check_interval":  cfg.CheckInterval.String(),
		"storage_type":    cfg.StorageType,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := app.NewWatcher(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize watcher", "error", err)
		return err
	}

	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("watcher run: %w", err)
	}

	return nil
}
