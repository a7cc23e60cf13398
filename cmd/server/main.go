package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tutordesk/internal/app/server"
	"tutordesk/internal/platform/config"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("load .env failed", "err", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
