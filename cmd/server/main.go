// Package main implements the entry point for the batchscan API server,
// which accepts batches of shipping slip images, drives them through an
// external analysis workflow, and serves extraction progress and results.
package main

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/harunari/batchscan-api/internal/config"
	"github.com/harunari/batchscan-api/internal/platform/logger"
)

func main() {
	// A local .env is a development convenience; absence is normal.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	appLogger.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("database_configured", cfg.Database.URL != ""))

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize application", slog.String("error", err.Error()))
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(app.setupRouter()); err != nil {
		appLogger.Error("server exited with error", slog.String("error", err.Error()))
		log.Fatalf("server exited with error: %v", err)
	}
}
