package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/harunari/batchscan-api/internal/config"
	"github.com/harunari/batchscan-api/internal/platform/dify"
	"github.com/harunari/batchscan-api/internal/platform/postgres"
	"github.com/harunari/batchscan-api/internal/processor"
	"github.com/harunari/batchscan-api/internal/service"
	"github.com/harunari/batchscan-api/internal/store"
	"github.com/harunari/batchscan-api/internal/task"
)

// application holds the composed dependency graph for the server process.
type application struct {
	config *config.Config
	logger *slog.Logger

	sessions     *store.SessionStore
	runner       *task.Runner
	batchService *service.BatchService
	recordStore  store.RecordStore

	db *sql.DB
}

// newApplication wires the full dependency graph from configuration. The
// database is optional: without BATCHSCAN_DATABASE_URL the record endpoints
// run degraded while batch analysis works normally.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	analyzer, err := dify.NewClient(cfg.Backend, logger)
	if err != nil {
		return nil, fmt.Errorf("creating analysis client: %w", err)
	}

	sessions := store.NewSessionStore(logger)
	proc := processor.New(analyzer, sessions, cfg.Processing, logger)

	runner := task.NewRunner(task.RunnerConfig{
		WorkerCount: cfg.Processing.WorkerCount,
		QueueSize:   cfg.Processing.QueueSize,
	}, logger)
	runner.Start()

	app := &application{
		config:       cfg,
		logger:       logger,
		sessions:     sessions,
		runner:       runner,
		batchService: service.NewBatchService(sessions, runner, proc, logger),
	}

	if cfg.Database.URL != "" {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			runner.Stop()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Ping(); err != nil {
			runner.Stop()
			_ = db.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		if err := postgres.MigrateUp(db); err != nil {
			runner.Stop()
			_ = db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		app.db = db
		app.recordStore = postgres.NewRecordStore(db, logger)
		logger.Info("record storage enabled")
	} else {
		logger.Warn("no database configured, record endpoints disabled")
	}

	return app, nil
}

// cleanup releases application resources. The runner drains its queue before
// returning, so in-flight batches finish their bounded work.
func (app *application) cleanup() {
	app.logger.Info("stopping task runner")
	app.runner.Stop()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
}
