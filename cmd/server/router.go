package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harunari/batchscan-api/internal/api"
	apiMiddleware "github.com/harunari/batchscan-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	batchHandler := api.NewBatchHandler(app.batchService, app.config.Server, app.logger)
	webhookHandler := api.NewWebhookHandler(app.batchService, app.logger)
	recordHandler := api.NewRecordHandler(app.recordStore, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batchHandler.StartBatch)
			r.Get("/{id}/status", batchHandler.GetStatus)
			r.Get("/{id}/stream", batchHandler.StreamStatus)
			r.Post("/{id}/retry/{fileIndex}", batchHandler.RetryFile)
			r.Post("/{id}/retry-failed", batchHandler.RetryFailed)
			r.Delete("/{id}", batchHandler.DeleteBatch)
		})

		r.Post("/webhook/result", webhookHandler.ReceiveResult)

		r.Post("/records", recordHandler.SaveRecords)
		r.Get("/records", recordHandler.ListRecords)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
