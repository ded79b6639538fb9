package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harunari/batchscan-api/internal/api/shared"
	"github.com/harunari/batchscan-api/internal/config"
	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/service"
)

// BatchHandler handles batch lifecycle HTTP requests
type BatchHandler struct {
	service *service.BatchService
	cfg     config.ServerConfig
	logger  *slog.Logger
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(svc *service.BatchService, cfg config.ServerConfig, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{
		service: svc,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "batch_handler")),
	}
}

// StartBatch handles POST /api/batches requests. The body is a multipart
// form whose "files" parts carry the images to analyze.
func (h *BatchHandler) StartBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Invalid multipart request", err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No files in request")
		return
	}

	files := make([]domain.FileUpload, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
				fmt.Sprintf("Could not read file %s", part.Filename), err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
				fmt.Sprintf("Could not read file %s", part.Filename), err)
			return
		}
		files = append(files, domain.FileUpload{Filename: part.Filename, Data: data})
	}

	session, rejections, err := h.service.StartBatch(files)
	if err != nil {
		status := MapErrorToStatusCode(err)
		resp := shared.ErrorResponse{
			Error:   GetSafeErrorMessage(err),
			TraceID: shared.GetTraceID(r.Context()),
		}
		// Per-file diagnostics still travel on a rejected batch.
		shared.RespondWithJSON(w, r, status, struct {
			shared.ErrorResponse
			Rejections []service.FileRejection `json:"rejections,omitempty"`
		}{resp, rejections})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartBatchResponse{
		SessionID:  session.ID.String(),
		TotalFiles: session.TotalFiles,
		Rejections: rejections,
	})
}

// GetStatus handles GET /api/batches/{id}/status requests. The optional
// lastResultCount query parameter tells the server how many results the
// caller has already seen.
func (h *BatchHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	lastResultCount := 0
	if raw := r.URL.Query().Get("lastResultCount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid lastResultCount")
			return
		}
		lastResultCount = n
	}

	session, err := h.service.Status(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statusResponseFor(session, lastResultCount))
}

// StreamStatus handles GET /api/batches/{id}/stream requests. It pushes a
// status snapshot as a server-sent event on every tick until the session
// completes or disappears, then closes the stream.
func (h *BatchHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		shared.RespondWithError(w, r, http.StatusInternalServerError,
			"Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	interval := time.Duration(h.cfg.StreamIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Each event carries only the results the stream has not pushed yet.
	sentResults := 0
	for {
		session, err := h.service.Status(id)
		if err != nil {
			h.writeSSE(w, "error", shared.ErrorResponse{Error: GetSafeErrorMessage(err)})
			flusher.Flush()
			return
		}

		snapshot := statusResponseFor(session, sentResults)
		sentResults = snapshot.TotalResultsCount
		h.writeSSE(w, "status", snapshot)
		flusher.Flush()

		if snapshot.Completed {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// RetryFile handles POST /api/batches/{id}/retry/{fileIndex} requests.
func (h *BatchHandler) RetryFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "fileIndex"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file index")
		return
	}

	if err := h.service.RetryFile(id, index); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"status": "retry started",
	})
}

// RetryFailed handles POST /api/batches/{id}/retry-failed requests.
func (h *BatchHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	count, err := h.service.RetryFailed(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, RetryFailedResponse{
		RetriedCount: count,
	})
}

// DeleteBatch handles DELETE /api/batches/{id} requests.
func (h *BatchHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"status": "deleted",
	})
}

// sessionID parses the {id} URL parameter, writing a 400 response on failure.
func (h *BatchHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// writeSSE writes one server-sent event with a JSON payload.
func (h *BatchHandler) writeSSE(w io.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal SSE payload", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
