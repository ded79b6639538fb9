package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harunari/batchscan-api/internal/api/shared"
	"github.com/harunari/batchscan-api/internal/service"
	"github.com/harunari/batchscan-api/internal/store"
)

// WebhookHandler accepts analysis results pushed by an external workflow
// instead of pulled by the sequential processor.
type WebhookHandler struct {
	service *service.BatchService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(svc *service.BatchService, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		service: svc,
		logger:  logger.With(slog.String("component", "webhook_handler")),
	}
}

// ReceiveResult handles POST /api/webhook/result requests.
func (h *WebhookHandler) ReceiveResult(w http.ResponseWriter, r *http.Request) {
	var req WebhookResultRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
		return
	}

	err = h.service.IngestResult(sessionID, req.Filename, *req.FileIndex, req.Result)
	if err != nil {
		status := MapErrorToStatusCode(err)
		// An unknown session on the webhook path is the pusher's problem,
		// not a missing resource on ours.
		if errors.Is(err, store.ErrSessionNotFound) {
			status = http.StatusBadRequest
		}
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"status": "result recorded",
	})
}
