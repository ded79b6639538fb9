package api

import (
	"log/slog"
	"net/http"

	"github.com/harunari/batchscan-api/internal/api/shared"
	"github.com/harunari/batchscan-api/internal/store"
)

// RecordHandler persists and lists extracted shipping records. The store is
// optional; without a configured database the endpoints answer 503.
type RecordHandler struct {
	records store.RecordStore
	logger  *slog.Logger
}

// NewRecordHandler creates a new RecordHandler. records may be nil when no
// database is configured.
func NewRecordHandler(records store.RecordStore, logger *slog.Logger) *RecordHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordHandler{
		records: records,
		logger:  logger.With(slog.String("component", "record_handler")),
	}
}

// SaveRecords handles POST /api/records requests. The submitted set fully
// replaces whatever was stored before.
func (h *RecordHandler) SaveRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable,
			"Record storage is not configured")
		return
	}

	var req SaveRecordsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.records.ReplaceAll(r.Context(), req.Records); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to save records", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"status": "saved",
		"count":  len(req.Records),
	})
}

// ListRecords handles GET /api/records requests.
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable,
			"Record storage is not configured")
		return
	}

	records, err := h.records.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list records", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}
