package api

import (
	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/service"
)

// StartBatchResponse is the response for a successful batch submission.
// Rejections lists files that were dropped during validation; the batch
// still runs with the accepted ones.
type StartBatchResponse struct {
	SessionID  string                  `json:"sessionId"`
	TotalFiles int                     `json:"totalFiles"`
	Rejections []service.FileRejection `json:"rejections,omitempty"`
}

// StatusResponse is the progress snapshot returned by the status endpoint
// and pushed on the status stream. NewResults carries only the records the
// caller has not seen yet, according to its lastResultCount.
type StatusResponse struct {
	Status             string                  `json:"status"`
	ProcessedFiles     int                     `json:"processedFiles"`
	TotalFiles         int                     `json:"totalFiles"`
	ProgressPercentage int                     `json:"progressPercentage"`
	NewResults         []domain.ResultRecord   `json:"newResults"`
	TotalResultsCount  int                     `json:"totalResultsCount"`
	Errors             []string                `json:"errors"`
	Completed          bool                    `json:"completed"`
	CurrentProcessing  *domain.ProcessingState `json:"currentProcessing,omitempty"`
}

// RetryFailedResponse reports how many failed files were scheduled for rerun.
type RetryFailedResponse struct {
	RetriedCount int `json:"retriedCount"`
}

// WebhookResultRequest is the body of an externally pushed analysis result.
type WebhookResultRequest struct {
	SessionID string         `json:"sessionId" validate:"required,uuid"`
	Filename  string         `json:"filename"  validate:"required"`
	FileIndex *int           `json:"fileIndex" validate:"required"`
	Result    map[string]any `json:"result"    validate:"required"`
}

// SaveRecordsRequest is the body for replacing the persisted record set.
type SaveRecordsRequest struct {
	Records []domain.ExtractedRecord `json:"records" validate:"required"`
}

// statusResponseFor builds the snapshot DTO for a session. lastResultCount
// is the number of results the caller has already consumed; records past
// that point are returned in NewResults.
func statusResponseFor(s *domain.Session, lastResultCount int) StatusResponse {
	newResults := []domain.ResultRecord{}
	if lastResultCount < 0 {
		lastResultCount = 0
	}
	if lastResultCount < len(s.Results) {
		newResults = s.Results[lastResultCount:]
	}

	return StatusResponse{
		Status:             string(s.Status),
		ProcessedFiles:     s.ProcessedFiles,
		TotalFiles:         s.TotalFiles,
		ProgressPercentage: s.ProgressPercentage(),
		NewResults:         newResults,
		TotalResultsCount:  len(s.Results),
		Errors:             s.Errors,
		Completed:          s.Status == domain.SessionStatusCompleted,
		CurrentProcessing:  s.CurrentProcessing,
	}
}
