package task

import (
	"context"

	"github.com/google/uuid"
)

// Task type constants
const (
	// TaskTypeBatchAnalysis drives a whole batch through the analysis pipeline.
	TaskTypeBatchAnalysis = "batch_analysis"

	// TaskTypeRetryAnalysis reruns the pipeline for selected failed files.
	TaskTypeRetryAnalysis = "retry_analysis"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}
