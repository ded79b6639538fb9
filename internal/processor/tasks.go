package processor

import (
	"context"

	"github.com/google/uuid"

	"github.com/harunari/batchscan-api/internal/task"
)

// BatchTask runs a whole session through the processor on a background
// worker. It implements task.Task.
type BatchTask struct {
	id        uuid.UUID
	sessionID uuid.UUID
	processor *Processor
}

// NewBatchTask creates a task that processes every file of the session.
func NewBatchTask(p *Processor, sessionID uuid.UUID) *BatchTask {
	return &BatchTask{
		id:        uuid.New(),
		sessionID: sessionID,
		processor: p,
	}
}

// ID returns the task's unique identifier
func (t *BatchTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *BatchTask) Type() string { return task.TaskTypeBatchAnalysis }

// Execute runs the batch to completion
func (t *BatchTask) Execute(ctx context.Context) error {
	return t.processor.ProcessBatch(ctx, t.sessionID)
}

// RetryTask reruns the per-file pipeline for selected indices of a session.
// It implements task.Task.
type RetryTask struct {
	id        uuid.UUID
	sessionID uuid.UUID
	indices   []int
	processor *Processor
}

// NewRetryTask creates a task that reprocesses the given file indices.
func NewRetryTask(p *Processor, sessionID uuid.UUID, indices []int) *RetryTask {
	return &RetryTask{
		id:        uuid.New(),
		sessionID: sessionID,
		indices:   indices,
		processor: p,
	}
}

// ID returns the task's unique identifier
func (t *RetryTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *RetryTask) Type() string { return task.TaskTypeRetryAnalysis }

// Execute reruns the selected indices to completion
func (t *RetryTask) Execute(ctx context.Context) error {
	return t.processor.ProcessIndices(ctx, t.sessionID, t.indices)
}
