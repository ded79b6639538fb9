package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTask is a configurable Task for runner tests.
type mockTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func newMockTask(execute func(ctx context.Context) error) *mockTask {
	if execute == nil {
		execute = func(ctx context.Context) error { return nil }
	}
	return &mockTask{id: uuid.New(), execute: execute}
}

func (t *mockTask) ID() uuid.UUID                     { return t.id }
func (t *mockTask) Type() string                      { return TaskTypeBatchAnalysis }
func (t *mockTask) Execute(ctx context.Context) error { return t.execute(ctx) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestRunner_ExecutesSubmittedTasks(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{WorkerCount: 2, QueueSize: 10}, testLogger())
	runner.Start()

	var executed atomic.Int32
	var wg sync.WaitGroup
	const taskCount = 5

	wg.Add(taskCount)
	for i := 0; i < taskCount; i++ {
		err := runner.Submit(newMockTask(func(ctx context.Context) error {
			defer wg.Done()
			executed.Add(1)
			return nil
		}))
		require.NoError(t, err)
	}

	wg.Wait()
	runner.Stop()

	assert.Equal(t, int32(taskCount), executed.Load())
}

func TestRunner_QueueFull(t *testing.T) {
	t.Parallel()

	// No workers started, so submitted tasks stay in the buffer.
	runner := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())

	require.NoError(t, runner.Submit(newMockTask(nil)))

	err := runner.Submit(newMockTask(nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestRunner_SubmitAfterStop(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())
	runner.Start()
	runner.Stop()

	err := runner.Submit(newMockTask(nil))
	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunner_ErrorHandlerCalledOnFailure(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 10}, testLogger())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(task Task, err error) {
		handled <- err
	})
	runner.Start()

	taskErr := errors.New("analysis exploded")
	require.NoError(t, runner.Submit(newMockTask(func(ctx context.Context) error {
		return taskErr
	})))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, taskErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not invoked")
	}

	runner.Stop()
}

func TestRunner_StopDrainsQueuedTasks(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 10}, testLogger())

	var executed atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, runner.Submit(newMockTask(func(ctx context.Context) error {
			executed.Add(1)
			return nil
		})))
	}

	runner.Start()
	runner.Stop()

	// Stop closes the queue and waits for workers, so everything already
	// submitted must have run.
	assert.Equal(t, int32(5), executed.Load())
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{WorkerCount: 1, QueueSize: 1}, testLogger())
	runner.Start()
	runner.Stop()
	runner.Stop()
}
