package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunari/batchscan-api/internal/analysis"
	"github.com/harunari/batchscan-api/internal/config"
	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/processor"
	"github.com/harunari/batchscan-api/internal/store"
	"github.com/harunari/batchscan-api/internal/task"
)

// jpegHeader is enough for content-type sniffing to see image/jpeg.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

type stubAnalyzer struct {
	mu    sync.Mutex
	calls int
	raw   map[string]any
	err   error
}

func (a *stubAnalyzer) Analyze(ctx context.Context, file []byte, filename string) (map[string]any, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.raw, a.err
}

func (a *stubAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newService wires a service against a running single-worker runner and a
// stub analyzer with no delays, so background tasks settle quickly.
func newService(t *testing.T, az analysis.Analyzer) (*BatchService, *store.SessionStore) {
	t.Helper()

	sessions := store.NewSessionStore(testLogger())
	proc := processor.New(az, sessions, config.ProcessingConfig{
		MaxAttempts: 1,
		WorkerCount: 1,
		QueueSize:   10,
	}, testLogger())

	runner := task.NewRunner(task.RunnerConfig{WorkerCount: 1, QueueSize: 10}, testLogger())
	runner.Start()
	t.Cleanup(runner.Stop)

	return NewBatchService(sessions, runner, proc, testLogger()), sessions
}

func waitCompleted(t *testing.T, sessions *store.SessionStore, id uuid.UUID) *domain.Session {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := sessions.Get(id)
		return err == nil && s.Status == domain.SessionStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	s, err := sessions.Get(id)
	require.NoError(t, err)
	return s
}

func TestStartBatch_AcceptsImagesAndRunsInBackground(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, rejections, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
		{Filename: "slip-2.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)
	assert.Empty(t, rejections)

	// The call returns before analysis finishes.
	assert.Equal(t, domain.SessionStatusProcessing, session.Status)
	assert.Equal(t, 2, session.TotalFiles)
	assert.Zero(t, session.ProcessedFiles)

	got := waitCompleted(t, sessions, session.ID)
	assert.Equal(t, 2, got.ProcessedFiles)
	assert.Equal(t, 2, az.callCount())
}

func TestStartBatch_RejectsInvalidFilesIndividually(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, rejections, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
		{Filename: "notes.txt", Data: []byte("plain text, not an image")},
		{Filename: "", Data: jpegHeader},
		{Filename: "empty.jpg", Data: nil},
	})
	require.NoError(t, err)
	require.Len(t, rejections, 3)
	assert.Equal(t, "notes.txt", rejections[0].Filename)
	assert.Contains(t, rejections[0].Reason, "unsupported content type")
	assert.Equal(t, "missing filename", rejections[1].Reason)
	assert.Equal(t, "empty file", rejections[2].Reason)

	// Only the accepted file counts toward the batch.
	assert.Equal(t, 1, session.TotalFiles)
	waitCompleted(t, sessions, session.ID)
}

func TestStartBatch_AllFilesInvalid(t *testing.T) {
	t.Parallel()

	svc, sessions := newService(t, &stubAnalyzer{})

	_, rejections, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "a.txt", Data: []byte("not an image at all......")},
	})
	assert.ErrorIs(t, err, ErrNoValidFiles)
	assert.Len(t, rejections, 1)
	assert.Zero(t, sessions.Len())
}

func TestStatus_UnknownSession(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubAnalyzer{})
	_, err := svc.Status(uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestDelete_RemovesSession(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, _, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)
	waitCompleted(t, sessions, session.ID)

	require.NoError(t, svc.Delete(session.ID))
	assert.ErrorIs(t, svc.Delete(session.ID), store.ErrSessionNotFound)
}

func TestRetryFile_ReplacesFailedRecord(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, _, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
		{Filename: "slip-2.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)
	waitCompleted(t, sessions, session.ID)

	// Fake an earlier failure at index 1.
	ok := sessions.Mutate(session.ID, func(s *domain.Session) {
		rec := s.ResultAt(1)
		rec.Failed = true
		rec.FailureKind = domain.FailureTimeout
	})
	require.True(t, ok)

	require.NoError(t, svc.RetryFile(session.ID, 1))

	got := waitCompleted(t, sessions, session.ID)
	require.Len(t, got.Results, 2)
	rec := got.ResultAt(1)
	require.NotNil(t, rec)
	assert.False(t, rec.Failed)
}

func TestRetryFile_RequiresFailedRecord(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, _, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)
	waitCompleted(t, sessions, session.ID)

	// Index 0 succeeded, so it cannot be retried.
	assert.ErrorIs(t, svc.RetryFile(session.ID, 0), ErrNoFailedResult)
	// An index with no record at all cannot be retried either.
	assert.ErrorIs(t, svc.RetryFile(session.ID, 7), ErrNoFailedResult)

	assert.ErrorIs(t, svc.RetryFile(uuid.New(), 0), store.ErrSessionNotFound)
}

func TestRetryFailed_RerunsEveryFailedIndex(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, _, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
		{Filename: "slip-2.jpg", Data: jpegHeader},
		{Filename: "slip-3.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)
	waitCompleted(t, sessions, session.ID)

	ok := sessions.Mutate(session.ID, func(s *domain.Session) {
		for _, i := range []int{0, 2} {
			rec := s.ResultAt(i)
			rec.Failed = true
			rec.FailureKind = domain.FailureWorkflow
		}
	})
	require.True(t, ok)

	count, err := svc.RetryFailed(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got := waitCompleted(t, sessions, session.ID)
	require.Len(t, got.Results, 3)
	assert.Empty(t, got.FailedIndices())
}

func TestRetryFailed_NothingToRetry(t *testing.T) {
	t.Parallel()

	az := &stubAnalyzer{raw: map[string]any{"page": "1"}}
	svc, sessions := newService(t, az)

	session, _, err := svc.StartBatch([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)
	waitCompleted(t, sessions, session.ID)

	_, err = svc.RetryFailed(session.ID)
	assert.ErrorIs(t, err, ErrNoFailedResults)

	_, err = svc.RetryFailed(uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestIngestResult_CompletesSession(t *testing.T) {
	t.Parallel()

	svc, sessions := newService(t, &stubAnalyzer{})

	session, err := sessions.Create([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
		{Filename: "slip-2.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)

	payload := map[string]any{"page": "1", "order_number": "A-100"}
	require.NoError(t, svc.IngestResult(session.ID, "slip-1.jpg", 0, payload))

	got, err := sessions.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusProcessing, got.Status)
	assert.Equal(t, 1, got.ProcessedFiles)

	require.NoError(t, svc.IngestResult(session.ID, "slip-2.jpg", 1, payload))

	got, err = sessions.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, got.Status)
	assert.Equal(t, 2, got.ProcessedFiles)
}

func TestIngestResult_Validation(t *testing.T) {
	t.Parallel()

	svc, sessions := newService(t, &stubAnalyzer{})

	session, err := sessions.Create([]domain.FileUpload{
		{Filename: "slip-1.jpg", Data: jpegHeader},
	})
	require.NoError(t, err)

	err = svc.IngestResult(session.ID, "slip-1.jpg", 5, nil)
	assert.ErrorIs(t, err, domain.ErrFileIndexRange)

	err = svc.IngestResult(uuid.New(), "slip-1.jpg", 0, nil)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
