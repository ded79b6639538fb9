package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/processor"
	"github.com/harunari/batchscan-api/internal/store"
	"github.com/harunari/batchscan-api/internal/task"
)

// FileRejection describes why one submitted file was not accepted into a
// batch. Rejections are per-file diagnostics, never batch-fatal on their own.
type FileRejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchService coordinates batch lifecycle operations between the session
// store, the processor, and the background task runner.
type BatchService struct {
	sessions  *store.SessionStore
	runner    *task.Runner
	processor *processor.Processor
	logger    *slog.Logger
}

// NewBatchService creates a BatchService.
func NewBatchService(
	sessions *store.SessionStore,
	runner *task.Runner,
	proc *processor.Processor,
	logger *slog.Logger,
) *BatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchService{
		sessions:  sessions,
		runner:    runner,
		processor: proc,
		logger:    logger.With(slog.String("component", "batch_service")),
	}
}

// StartBatch validates the submitted files, snapshots the accepted ones into
// a new session, and launches the batch run as a detached background task.
// It never blocks on analysis. Files that fail validation are reported as
// per-file rejections; only zero accepted files fails the whole request with
// ErrNoValidFiles.
func (s *BatchService) StartBatch(files []domain.FileUpload) (*domain.Session, []FileRejection, error) {
	var accepted []domain.FileUpload
	var rejections []FileRejection

	for _, f := range files {
		if reason := validateImage(f); reason != "" {
			rejections = append(rejections, FileRejection{Filename: f.Filename, Reason: reason})
			continue
		}
		accepted = append(accepted, f)
	}

	if len(accepted) == 0 {
		return nil, rejections, ErrNoValidFiles
	}

	session, err := s.sessions.Create(accepted)
	if err != nil {
		return nil, rejections, fmt.Errorf("creating session: %w", err)
	}

	if err := s.runner.Submit(processor.NewBatchTask(s.processor, session.ID)); err != nil {
		// The session must not linger without a worker that will ever
		// touch it.
		s.sessions.Delete(session.ID)
		return nil, rejections, fmt.Errorf("submitting batch task: %w", err)
	}

	s.logger.Info("batch started",
		slog.String("session_id", session.ID.String()),
		slog.Int("accepted_files", len(accepted)),
		slog.Int("rejected_files", len(rejections)))

	return session, rejections, nil
}

// Status returns a snapshot of the session.
func (s *BatchService) Status(id uuid.UUID) (*domain.Session, error) {
	return s.sessions.Get(id)
}

// Delete removes the session unconditionally, even while its batch is still
// processing; the in-flight worker notices on its next write and abandons.
func (s *BatchService) Delete(id uuid.UUID) error {
	if !s.sessions.Delete(id) {
		return store.ErrSessionNotFound
	}
	return nil
}

// RetryFile reruns the per-file pipeline for one index. The index must hold
// a failed result record; its removal and the status reset happen atomically
// before the retry task is launched, so the replacement record can never
// coexist with the stale one.
func (s *BatchService) RetryFile(id uuid.UUID, index int) error {
	var opErr error
	ok := s.sessions.Mutate(id, func(sess *domain.Session) {
		rec := sess.ResultAt(index)
		if rec == nil || !rec.Failed {
			opErr = fmt.Errorf("%w: index %d", ErrNoFailedResult, index)
			return
		}
		sess.RemoveResult(index)
		sess.ProcessedFiles = len(sess.Results)
		sess.Status = domain.SessionStatusProcessing
		sess.CurrentProcessing = &domain.ProcessingState{
			FileIndex: index,
			Filename:  rec.Filename,
			StartedAt: time.Now().UTC(),
		}
	})
	if !ok {
		return store.ErrSessionNotFound
	}
	if opErr != nil {
		return opErr
	}

	if err := s.runner.Submit(processor.NewRetryTask(s.processor, id, []int{index})); err != nil {
		return fmt.Errorf("submitting retry task: %w", err)
	}

	s.logger.Info("file retry started",
		slog.String("session_id", id.String()),
		slog.Int("file_index", index))
	return nil
}

// RetryFailed reruns the pipeline for every currently-failed index. The
// failed records are snapshotted and removed in one atomic step, processed
// count recomputed from the survivors, and a single background task reruns
// the indices sequentially in ascending order. Returns how many indices were
// scheduled.
func (s *BatchService) RetryFailed(id uuid.UUID) (int, error) {
	var indices []int
	var opErr error
	ok := s.sessions.Mutate(id, func(sess *domain.Session) {
		indices = sess.FailedIndices()
		if len(indices) == 0 {
			opErr = ErrNoFailedResults
			return
		}
		for _, i := range indices {
			sess.RemoveResult(i)
		}
		sess.ProcessedFiles = len(sess.Results)
		sess.Status = domain.SessionStatusProcessing
	})
	if !ok {
		return 0, store.ErrSessionNotFound
	}
	if opErr != nil {
		return 0, opErr
	}

	sort.Ints(indices)
	if err := s.runner.Submit(processor.NewRetryTask(s.processor, id, indices)); err != nil {
		return 0, fmt.Errorf("submitting retry task: %w", err)
	}

	s.logger.Info("failed-file retry started",
		slog.String("session_id", id.String()),
		slog.Int("file_count", len(indices)))
	return len(indices), nil
}

// IngestResult records an externally pushed result for one file, bypassing
// the sequential processor entirely. Used by the webhook path of the
// non-blocking execution mode.
func (s *BatchService) IngestResult(id uuid.UUID, filename string, index int, payload map[string]any) error {
	var opErr error
	ok := s.sessions.Mutate(id, func(sess *domain.Session) {
		if index < 0 || index >= sess.TotalFiles {
			opErr = fmt.Errorf("%w: index %d of %d files",
				domain.ErrFileIndexRange, index, sess.TotalFiles)
			return
		}
		// A pushed result replaces whatever record the index held.
		sess.RemoveResult(index)
		sess.Results = append(sess.Results, domain.ResultRecord{
			Filename:    filename,
			FileIndex:   index,
			Payload:     payload,
			CompletedAt: time.Now().UTC(),
		})
		sess.ProcessedFiles = len(sess.Results)
		if sess.ProcessedFiles >= sess.TotalFiles {
			sess.Status = domain.SessionStatusCompleted
			sess.CurrentProcessing = nil
		}
	})
	if !ok {
		return store.ErrSessionNotFound
	}
	if opErr != nil {
		return opErr
	}

	s.logger.Info("external result ingested",
		slog.String("session_id", id.String()),
		slog.Int("file_index", index),
		slog.String("filename", filename))
	return nil
}

// validateImage returns a rejection reason, or "" when the file is an
// acceptable image. Detection sniffs the leading bytes the same way the
// stdlib serves content types, so the filename extension alone is never
// trusted.
func validateImage(f domain.FileUpload) string {
	if f.Filename == "" {
		return "missing filename"
	}
	if len(f.Data) == 0 {
		return "empty file"
	}

	head := f.Data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Sprintf("unsupported content type %s", contentType)
	}
	return ""
}
