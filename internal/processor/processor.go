package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harunari/batchscan-api/internal/analysis"
	"github.com/harunari/batchscan-api/internal/config"
	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/redact"
	"github.com/harunari/batchscan-api/internal/store"
)

// Processor runs batch analysis work against the session store. One
// Processor is shared by all tasks; per-run state lives on the stack.
type Processor struct {
	analyzer analysis.Analyzer
	sessions *store.SessionStore
	cfg      config.ProcessingConfig
	logger   *slog.Logger
}

// New creates a Processor.
func New(
	analyzer analysis.Analyzer,
	sessions *store.SessionStore,
	cfg config.ProcessingConfig,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		analyzer: analyzer,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "processor")),
	}
}

// ProcessBatch drives every file of the session through the per-file
// algorithm in submission order. A terminal per-file failure never aborts
// the batch. If the session disappears mid-run the remaining work is
// abandoned silently; deletion is a normal way for a run to end, not an
// error.
func (p *Processor) ProcessBatch(ctx context.Context, sessionID uuid.UUID) error {
	session, err := p.sessions.Get(sessionID)
	if err != nil {
		p.logger.Debug("session gone before batch start, abandoning",
			slog.String("session_id", sessionID.String()))
		return nil
	}

	for i, file := range session.OriginalFiles {
		if !p.processFile(ctx, sessionID, i, file) {
			return nil
		}
		if i < len(session.OriginalFiles)-1 {
			if err := sleepCtx(ctx, p.fileDelay()); err != nil {
				return err
			}
		}
	}

	p.finish(sessionID)
	return nil
}

// ProcessIndices reruns the per-file algorithm for exactly the given file
// indices, in the given order. Used by the retry operations; the caller is
// responsible for having removed the stale failed records first.
func (p *Processor) ProcessIndices(ctx context.Context, sessionID uuid.UUID, indices []int) error {
	session, err := p.sessions.Get(sessionID)
	if err != nil {
		p.logger.Debug("session gone before retry start, abandoning",
			slog.String("session_id", sessionID.String()))
		return nil
	}

	for n, i := range indices {
		if i < 0 || i >= len(session.OriginalFiles) {
			return fmt.Errorf("%w: index %d of %d files",
				domain.ErrFileIndexRange, i, len(session.OriginalFiles))
		}
		if !p.processFile(ctx, sessionID, i, session.OriginalFiles[i]) {
			return nil
		}
		if n < len(indices)-1 {
			if err := sleepCtx(ctx, p.fileDelay()); err != nil {
				return err
			}
		}
	}

	p.finish(sessionID)
	return nil
}

// processFile runs the bounded attempt loop for one file and appends exactly
// one terminal result record. Returns false when the session disappeared and
// the caller should abandon the rest of the run.
func (p *Processor) processFile(
	ctx context.Context,
	sessionID uuid.UUID,
	index int,
	file domain.FileUpload,
) bool {
	log := p.logger.With(
		slog.String("session_id", sessionID.String()),
		slog.Int("file_index", index),
		slog.String("filename", file.Filename),
	)

	start := time.Now()

	var payload map[string]any
	var kind domain.FailureKind
	var failMsg string
	failed := true

	for attempt := 1; attempt <= p.maxAttempts(); attempt++ {
		ok := p.sessions.Mutate(sessionID, func(s *domain.Session) {
			s.CurrentProcessing = &domain.ProcessingState{
				FileIndex: index,
				Filename:  file.Filename,
				Attempt:   attempt,
				StartedAt: start,
			}
		})
		if !ok {
			log.Debug("session deleted mid-file, abandoning")
			return false
		}

		raw, err := p.analyzer.Analyze(ctx, file.Data, file.Filename)
		if err != nil {
			kind, failMsg = failureFor(err)
			log.Warn("analysis attempt failed",
				slog.Int("attempt", attempt),
				slog.String("kind", string(kind)),
				slog.String("error", redact.Error(err)))

			if !p.recordDiagnostic(sessionID, fmt.Sprintf(
				"%s (attempt %d): %s", file.Filename, attempt, failMsg)) {
				return false
			}
			if attempt < p.maxAttempts() {
				if sleepErr := sleepCtx(ctx, p.backoff(attempt)); sleepErr != nil {
					break
				}
			}
			continue
		}

		extracted, valid := analysis.Classify(raw)
		if !valid {
			kind = domain.FailureInvalidResponse
			failMsg = "response failed classification"
			log.Warn("analysis response invalid", slog.Int("attempt", attempt))

			if !p.recordDiagnostic(sessionID, fmt.Sprintf(
				"%s (attempt %d): invalid response format", file.Filename, attempt)) {
				return false
			}
			if attempt < p.maxAttempts() {
				if sleepErr := sleepCtx(ctx, p.backoff(attempt)); sleepErr != nil {
					break
				}
			}
			continue
		}

		payload = extracted
		failed = false
		break
	}

	record := domain.ResultRecord{
		Filename:       file.Filename,
		FileIndex:      index,
		Payload:        payload,
		Failed:         failed,
		CompletedAt:    time.Now().UTC(),
		ElapsedSeconds: time.Since(start).Seconds(),
	}
	if failed {
		record.FailureKind = kind
		record.Payload = map[string]any{"error": failMsg}
	}

	ok := p.sessions.Mutate(sessionID, func(s *domain.Session) {
		// A stale record for this index may exist when a retry raced the
		// original run; the fresh record always replaces it.
		s.RemoveResult(index)
		s.Results = append(s.Results, record)
		s.ProcessedFiles = len(s.Results)
		s.CurrentProcessing = nil
	})
	if !ok {
		log.Debug("session deleted before result write, abandoning")
		return false
	}

	log.Info("file processed",
		slog.Bool("failed", failed),
		slog.Float64("elapsed_seconds", record.ElapsedSeconds))
	return true
}

// finish flips the session to completed once every index is accounted for.
// A run that ends while another retry task still owes records leaves the
// session in processing; the last run to account for all indices completes it.
func (p *Processor) finish(sessionID uuid.UUID) {
	p.sessions.Mutate(sessionID, func(s *domain.Session) {
		if s.ProcessedFiles >= s.TotalFiles {
			s.Status = domain.SessionStatusCompleted
			s.CurrentProcessing = nil
		}
	})
}

// recordDiagnostic appends a human-readable line to the session's error log.
// Returns false when the session no longer exists.
func (p *Processor) recordDiagnostic(sessionID uuid.UUID, msg string) bool {
	return p.sessions.Mutate(sessionID, func(s *domain.Session) {
		s.Errors = append(s.Errors, msg)
	})
}

func failureFor(err error) (domain.FailureKind, string) {
	switch {
	case errors.Is(err, analysis.ErrUploadFailed):
		return domain.FailureUpload, err.Error()
	case errors.Is(err, analysis.ErrTimeout):
		return domain.FailureTimeout, err.Error()
	case errors.Is(err, analysis.ErrWorkflowFailed):
		return domain.FailureWorkflow, err.Error()
	case errors.Is(err, analysis.ErrInvalidResponse):
		return domain.FailureInvalidResponse, err.Error()
	default:
		return domain.FailureUnknown, err.Error()
	}
}

func (p *Processor) maxAttempts() int {
	if p.cfg.MaxAttempts <= 0 {
		return 1
	}
	return p.cfg.MaxAttempts
}

func (p *Processor) backoff(attempt int) time.Duration {
	return time.Duration(p.cfg.RetryBackoffSeconds*attempt) * time.Second
}

func (p *Processor) fileDelay() time.Duration {
	return time.Duration(p.cfg.FileDelaySeconds) * time.Second
}

// sleepCtx waits for the given duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
