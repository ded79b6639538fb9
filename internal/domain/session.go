package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the processing state of a batch session
type SessionStatus string

// Possible session status values. The transition is one-way: a session is
// created in processing and flips to completed exactly once, when every
// file index has a terminal result. Retry operations may move a completed
// session back to processing before rerunning the failed indices.
const (
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
)

// FailureKind categorizes why an analysis attempt ultimately failed.
type FailureKind string

// Possible failure kinds recorded on failed results
const (
	FailureUpload          FailureKind = "upload_error"
	FailureWorkflow        FailureKind = "workflow_error"
	FailureTimeout         FailureKind = "timeout"
	FailureInvalidResponse FailureKind = "invalid_response"
	FailureUnknown         FailureKind = "unknown"
)

// FileUpload holds an immutable snapshot of one submitted file. The bytes
// are copied out of the request at batch start and retained for the session
// lifetime so retries can replay the original payload.
type FileUpload struct {
	Filename string
	Data     []byte
}

// Validate checks the upload for basic integrity.
func (f FileUpload) Validate() error {
	if f.Filename == "" {
		return ErrEmptyFilename
	}
	if len(f.Data) == 0 {
		return ErrEmptyFilePayload
	}
	return nil
}

// ProcessingState describes the file currently in flight for a session.
type ProcessingState struct {
	FileIndex int       `json:"file_index"`
	Filename  string    `json:"filename"`
	Attempt   int       `json:"attempt"`
	StartedAt time.Time `json:"started_at"`
}

// ResultRecord is the terminal outcome for one file in a batch. It is
// immutable once appended, except that a failed record may be removed and
// replaced by a fresh record for the same index when the file is retried.
type ResultRecord struct {
	Filename       string         `json:"filename"`
	FileIndex      int            `json:"file_index"`
	Payload        map[string]any `json:"result"`
	Failed         bool           `json:"failed"`
	FailureKind    FailureKind    `json:"failure_kind,omitempty"`
	CompletedAt    time.Time      `json:"completed_at"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
}

// Session is the mutable record of one batch's progress. It is owned by the
// session store; all reads and writes of its mutable fields happen under the
// store's lock. OriginalFiles is never mutated after creation and may be read
// concurrently without additional synchronization.
type Session struct {
	ID                uuid.UUID
	TotalFiles        int
	ProcessedFiles    int
	Status            SessionStatus
	Results           []ResultRecord
	Errors            []string
	CurrentProcessing *ProcessingState
	OriginalFiles     []FileUpload
	CreatedAt         time.Time
}

// NewSession creates a session in the processing state for the given files.
// Returns an error if the file list is empty or any upload is invalid.
func NewSession(files []FileUpload) (*Session, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range files {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	return &Session{
		ID:            uuid.New(),
		TotalFiles:    len(files),
		Status:        SessionStatusProcessing,
		Results:       []ResultRecord{},
		Errors:        []string{},
		OriginalFiles: files,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ProgressPercentage returns the rounded completion percentage.
func (s *Session) ProgressPercentage() int {
	if s.TotalFiles == 0 {
		return 0
	}
	return int(math.Round(float64(s.ProcessedFiles) / float64(s.TotalFiles) * 100))
}

// ResultAt returns the result record for the given file index, or nil if the
// index has no terminal record yet.
func (s *Session) ResultAt(index int) *ResultRecord {
	for i := range s.Results {
		if s.Results[i].FileIndex == index {
			return &s.Results[i]
		}
	}
	return nil
}

// FailedIndices returns the file indices of all failed results in ascending
// result order.
func (s *Session) FailedIndices() []int {
	var indices []int
	for _, r := range s.Results {
		if r.Failed {
			indices = append(indices, r.FileIndex)
		}
	}
	return indices
}

// RemoveResult deletes the result record at the given file index, preserving
// the order of the remaining records. Returns true if a record was removed.
func (s *Session) RemoveResult(index int) bool {
	for i, r := range s.Results {
		if r.FileIndex == index {
			s.Results = append(s.Results[:i], s.Results[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session safe to hand to callers outside
// the store lock. The original file payloads are shared, not copied; they are
// immutable for the session lifetime.
func (s *Session) Clone() *Session {
	c := *s
	c.Results = make([]ResultRecord, len(s.Results))
	copy(c.Results, s.Results)
	c.Errors = make([]string, len(s.Errors))
	copy(c.Errors, s.Errors)
	if s.CurrentProcessing != nil {
		cp := *s.CurrentProcessing
		c.CurrentProcessing = &cp
	}
	return &c
}
