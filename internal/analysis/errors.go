package analysis

import "errors"

// Common errors returned by Analyzer implementations
var (
	// ErrUploadFailed is returned when the backend rejects the file upload.
	// Upload failures are terminal for the call; the adapter never retries them.
	ErrUploadFailed = errors.New("file upload rejected by analysis backend")

	// ErrWorkflowFailed is returned when the backend rejects or fails the
	// workflow execution step with a non-transient status.
	ErrWorkflowFailed = errors.New("workflow execution failed")

	// ErrTimeout is returned when either phase exceeds its deadline and the
	// adapter's inner retries are exhausted.
	ErrTimeout = errors.New("analysis backend timed out")

	// ErrInvalidResponse is returned when the backend call succeeds but the
	// response body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from analysis backend")

	// ErrInvalidConfig is returned when the adapter configuration is invalid.
	ErrInvalidConfig = errors.New("invalid analyzer configuration")
)
