package service

import "errors"

// Common errors returned by the batch service
var (
	// ErrNoValidFiles is returned when a batch request contains no file
	// that passes validation. Individual rejections travel alongside.
	ErrNoValidFiles = errors.New("no valid files in batch")

	// ErrNoFailedResult is returned when a single-file retry targets an
	// index that has no failed result record.
	ErrNoFailedResult = errors.New("no failed result at file index")

	// ErrNoFailedResults is returned when retry-failed finds nothing to do.
	ErrNoFailedResults = errors.New("session has no failed results")
)
