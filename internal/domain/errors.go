package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrNoFiles is returned when a session is created with an empty file list.
	ErrNoFiles = errors.New("session must contain at least one file")

	// ErrFileIndexRange is returned when an operation targets a file index
	// outside [0, TotalFiles).
	ErrFileIndexRange = errors.New("file index out of range")

	// ErrEmptyFilename is returned when an uploaded file has no name.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyFilePayload is returned when an uploaded file has no bytes.
	ErrEmptyFilePayload = errors.New("file payload cannot be empty")
)
