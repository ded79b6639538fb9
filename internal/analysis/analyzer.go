package analysis

import "context"

// Analyzer defines the interface for running the external analysis workflow
// against one file. This interface serves as a boundary between the
// application core and the remote workflow service, following the hexagonal
// architecture pattern.
type Analyzer interface {
	// Analyze uploads the file bytes under the given filename and executes
	// the remote workflow against it, blocking until the workflow returns.
	//
	// On success it returns the raw workflow output without any
	// classification; deciding whether the output is usable structured data
	// is the classifier's concern. On failure it returns an error wrapping
	// one of the sentinel errors in errors.go so callers can branch on the
	// failure kind with errors.Is.
	Analyze(ctx context.Context, file []byte, filename string) (map[string]any, error)
}
