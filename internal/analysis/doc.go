// Package analysis defines the boundary between the application core and the
// external document-analysis workflow service. It holds the Analyzer
// interface implemented by platform adapters, the error taxonomy shared by
// the adapter and the processor, and the pure response classifier that
// decides whether a raw workflow response is usable structured data.
package analysis
