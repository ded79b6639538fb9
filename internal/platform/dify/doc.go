// Package dify implements the analysis.Analyzer interface against a
// Dify-style workflow HTTP API. Each analysis is a two-phase call: the file
// bytes are uploaded to obtain an upload id, then a workflow run referencing
// that id is executed in blocking mode. The package owns call-level timeouts
// and low-level retry for transient transport failures; deciding whether the
// workflow output is usable structured data is left to the classifier.
package dify
