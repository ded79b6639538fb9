// Package api contains the HTTP handlers for the batch analysis service:
// batch lifecycle (start, status, stream, retry, delete), the external
// result webhook, and the extracted-record persistence endpoints.
//
// Handlers translate between the wire format and the service layer; they
// hold no business logic. Internal errors are mapped to safe client
// messages and HTTP status codes in errors.go.
package api
