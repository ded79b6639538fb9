// Package redact provides utilities for scrubbing sensitive information from
// strings before they are logged. Analysis backend errors can embed the
// workflow API key, bearer headers, backend host names, or the database
// connection string; this package keeps those out of the log stream.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
)

// Precompiled regex patterns
var (
	// Database connection strings with inline credentials
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database)://[^@\s]+@`)

	// Workflow API keys and bearer tokens
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|bearer|authorization)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Backend host:port fragments leaked from transport errors
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	patternPlaceholders = []struct {
		pattern     *regexp.Regexp
		placeholder string
	}{
		{dbConnRegex, RedactedCredentialPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
		{hostPortRegex, RedactedHostPlaceholder},
	}
)

// String scrubs known sensitive patterns from s.
func String(s string) string {
	for _, p := range patternPlaceholders {
		s = p.pattern.ReplaceAllString(s, p.placeholder)
	}
	return s
}

// Error scrubs known sensitive patterns from the error's message. Returns an
// empty string for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
