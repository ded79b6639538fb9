package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Thresholds for the free-text heuristics. Short responses mentioning an
// error keyword are treated as failure chatter from the workflow; long
// responses are assumed to carry real content even when JSON extraction
// fails, so the caller does not burn retries on verbose but legitimate output.
const (
	shortTextThreshold = 100
	longTextThreshold  = 500
)

// errorKeywords mark a short free-text response as a failure message.
var errorKeywords = []string{"error", "timeout", "invalid", "not found"}

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// Classify decides whether a raw workflow response counts as a valid
// structured result. It returns the best-effort extracted payload and a
// verdict; it never fails. An invalid verdict means the caller should retry
// the attempt or record the file as failed.
//
// A response without a free-text field is already structured and passes
// through unchanged. A response carrying text is stripped, screened for
// error chatter, and mined for embedded JSON: a tagged code fence first,
// then any fence, then the whole text. A successful parse is wrapped as
// {extracted_data, raw_text} so the original response survives alongside
// the structured data.
func Classify(raw map[string]any) (map[string]any, bool) {
	if raw == nil {
		return nil, false
	}

	textVal, hasText := raw["text"]
	if !hasText {
		return raw, true
	}

	text, ok := textVal.(string)
	if !ok {
		return raw, true
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return raw, false
	}

	if len(trimmed) < shortTextThreshold && containsErrorKeyword(trimmed) {
		return raw, false
	}

	if parsed, ok := extractJSON(trimmed); ok {
		return map[string]any{
			"extracted_data": parsed,
			"raw_text":       text,
		}, true
	}

	// Verbose or structurally JSON-ish text is accepted as-is rather than
	// treated as a failed attempt.
	if len(trimmed) > longTextThreshold || looksStructural(trimmed) {
		return raw, true
	}

	return raw, false
}

func containsErrorKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// extractJSON locates a JSON candidate in the text and parses it. Candidates
// are tried in order of decreasing specificity: a ```json fence, any fence,
// then the whole text.
func extractJSON(text string) (any, bool) {
	candidates := []string{}
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, text)

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(c), &parsed); err == nil {
			switch parsed.(type) {
			case map[string]any, []any:
				return parsed, true
			}
		}
	}
	return nil, false
}

func looksStructural(text string) bool {
	return strings.Contains(text, "{") ||
		strings.Contains(text, "[{") ||
		strings.Contains(text, `"`) ||
		strings.Contains(text, "```")
}
