package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StructuredPassthrough(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"order_number": "ORD-001",
		"ship_date":    "2025-01-15",
	}

	payload, ok := Classify(raw)

	assert.True(t, ok)
	assert.Equal(t, raw, payload)
}

func TestClassify_NilResponse(t *testing.T) {
	t.Parallel()

	payload, ok := Classify(nil)

	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestClassify_EmptyText(t *testing.T) {
	t.Parallel()

	_, ok := Classify(map[string]any{"text": "   \n\t  "})

	assert.False(t, ok)
}

func TestClassify_ShortErrorText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"error keyword", "Error: something went wrong"},
		{"timeout keyword", "request timeout"},
		{"invalid keyword", "Invalid input"},
		{"not found keyword", "document not found"},
		{"mixed case", "TIMEOUT occurred"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := Classify(map[string]any{"text": tt.text})
			assert.False(t, ok, "short error text should be invalid: %q", tt.text)
		})
	}
}

func TestClassify_JSONFence(t *testing.T) {
	t.Parallel()

	text := "Here is the result:\n```json\n{\"order_number\": \"ORD-002\"}\n```\nDone."

	payload, ok := Classify(map[string]any{"text": text})

	require.True(t, ok)
	extracted, isMap := payload["extracted_data"].(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, "ORD-002", extracted["order_number"])
	assert.Equal(t, text, payload["raw_text"])
}

func TestClassify_UntaggedFence(t *testing.T) {
	t.Parallel()

	text := "```\n[{\"page\": \"1\"}]\n```"

	payload, ok := Classify(map[string]any{"text": text})

	require.True(t, ok)
	extracted, isSlice := payload["extracted_data"].([]any)
	require.True(t, isSlice)
	require.Len(t, extracted, 1)
}

func TestClassify_BareJSONText(t *testing.T) {
	t.Parallel()

	payload, ok := Classify(map[string]any{"text": `{"staff_name": "田中太郎"}`})

	require.True(t, ok)
	extracted, isMap := payload["extracted_data"].(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, "田中太郎", extracted["staff_name"])
}

func TestClassify_LongTextAcceptedWithoutParse(t *testing.T) {
	t.Parallel()

	// Well over the long threshold but not parseable JSON.
	text := strings.Repeat("The shipment details follow below. ", 20)
	raw := map[string]any{"text": text}

	payload, ok := Classify(raw)

	assert.True(t, ok)
	assert.Equal(t, raw, payload)
}

func TestClassify_StructuralTextAcceptedWithoutParse(t *testing.T) {
	t.Parallel()

	// Contains a brace but is not valid JSON; accepted heuristically. Kept
	// above the short threshold so the keyword screen does not apply.
	text := "Parsed fields for the delivery slip follow in the format {key: value} " +
		"as produced by the upstream workflow for this document page."

	_, ok := Classify(map[string]any{"text": text})

	assert.True(t, ok)
}

func TestClassify_ShortPlainTextRejected(t *testing.T) {
	t.Parallel()

	_, ok := Classify(map[string]any{"text": "nothing useful here"})

	assert.False(t, ok)
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	raw := map[string]any{"text": "```json\n{\"page\": \"3\"}\n```"}

	first, ok1 := Classify(raw)
	second, ok2 := Classify(raw)

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)

	// Classifying an already-structured payload again keeps the verdict.
	third, ok3 := Classify(first)
	assert.True(t, ok3)
	assert.Equal(t, first, third)
}

func TestClassify_NonStringTextField(t *testing.T) {
	t.Parallel()

	raw := map[string]any{"text": 42, "other": "field"}

	payload, ok := Classify(raw)

	assert.True(t, ok)
	assert.Equal(t, raw, payload)
}
