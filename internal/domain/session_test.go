package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiles(n int) []FileUpload {
	files := make([]FileUpload, n)
	for i := range files {
		files[i] = FileUpload{
			Filename: "slip.jpg",
			Data:     []byte{0xFF, 0xD8, byte(i)},
		}
	}
	return files
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	s, err := NewSession(testFiles(3))
	require.NoError(t, err)

	assert.NotEqual(t, "", s.ID.String())
	assert.Equal(t, 3, s.TotalFiles)
	assert.Zero(t, s.ProcessedFiles)
	assert.Equal(t, SessionStatusProcessing, s.Status)
	assert.Empty(t, s.Results)
	assert.Empty(t, s.Errors)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewSession_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   []FileUpload
		wantErr error
	}{
		{"empty batch", nil, ErrNoFiles},
		{"missing filename", []FileUpload{{Data: []byte{1}}}, ErrEmptyFilename},
		{"empty payload", []FileUpload{{Filename: "a.jpg"}}, ErrEmptyFilePayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.files)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProgressPercentage(t *testing.T) {
	t.Parallel()

	s, err := NewSession(testFiles(3))
	require.NoError(t, err)

	assert.Equal(t, 0, s.ProgressPercentage())

	s.ProcessedFiles = 1
	assert.Equal(t, 33, s.ProgressPercentage())

	s.ProcessedFiles = 2
	assert.Equal(t, 67, s.ProgressPercentage())

	s.ProcessedFiles = 3
	assert.Equal(t, 100, s.ProgressPercentage())
}

func TestResultAccessors(t *testing.T) {
	t.Parallel()

	s, err := NewSession(testFiles(3))
	require.NoError(t, err)

	s.Results = []ResultRecord{
		{Filename: "a.jpg", FileIndex: 0},
		{Filename: "b.jpg", FileIndex: 1, Failed: true, FailureKind: FailureTimeout},
		{Filename: "c.jpg", FileIndex: 2, Failed: true, FailureKind: FailureWorkflow},
	}

	rec := s.ResultAt(1)
	require.NotNil(t, rec)
	assert.Equal(t, "b.jpg", rec.Filename)
	assert.Nil(t, s.ResultAt(9))

	assert.Equal(t, []int{1, 2}, s.FailedIndices())

	assert.True(t, s.RemoveResult(1))
	assert.False(t, s.RemoveResult(1))
	require.Len(t, s.Results, 2)
	assert.Equal(t, []int{2}, s.FailedIndices())
}

func TestClone_IsolatesMutableState(t *testing.T) {
	t.Parallel()

	s, err := NewSession(testFiles(1))
	require.NoError(t, err)
	s.Results = []ResultRecord{{Filename: "a.jpg", FileIndex: 0}}
	s.Errors = []string{"a.jpg (attempt 1): timeout"}
	s.CurrentProcessing = &ProcessingState{FileIndex: 0, Filename: "a.jpg", Attempt: 2}

	c := s.Clone()
	c.Results[0].Failed = true
	c.Errors[0] = "mutated"
	c.CurrentProcessing.Attempt = 9

	assert.False(t, s.Results[0].Failed)
	assert.Equal(t, "a.jpg (attempt 1): timeout", s.Errors[0])
	assert.Equal(t, 2, s.CurrentProcessing.Attempt)
}
