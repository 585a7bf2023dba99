package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_CodesAndFatal(t *testing.T) {
	tests := []struct {
		name      string
		err       *PipelineError
		wantCode  string
		wantFatal bool
		wantKind  error
	}{
		{"invalid request", NewInvalidRequestError("bad"), "INVALID_REQUEST", true, ErrInvalidRequest},
		{"unsupported", NewUnsupportedFormatError("xlsx"), "UNSUPPORTED_FORMAT", true, ErrUnsupportedFormat},
		{"fetch", NewFetchError("404", nil), "FETCH_ERROR", true, ErrFetch},
		{"extraction", NewExtractionError("corrupt", nil), "EXTRACTION_ERROR", true, ErrExtraction},
		{"partial", NewPartialExtractionError("1 of 3"), "PARTIAL_EXTRACTION", false, ErrPartialExtraction},
		{"persistence", NewPersistenceError("down", nil), "PERSISTENCE_ERROR", false, ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code())
			assert.Equal(t, tt.wantFatal, tt.err.Fatal())
			assert.True(t, errors.Is(tt.err, tt.wantKind))
		})
	}
}

func TestPipelineError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFetchError("GET failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrFetch))
	assert.Equal(t, "fetch failed: GET failed: connection refused", err.Error())
}

func TestPipelineError_NilCode(t *testing.T) {
	var err *PipelineError
	assert.Equal(t, "", err.Code())
	assert.False(t, err.Fatal())
}

func TestAsPipelineError(t *testing.T) {
	assert.Nil(t, AsPipelineError(nil, ErrExtraction))

	original := NewFetchError("timeout", nil)
	wrapped := fmt.Errorf("outer: %w", original)
	assert.Same(t, original, AsPipelineError(wrapped, ErrExtraction))

	foreign := errors.New("boom")
	got := AsPipelineError(foreign, ErrExtraction)
	require.NotNil(t, got)
	assert.Equal(t, "EXTRACTION_ERROR", got.Code())
	assert.True(t, errors.Is(got, foreign))
}

func TestExtractionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://x.test/a.pdf", false},
		{"http", "http://x.test/a.txt", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"relative", "/files/a.pdf", true},
		{"no host", "https:///a.pdf", true},
		{"ftp scheme", "ftp://x.test/a.pdf", true},
		{"file scheme", "file:///etc/passwd", true},
		{"unparseable", "http://[::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExtractionRequest{DocumentURL: tt.url}.Validate()
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, "INVALID_REQUEST", err.Code())
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestResultConstructors(t *testing.T) {
	ok := Succeeded(FileKindPDF, "text")
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Nil(t, ok.Err)

	partial := Partial(FileKindPDF, "some", NewPartialExtractionError("1 of 2"))
	assert.Equal(t, StatusPartial, partial.Status)
	assert.Equal(t, "some", partial.Text)
	assert.NotNil(t, partial.Err)

	failed := Failed("", NewFetchError("404", nil))
	assert.Equal(t, StatusFailure, failed.Status)
	assert.Equal(t, FileKindUnknown, failed.FileKind)
	assert.Empty(t, failed.Text)
}

func TestFileKind(t *testing.T) {
	for _, k := range SupportedFileKinds {
		assert.True(t, k.Supported(), k)
	}
	assert.False(t, FileKindUnknown.Supported())
	assert.Equal(t, "unknown", FileKind("").String())
}

func TestNewHistoryEntry(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	req := ExtractionRequest{DocumentURL: "https://x.test/a.pdf", RecordID: "42"}
	report := RunReport{
		Result:      Partial(FileKindPDF, "abc", NewPartialExtractionError("1 of 2 pages had no extractable text")),
		Persistence: PersistenceOutcome{Updated: true},
		Duration:    1500 * time.Millisecond,
	}

	entry := NewHistoryEntry("id-1", req, report, at)
	assert.Equal(t, "id-1", entry.ID)
	assert.Equal(t, "42", entry.RecordID)
	assert.Equal(t, StatusPartial, entry.Status)
	assert.Equal(t, "PARTIAL_EXTRACTION", entry.ErrorCode)
	assert.Equal(t, 3, entry.TextLength)
	assert.True(t, entry.Updated)
	assert.Equal(t, int64(1500), entry.DurationMs)
	assert.Equal(t, at, entry.CreatedAt)
}
