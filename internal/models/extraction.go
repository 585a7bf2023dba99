package models

import (
	"net/url"
	"strings"
	"time"
)

// Status is the overall outcome of a pipeline run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// Stage is a state of the per-request pipeline state machine.
type Stage string

const (
	StageClassified Stage = "classified"
	StageFetched    Stage = "fetched"
	StageExtracted  Stage = "extracted"
	StagePersisted  Stage = "persisted"
	StageDone       Stage = "done"
	StageErrored    Stage = "errored"
)

// ExtractionRequest is the immutable input of a single pipeline run.
type ExtractionRequest struct {
	DocumentURL string
	RecordID    string
	ContentType string // optional classification hint
}

// Validate checks that DocumentURL is a non-empty absolute http(s) URL.
func (r ExtractionRequest) Validate() *PipelineError {
	raw := strings.TrimSpace(r.DocumentURL)
	if raw == "" {
		return NewInvalidRequestError("file_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return NewInvalidRequestError("file_url is not a valid URL")
	}
	if !u.IsAbs() || u.Host == "" {
		return NewInvalidRequestError("file_url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewInvalidRequestError("file_url must use http or https")
	}
	return nil
}

// ExtractionResult is the primary outcome of a run.
// Status success implies Err is nil; status failure implies Text is empty.
type ExtractionResult struct {
	Text     string
	Status   Status
	FileKind FileKind
	Err      *PipelineError
}

// Succeeded builds a success result.
func Succeeded(kind FileKind, text string) ExtractionResult {
	return ExtractionResult{Text: text, Status: StatusSuccess, FileKind: kind}
}

// Partial builds a partial result carrying the recovered text.
func Partial(kind FileKind, text string, err *PipelineError) ExtractionResult {
	return ExtractionResult{Text: text, Status: StatusPartial, FileKind: kind, Err: err}
}

// Failed builds a failure result; any text is discarded.
func Failed(kind FileKind, err *PipelineError) ExtractionResult {
	if kind == "" {
		kind = FileKindUnknown
	}
	return ExtractionResult{Status: StatusFailure, FileKind: kind, Err: err}
}

// PersistenceOutcome reports the advisory record store write.
type PersistenceOutcome struct {
	Updated bool
	Err     *PipelineError
}

// RunReport is everything a caller learns from one run. Result and
// Persistence are independent: a failed write never changes Result.
type RunReport struct {
	Result      ExtractionResult
	Persistence PersistenceOutcome
	Stage       Stage
	Duration    time.Duration
}
