package models

import (
	"errors"
	"fmt"
)

// Error kinds of the extraction pipeline. A *PipelineError always wraps one of these.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFetch             = errors.New("fetch failed")
	ErrExtraction        = errors.New("extraction failed")
	ErrPartialExtraction = errors.New("partial extraction")
	ErrPersistence       = errors.New("persistence failed")
)

var errorCodes = map[error]string{
	ErrInvalidRequest:    "INVALID_REQUEST",
	ErrUnsupportedFormat: "UNSUPPORTED_FORMAT",
	ErrFetch:             "FETCH_ERROR",
	ErrExtraction:        "EXTRACTION_ERROR",
	ErrPartialExtraction: "PARTIAL_EXTRACTION",
	ErrPersistence:       "PERSISTENCE_ERROR",
}

// PipelineError is the structured error carried in results and history.
type PipelineError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *PipelineError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Code returns the wire code for the error kind.
func (e *PipelineError) Code() string {
	if e == nil {
		return ""
	}
	if code, ok := errorCodes[e.Kind]; ok {
		return code
	}
	return "INTERNAL_ERROR"
}

// Fatal reports whether the error ends a pipeline run with a failure result.
func (e *PipelineError) Fatal() bool {
	return e != nil && e.Kind != ErrPartialExtraction && e.Kind != ErrPersistence
}

func newPipelineError(kind error, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: cause}
}

func NewInvalidRequestError(message string) *PipelineError {
	return newPipelineError(ErrInvalidRequest, message, nil)
}

func NewUnsupportedFormatError(message string) *PipelineError {
	return newPipelineError(ErrUnsupportedFormat, message, nil)
}

func NewFetchError(message string, cause error) *PipelineError {
	return newPipelineError(ErrFetch, message, cause)
}

func NewExtractionError(message string, cause error) *PipelineError {
	return newPipelineError(ErrExtraction, message, cause)
}

func NewPartialExtractionError(message string) *PipelineError {
	return newPipelineError(ErrPartialExtraction, message, nil)
}

func NewPersistenceError(message string, cause error) *PipelineError {
	return newPipelineError(ErrPersistence, message, cause)
}

// AsPipelineError returns err as a *PipelineError, wrapping foreign errors
// under fallback so callers always get a classified error.
func AsPipelineError(err error, fallback error) *PipelineError {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return newPipelineError(fallback, "unclassified error", err)
}
