// Package models contains domain types for the text extraction service.
package models

// FileKind is the closed set of document formats the pipeline understands.
type FileKind string

const (
	FileKindPDF     FileKind = "pdf"
	FileKindDOCX    FileKind = "docx"
	FileKindDOC     FileKind = "doc"
	FileKindTXT     FileKind = "txt"
	FileKindUnknown FileKind = "unknown"
)

// SupportedFileKinds lists every kind with an extraction strategy, in display order.
var SupportedFileKinds = []FileKind{
	FileKindPDF,
	FileKindDOCX,
	FileKindDOC,
	FileKindTXT,
}

// Supported reports whether k has an extraction strategy.
func (k FileKind) Supported() bool {
	switch k {
	case FileKindPDF, FileKindDOCX, FileKindDOC, FileKindTXT:
		return true
	}
	return false
}

func (k FileKind) String() string {
	if k == "" {
		return string(FileKindUnknown)
	}
	return string(k)
}

// RawDocument carries fetched bytes from the fetcher to a strategy.
// It is never retained past a single extraction.
type RawDocument struct {
	Bytes        []byte
	DeclaredKind FileKind
}
