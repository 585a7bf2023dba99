// Package extractor turns raw document bytes into plain text, one strategy per FileKind.
package extractor

import (
	"strings"

	"github.com/textextract/backend/internal/models"
)

// Extractor defines the interface for a format-specific extraction strategy.
type Extractor interface {
	// Kind returns the FileKind this strategy handles.
	Kind() models.FileKind
	// Extract converts the document bytes into text. A partial result is
	// returned together with a PartialExtractionError; any other error means
	// no usable text.
	Extract(doc models.RawDocument) (*Output, error)
}

// Output is the text recovered by a strategy plus unit accounting.
type Output struct {
	Text        string
	Units       int // pages for PDF, paragraphs/pieces elsewhere
	FailedUnits int
	Warnings    []string
}

// normalizeText unifies line endings, drops NUL bytes and trims the result.
func normalizeText(s string) string {
	if strings.ContainsRune(s, '\r') {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	if strings.ContainsRune(s, 0) {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	return strings.TrimSpace(s)
}
