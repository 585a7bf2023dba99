package extractor

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/textextract/backend/internal/models"
)

var extensionKinds = map[string]models.FileKind{
	"pdf":  models.FileKindPDF,
	"docx": models.FileKindDOCX,
	"doc":  models.FileKindDOC,
	"txt":  models.FileKindTXT,
}

var mimeKinds = map[string]models.FileKind{
	"application/pdf": models.FileKindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": models.FileKindDOCX,
	"application/msword": models.FileKindDOC,
	"text/plain":         models.FileKindTXT,
}

// Classify determines the FileKind of a document from the extension of its
// URL path, falling back to contentTypeHint. It never fails; anything it does
// not recognize is FileKindUnknown.
func Classify(documentURL, contentTypeHint string) models.FileKind {
	if kind, ok := extensionKinds[NormalizeExt(path.Ext(urlPath(documentURL)))]; ok {
		return kind
	}
	if contentTypeHint != "" {
		mediaType, _, err := mime.ParseMediaType(contentTypeHint)
		if err != nil {
			mediaType = strings.TrimSpace(strings.Split(contentTypeHint, ";")[0])
		}
		if kind, ok := mimeKinds[strings.ToLower(mediaType)]; ok {
			return kind
		}
	}
	return models.FileKindUnknown
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// urlPath returns the path component of raw, ignoring query and fragment.
func urlPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
