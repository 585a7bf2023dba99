package extractor

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/textextract/backend/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TXTExtractor decodes plain text. Invalid UTF-8 falls back to Latin-1, so
// decoding never fails.
type TXTExtractor struct{}

func NewTXTExtractor() *TXTExtractor {
	return &TXTExtractor{}
}

func (e *TXTExtractor) Kind() models.FileKind { return models.FileKindTXT }

func (e *TXTExtractor) Extract(doc models.RawDocument) (*Output, error) {
	text, fallback := decodeText(doc.Bytes)
	out := &Output{Text: normalizeText(text), Units: 1}
	if fallback {
		out.Warnings = append(out.Warnings, "content is not valid UTF-8; decoded as Latin-1")
	}
	return out, nil
}

// decodeText returns data as a string and whether the Latin-1 fallback was used.
func decodeText(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), false
	}
	return decodeLatin1(data), true
}

func decodeLatin1(data []byte) string {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err == nil {
		return string(decoded)
	}
	// Latin-1 maps every byte to the code point of the same value.
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
