package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/textextract/backend/internal/models"
)

// PDFExtractor extracts text page by page. Pages without a text layer are
// counted as failed units instead of failing the whole document.
type PDFExtractor struct {
	separator string
	logger    *slog.Logger
}

func NewPDFExtractor(separator string, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{separator: separator, logger: logger}
}

func (e *PDFExtractor) Kind() models.FileKind { return models.FileKindPDF }

func (e *PDFExtractor) Extract(doc models.RawDocument) (*Output, error) {
	reader, pages, err := openPDF(doc.Bytes)
	if err != nil {
		return nil, models.NewExtractionError("could not open PDF", errors.Join(err, diagnosePDF(doc.Bytes)))
	}
	if pages <= 0 {
		return nil, models.NewExtractionError("PDF has no pages", diagnosePDF(doc.Bytes))
	}

	out := &Output{Units: pages}
	segments := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			out.FailedUnits++
			out.Warnings = append(out.Warnings, fmt.Sprintf("page %d: %v", i, err))
			e.logger.Debug("pdf page failed", "page", i, "error", err)
			continue
		}
		if text == "" {
			out.FailedUnits++
			out.Warnings = append(out.Warnings, fmt.Sprintf("page %d: no extractable text", i))
			continue
		}
		segments = append(segments, text)
	}

	if len(segments) == 0 {
		return nil, models.NewExtractionError(
			fmt.Sprintf("no extractable text on any of %d pages", pages), nil)
	}

	out.Text = normalizeText(strings.Join(segments, e.separator))
	if out.FailedUnits > 0 {
		e.logger.Info("pdf extracted partially", "pages", pages, "failed_pages", out.FailedUnits)
		return out, models.NewPartialExtractionError(
			fmt.Sprintf("%d of %d pages had no extractable text", out.FailedUnits, pages))
	}
	return out, nil
}

// openPDF opens data and counts its pages. The parser panics on some
// malformed inputs, so panics are turned into errors.
func openPDF(data []byte) (reader *pdf.Reader, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, pages, err = nil, 0, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, err
	}
	return reader, reader.NumPage(), nil
}

// pageText reconstructs the text of page num (1-based) from its text runs,
// starting a new line whenever the baseline moves.
func pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", errors.New("page object missing")
	}

	var b strings.Builder
	var lastY, lastEnd float64
	for _, t := range page.Content().Text {
		if t.S == "" {
			continue
		}
		if b.Len() > 0 {
			tolerance := math.Max(1, t.FontSize*0.3)
			switch {
			case math.Abs(t.Y-lastY) > tolerance:
				b.WriteByte('\n')
			case t.X-lastEnd > math.Max(1, t.FontSize*0.2):
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		lastY = t.Y
		lastEnd = t.X + t.W
	}
	return strings.TrimSpace(b.String()), nil
}

// diagnosePDF asks pdfcpu for a structural opinion of a document the text
// parser rejected. It returns nil when pdfcpu can read the page tree.
func diagnosePDF(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if _, err := api.PageCount(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("pdfcpu: %w", err)
	}
	return nil
}
