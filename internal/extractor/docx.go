package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/textextract/backend/internal/models"
)

const (
	wordMLNamespace  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	docxDocumentPart = "word/document.xml"
)

// DOCXExtractor reads paragraph-ordered text from word/document.xml.
// Table cells are emitted row-major: one line per row, cells separated by tabs.
type DOCXExtractor struct {
	maxXMLBytes int64
}

func NewDOCXExtractor(maxXMLBytes int64) *DOCXExtractor {
	return &DOCXExtractor{maxXMLBytes: maxXMLBytes}
}

func (e *DOCXExtractor) Kind() models.FileKind { return models.FileKindDOCX }

func (e *DOCXExtractor) Extract(doc models.RawDocument) (*Output, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Bytes), int64(len(doc.Bytes)))
	if err != nil {
		return nil, models.NewExtractionError("not a DOCX package", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxDocumentPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, models.NewExtractionError(docxDocumentPart+" not found in package", nil)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, models.NewExtractionError("opening "+docxDocumentPart, err)
	}
	defer rc.Close()

	limited := &io.LimitedReader{R: rc, N: e.maxXMLBytes + 1}
	w := newDocxWalker()
	walkErr := w.walk(xml.NewDecoder(limited))
	if limited.N <= 0 {
		return nil, models.NewExtractionError(
			fmt.Sprintf("%s exceeds %d bytes when decompressed", docxDocumentPart, e.maxXMLBytes), nil)
	}
	if walkErr != nil {
		return nil, models.NewExtractionError("parsing "+docxDocumentPart, walkErr)
	}

	return &Output{
		Text:  normalizeText(strings.Join(w.lines, "\n")),
		Units: w.paragraphs,
	}, nil
}

type docxTable struct {
	rows  []string
	cells []string
	cell  []string
}

// docxWalker accumulates text while streaming WordprocessingML tokens.
type docxWalker struct {
	lines      []string
	paras      []*strings.Builder
	tables     []*docxTable
	propDepth  int
	paragraphs int
}

func newDocxWalker() *docxWalker {
	return &docxWalker{}
}

func (w *docxWalker) walk(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordMLNamespace {
				continue
			}
			if err := w.start(d, t); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Space != wordMLNamespace {
				continue
			}
			w.end(t.Name.Local)
		}
	}
}

func (w *docxWalker) start(d *xml.Decoder, t xml.StartElement) error {
	switch t.Name.Local {
	case "p":
		w.paras = append(w.paras, &strings.Builder{})
	case "pPr":
		w.propDepth++
	case "tbl":
		w.tables = append(w.tables, &docxTable{})
	case "tr":
		if tbl := w.table(); tbl != nil {
			tbl.cells = nil
		}
	case "tc":
		if tbl := w.table(); tbl != nil {
			tbl.cell = nil
		}
	case "t":
		var s string
		if err := d.DecodeElement(&s, &t); err != nil {
			return err
		}
		w.write(s)
	case "tab", "ptab":
		// w:tab inside paragraph properties defines a tab stop, not a character.
		if w.propDepth == 0 {
			w.write("\t")
		}
	case "br", "cr":
		w.write("\n")
	case "noBreakHyphen":
		w.write("-")
	}
	return nil
}

func (w *docxWalker) end(local string) {
	switch local {
	case "pPr":
		if w.propDepth > 0 {
			w.propDepth--
		}
	case "p":
		if len(w.paras) == 0 {
			return
		}
		text := w.paras[len(w.paras)-1].String()
		w.paras = w.paras[:len(w.paras)-1]
		w.paragraphs++
		if tbl := w.table(); tbl != nil {
			tbl.cell = append(tbl.cell, strings.TrimSpace(text))
			return
		}
		w.lines = append(w.lines, text)
	case "tc":
		if tbl := w.table(); tbl != nil {
			tbl.cells = append(tbl.cells, joinNonEmpty(tbl.cell, " "))
			tbl.cell = nil
		}
	case "tr":
		if tbl := w.table(); tbl != nil {
			tbl.rows = append(tbl.rows, strings.Join(tbl.cells, "\t"))
			tbl.cells = nil
		}
	case "tbl":
		if len(w.tables) == 0 {
			return
		}
		done := w.tables[len(w.tables)-1]
		w.tables = w.tables[:len(w.tables)-1]
		if parent := w.table(); parent != nil {
			// A nested table flattens into the enclosing cell.
			parent.cell = append(parent.cell, joinNonEmpty(done.rows, " "))
			return
		}
		w.lines = append(w.lines, done.rows...)
	}
}

func (w *docxWalker) write(s string) {
	if len(w.paras) == 0 {
		return
	}
	w.paras[len(w.paras)-1].WriteString(s)
}

func (w *docxWalker) table() *docxTable {
	if len(w.tables) == 0 {
		return nil
	}
	return w.tables[len(w.tables)-1]
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
