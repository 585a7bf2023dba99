package extractor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"

	"github.com/textextract/backend/internal/models"
)

const (
	wordIdent         = 0xA5EC
	fibFlagsOffset    = 0x000A
	fibWhichTableFlag = 0x0200
	fibFcClxOffset    = 0x01A2
	fibLcbClxOffset   = 0x01A6
	pcdCompressedFlag = 0x40000000
)

var zipSignature = []byte("PK\x03\x04")

// DOCExtractor reads legacy Word 97-2003 binaries. Text comes from the piece
// table when the file is well-formed; otherwise printable runs are scanned out
// of the WordDocument stream. Files that are really OOXML packages saved with
// a .doc name are handed to the DOCX strategy.
type DOCExtractor struct {
	minRun   int
	maxBytes int64
	docx     *DOCXExtractor
	logger   *slog.Logger
}

func NewDOCExtractor(minRun int, maxBytes int64, docx *DOCXExtractor, logger *slog.Logger) *DOCExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOCExtractor{minRun: minRun, maxBytes: maxBytes, docx: docx, logger: logger}
}

func (e *DOCExtractor) Kind() models.FileKind { return models.FileKindDOC }

func (e *DOCExtractor) Extract(doc models.RawDocument) (*Output, error) {
	if bytes.HasPrefix(doc.Bytes, zipSignature) && e.docx != nil {
		e.logger.Debug("doc is an OOXML package, using docx strategy")
		out, err := e.docx.Extract(doc)
		if out != nil {
			out.Warnings = append(out.Warnings, "DOC file is an OOXML package; read as DOCX")
		}
		return out, err
	}

	streams, err := e.readStreams(doc.Bytes)
	if err != nil {
		return nil, models.NewExtractionError("not a Word 97-2003 document", err)
	}
	wordDoc, ok := streams["WordDocument"]
	if !ok {
		return nil, models.NewExtractionError("WordDocument stream not found", nil)
	}

	out := &Output{Units: 1}
	text, err := pieceTableText(wordDoc, streams)
	if err != nil {
		e.logger.Debug("doc piece table unreadable, scanning runs", "error", err)
		out.Warnings = append(out.Warnings, fmt.Sprintf("piece table unreadable (%v); used text scan", err))
		text = scanPrintableRuns(wordDoc, e.minRun)
	}

	out.Text = normalizeText(text)
	if out.Text == "" {
		return nil, models.NewExtractionError("no extractable text in DOC file", nil)
	}
	return out, nil
}

// readStreams loads the root-level Word streams of the compound file, bounded
// by maxBytes in total. Streams of embedded objects (ObjectPool/...) are skipped.
func (e *DOCExtractor) readStreams(data []byte) (streams map[string][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			streams, err = nil, fmt.Errorf("compound file reader panic: %v", r)
		}
	}()

	reader, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	streams = make(map[string][]byte)
	var total int64
	for {
		entry, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nil, fmt.Errorf("walking compound file: %w", nextErr)
		}
		if len(entry.Path) != 0 {
			continue
		}
		switch entry.Name {
		case "WordDocument", "0Table", "1Table":
		default:
			continue
		}
		total += entry.Size
		if total > e.maxBytes {
			return nil, fmt.Errorf("streams exceed %d bytes", e.maxBytes)
		}
		buf, readErr := io.ReadAll(io.LimitReader(entry, entry.Size))
		if readErr != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name, readErr)
		}
		streams[entry.Name] = buf
	}
	return streams, nil
}

// pieceTableText rebuilds the main document text from the CLX in the table stream.
func pieceTableText(wordDoc []byte, streams map[string][]byte) (string, error) {
	if len(wordDoc) < fibLcbClxOffset+4 {
		return "", errors.New("FIB truncated")
	}
	if binary.LittleEndian.Uint16(wordDoc) != wordIdent {
		return "", fmt.Errorf("unexpected wIdent 0x%04X", binary.LittleEndian.Uint16(wordDoc))
	}

	tableName := "0Table"
	if binary.LittleEndian.Uint16(wordDoc[fibFlagsOffset:])&fibWhichTableFlag != 0 {
		tableName = "1Table"
	}
	table, ok := streams[tableName]
	if !ok {
		return "", fmt.Errorf("%s stream not found", tableName)
	}

	fcClx := binary.LittleEndian.Uint32(wordDoc[fibFcClxOffset:])
	lcbClx := binary.LittleEndian.Uint32(wordDoc[fibLcbClxOffset:])
	if lcbClx == 0 || uint64(fcClx)+uint64(lcbClx) > uint64(len(table)) {
		return "", errors.New("CLX out of range")
	}

	plc, err := findPlcPcd(table[fcClx : fcClx+lcbClx])
	if err != nil {
		return "", err
	}
	return decodePieces(plc, wordDoc)
}

// findPlcPcd skips Prc entries and returns the PlcPcd payload of the Pcdt.
func findPlcPcd(clx []byte) ([]byte, error) {
	pos := 0
	for pos < len(clx) {
		switch clx[pos] {
		case 0x01:
			if pos+3 > len(clx) {
				return nil, errors.New("Prc truncated")
			}
			pos += 3 + int(binary.LittleEndian.Uint16(clx[pos+1:]))
		case 0x02:
			if pos+5 > len(clx) {
				return nil, errors.New("Pcdt truncated")
			}
			lcb := int(binary.LittleEndian.Uint32(clx[pos+1:]))
			start := pos + 5
			if lcb < 0 || start+lcb > len(clx) {
				return nil, errors.New("PlcPcd out of range")
			}
			return clx[start : start+lcb], nil
		default:
			return nil, fmt.Errorf("unexpected CLX entry 0x%02X", clx[pos])
		}
	}
	return nil, errors.New("Pcdt not found")
}

func decodePieces(plc, wordDoc []byte) (string, error) {
	// n+1 character positions of 4 bytes followed by n piece descriptors of 8 bytes.
	if len(plc) < 4 || (len(plc)-4)%12 != 0 {
		return "", fmt.Errorf("PlcPcd has invalid size %d", len(plc))
	}
	n := (len(plc) - 4) / 12
	pcds := plc[(n+1)*4:]

	cp1252 := charmap.Windows1252.NewDecoder()
	var b strings.Builder
	for i := 0; i < n; i++ {
		cpStart := binary.LittleEndian.Uint32(plc[i*4:])
		cpEnd := binary.LittleEndian.Uint32(plc[(i+1)*4:])
		if cpEnd < cpStart {
			return "", fmt.Errorf("piece %d has negative length", i)
		}
		chars := int(cpEnd - cpStart)
		fc := binary.LittleEndian.Uint32(pcds[i*8+2:])

		if fc&pcdCompressedFlag != 0 {
			offset := int((fc &^ pcdCompressedFlag) / 2)
			if offset+chars > len(wordDoc) {
				return "", fmt.Errorf("piece %d out of range", i)
			}
			decoded, err := cp1252.Bytes(wordDoc[offset : offset+chars])
			if err != nil {
				return "", fmt.Errorf("piece %d: %w", i, err)
			}
			b.Write(decoded)
			continue
		}

		offset := int(fc)
		if offset+chars*2 > len(wordDoc) {
			return "", fmt.Errorf("piece %d out of range", i)
		}
		b.WriteString(decodeUTF16LE(wordDoc[offset : offset+chars*2]))
	}
	return cleanWordText(b.String()), nil
}

func decodeUTF16LE(data []byte) string {
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return string(utf16.Decode(units))
}

// cleanWordText maps Word's special characters to plain text and drops field
// instructions, keeping field results.
func cleanWordText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	// One entry per open field; true while its instruction part is being read.
	var fields []bool
	hidden := func() bool {
		for _, instr := range fields {
			if instr {
				return true
			}
		}
		return false
	}
	for _, r := range s {
		switch r {
		case 0x13:
			fields = append(fields, true)
			continue
		case 0x14:
			if len(fields) > 0 {
				fields[len(fields)-1] = false
			}
			continue
		case 0x15:
			if len(fields) > 0 {
				fields = fields[:len(fields)-1]
			}
			continue
		}
		if hidden() {
			continue
		}
		switch r {
		case '\r', 0x0B, 0x0C:
			b.WriteByte('\n')
		case 0x07:
			b.WriteByte('\t')
		case '\t', '\n':
			b.WriteRune(r)
		default:
			if !unicode.IsControl(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// scanPrintableRuns collects runs of at least minRun Latin-1 printable
// characters, both as single bytes and as UTF-16LE, and keeps whichever yields more text.
func scanPrintableRuns(data []byte, minRun int) string {
	narrow := collectRuns(len(data), minRun, func(i int) (rune, int) {
		return rune(data[i]), 1
	})
	wide := collectRuns(len(data)-1, minRun, func(i int) (rune, int) {
		return rune(binary.LittleEndian.Uint16(data[i:])), 2
	})
	if utf8.RuneCountInString(wide) > utf8.RuneCountInString(narrow) {
		return wide
	}
	return narrow
}

func collectRuns(limit, minRun int, at func(int) (rune, int)) string {
	var out []string
	var run []rune
	flush := func() {
		if len(run) >= minRun {
			out = append(out, strings.TrimSpace(string(run)))
		}
		run = run[:0]
	}
	for i := 0; i < limit; {
		r, width := at(i)
		if r == '\r' {
			r = '\n'
		}
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7F) || (r >= 0xA0 && r <= 0xFF) {
			run = append(run, r)
			i += width
			continue
		}
		flush()
		i++
	}
	flush()
	return strings.Join(out, "\n")
}
