package extractor

import (
	"encoding/binary"
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textextract/backend/internal/models"
	"github.com/textextract/backend/internal/testutil"
)

// wordStreams builds a WordDocument stream holding text as a single piece,
// plus the table stream with its CLX.
func wordStreams(text string, compressed bool) map[string][]byte {
	const textOffset = 0x400

	var raw []byte
	var fc uint32
	chars := uint32(len([]rune(text)))
	if compressed {
		raw = []byte(text)
		fc = uint32(textOffset*2) | pcdCompressedFlag
	} else {
		for _, u := range utf16.Encode([]rune(text)) {
			raw = binary.LittleEndian.AppendUint16(raw, u)
		}
		fc = textOffset
	}

	wordDoc := make([]byte, textOffset+len(raw))
	binary.LittleEndian.PutUint16(wordDoc, wordIdent)
	binary.LittleEndian.PutUint16(wordDoc[fibFlagsOffset:], fibWhichTableFlag)
	copy(wordDoc[textOffset:], raw)

	plc := binary.LittleEndian.AppendUint32(nil, 0)
	plc = binary.LittleEndian.AppendUint32(plc, chars)
	plc = append(plc, 0, 0)
	plc = binary.LittleEndian.AppendUint32(plc, fc)
	plc = append(plc, 0, 0)

	// A Prc entry in front of the Pcdt exercises the skip logic.
	clx := []byte{0x01, 0x02, 0x00, 0xAA, 0xBB, 0x02}
	clx = binary.LittleEndian.AppendUint32(clx, uint32(len(plc)))
	clx = append(clx, plc...)

	binary.LittleEndian.PutUint32(wordDoc[fibFcClxOffset:], 0)
	binary.LittleEndian.PutUint32(wordDoc[fibLcbClxOffset:], uint32(len(clx)))

	return map[string][]byte{
		"WordDocument": wordDoc,
		"1Table":       clx,
	}
}

func TestPieceTableText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		compressed bool
		want       string
	}{
		{"compressed ascii", "Hello\rWorld", true, "Hello\nWorld"},
		{"utf16", "Grüße\r世界", false, "Grüße\n世界"},
		{"cell marks become tabs", "A1\aB1\a", true, "A1\tB1\t"},
		{"field instruction dropped", "See \x13 HYPERLINK \"http://x\" \x14here\x15.", true, "See here."},
		{"field without result dropped", "Page \x13 PAGE \x15end", true, "Page end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streams := wordStreams(tt.text, tt.compressed)
			got, err := pieceTableText(streams["WordDocument"], streams)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPieceTableText_Errors(t *testing.T) {
	t.Run("short FIB", func(t *testing.T) {
		_, err := pieceTableText(make([]byte, 16), nil)
		assert.Error(t, err)
	})

	t.Run("wrong ident", func(t *testing.T) {
		streams := wordStreams("text", true)
		binary.LittleEndian.PutUint16(streams["WordDocument"], 0x1234)
		_, err := pieceTableText(streams["WordDocument"], streams)
		assert.Error(t, err)
	})

	t.Run("missing table stream", func(t *testing.T) {
		streams := wordStreams("text", true)
		delete(streams, "1Table")
		_, err := pieceTableText(streams["WordDocument"], streams)
		assert.Error(t, err)
	})

	t.Run("clx out of range", func(t *testing.T) {
		streams := wordStreams("text", true)
		binary.LittleEndian.PutUint32(streams["WordDocument"][fibLcbClxOffset:], 1<<20)
		_, err := pieceTableText(streams["WordDocument"], streams)
		assert.Error(t, err)
	})
}

func TestScanPrintableRuns(t *testing.T) {
	data := []byte("\x00\x01Hello world\x00\x02ab\x00\x03Second run\x00")
	assert.Equal(t, "Hello world\nSecond run", scanPrintableRuns(data, 4))

	var wide []byte
	for _, u := range utf16.Encode([]rune("Wide text here")) {
		wide = binary.LittleEndian.AppendUint16(wide, u)
	}
	assert.Equal(t, "Wide text here", scanPrintableRuns(append([]byte{0xFF, 0xFE}, wide...), 4))
}

func TestDOCExtractor_DelegatesZipToDOCX(t *testing.T) {
	docx := NewDOCXExtractor(1 << 20)
	e := NewDOCExtractor(4, 1<<20, docx, nil)

	out, err := e.Extract(models.RawDocument{
		Bytes:        testutil.BuildDOCX(testutil.DOCXParagraph("Saved as doc")),
		DeclaredKind: models.FileKindDOC,
	})
	require.NoError(t, err)
	assert.Equal(t, "Saved as doc", out.Text)
	assert.NotEmpty(t, out.Warnings)
}

func TestDOCExtractor_NotCompoundFile(t *testing.T) {
	e := NewDOCExtractor(4, 1<<20, NewDOCXExtractor(1<<20), nil)

	out, err := e.Extract(models.RawDocument{Bytes: []byte("just some text pretending to be a doc file")})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExtraction))
}

// compoundDOC lays out wordStreams output as compound file streams under prefix.
func compoundDOC(prefix, text string) []testutil.CompoundStream {
	streams := wordStreams(text, true)
	return []testutil.CompoundStream{
		{Path: prefix + "WordDocument", Data: streams["WordDocument"]},
		{Path: prefix + "1Table", Data: streams["1Table"]},
	}
}

func TestDOCExtractor_CompoundFile(t *testing.T) {
	brokenTable := compoundDOC("", "Fallback body text")[:1]

	brokenIdent := compoundDOC("", "Scanned despite bad header")
	brokenIdent[0].Data = append([]byte(nil), brokenIdent[0].Data...)
	binary.LittleEndian.PutUint16(brokenIdent[0].Data, 0x0000)

	tests := []struct {
		name         string
		streams      []testutil.CompoundStream
		maxBytes     int64
		want         string
		wantWarnings bool
	}{
		{
			name:    "piece table",
			streams: compoundDOC("", "Hello\rWorld"),
			want:    "Hello\nWorld",
		},
		{
			name:    "embedded object after main document",
			streams: append(compoundDOC("", "Main body"), compoundDOC("ObjectPool/_123/", "Embedded note")...),
			want:    "Main body",
		},
		{
			name:    "embedded object before main document",
			streams: append(compoundDOC("ObjectPool/_123/", "Embedded note"), compoundDOC("", "Main body")...),
			want:    "Main body",
		},
		{
			name:     "embedded streams do not count toward limit",
			streams:  append(compoundDOC("", "Main body"), compoundDOC("ObjectPool/_9/", "Embedded note")...),
			maxBytes: 2 * 4096,
			want:     "Main body",
		},
		{
			name:         "missing table stream falls back to scan",
			streams:      brokenTable,
			want:         "Fallback body text",
			wantWarnings: true,
		},
		{
			name:         "bad word ident falls back to scan",
			streams:      brokenIdent,
			want:         "Scanned despite bad header",
			wantWarnings: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			e := NewDOCExtractor(4, maxBytes, NewDOCXExtractor(1<<20), nil)

			out, err := e.Extract(models.RawDocument{
				Bytes:        testutil.BuildCompoundFile(tt.streams...),
				DeclaredKind: models.FileKindDOC,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
			if tt.wantWarnings {
				assert.NotEmpty(t, out.Warnings)
			} else {
				assert.Empty(t, out.Warnings)
			}
		})
	}
}

func TestDOCExtractor_OnlyEmbeddedWordDocument(t *testing.T) {
	e := NewDOCExtractor(4, 1<<20, NewDOCXExtractor(1<<20), nil)

	out, err := e.Extract(models.RawDocument{
		Bytes: testutil.BuildCompoundFile(compoundDOC("ObjectPool/_123/", "Embedded note")...),
	})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExtraction))
	assert.Contains(t, err.Error(), "WordDocument stream not found")
}

func TestDOCExtractor_StreamLimit(t *testing.T) {
	e := NewDOCExtractor(4, 4096, NewDOCXExtractor(1<<20), nil)

	_, err := e.Extract(models.RawDocument{Bytes: testutil.BuildCompoundFile(compoundDOC("", "Main body")...)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExtraction))
}
