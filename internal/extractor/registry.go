package extractor

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/textextract/backend/internal/models"
)

// Options tunes the built-in strategies.
type Options struct {
	PDFPageSeparator     string
	DOCMinRunLength      int
	MaxDecompressedBytes int64
	Logger               *slog.Logger
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		PDFPageSeparator:     "\n",
		DOCMinRunLength:      4,
		MaxDecompressedBytes: 64 << 20,
	}
}

// Registry holds the extraction strategy for each supported FileKind.
type Registry struct {
	extractors map[models.FileKind]Extractor
}

// NewRegistry creates a registry with the PDF, DOCX, DOC and TXT strategies.
func NewRegistry(opts Options) *Registry {
	def := DefaultOptions()
	if opts.PDFPageSeparator == "" {
		opts.PDFPageSeparator = def.PDFPageSeparator
	}
	if opts.DOCMinRunLength <= 0 {
		opts.DOCMinRunLength = def.DOCMinRunLength
	}
	if opts.MaxDecompressedBytes <= 0 {
		opts.MaxDecompressedBytes = def.MaxDecompressedBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "extractor")

	docx := NewDOCXExtractor(opts.MaxDecompressedBytes)
	r := &Registry{extractors: make(map[models.FileKind]Extractor)}
	r.Register(NewPDFExtractor(opts.PDFPageSeparator, logger))
	r.Register(docx)
	r.Register(NewDOCExtractor(opts.DOCMinRunLength, opts.MaxDecompressedBytes, docx, logger))
	r.Register(NewTXTExtractor())
	return r
}

// Register adds or replaces the strategy for e.Kind().
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Kind()] = e
}

// Get returns the strategy for kind, or an UnsupportedFormatError. Kinds
// outside the supported set are rejected even if a strategy was registered.
func (r *Registry) Get(kind models.FileKind) (Extractor, error) {
	e, ok := r.extractors[kind]
	if !ok || !kind.Supported() {
		return nil, models.NewUnsupportedFormatError(
			fmt.Sprintf("unsupported file type %q; supported: PDF, DOCX, DOC, TXT", kind.String()))
	}
	return e, nil
}

// Kinds returns the registered, supported kinds in a stable order.
func (r *Registry) Kinds() []models.FileKind {
	kinds := make([]models.FileKind, 0, len(r.extractors))
	for k := range r.extractors {
		if k.Supported() {
			kinds = append(kinds, k)
		}
	}
	order := make(map[models.FileKind]int, len(models.SupportedFileKinds))
	for i, k := range models.SupportedFileKinds {
		order[k] = i
	}
	sort.Slice(kinds, func(i, j int) bool {
		oi, iok := order[kinds[i]]
		oj, jok := order[kinds[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}
