// Package pipeline runs a single extraction request from URL to persisted text.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/textextract/backend/internal/extractor"
	"github.com/textextract/backend/internal/models"
)

// Fetcher retrieves raw document bytes.
type Fetcher interface {
	Fetch(ctx context.Context, documentURL string) ([]byte, error)
}

// Persister writes extracted text to the record store.
type Persister interface {
	Persist(ctx context.Context, recordID, text string, status models.Status) error
}

// Coordinator drives classification, fetch, extraction and persistence for a
// request. It holds no per-request state and is safe for concurrent use.
type Coordinator struct {
	fetcher   Fetcher
	persister Persister
	registry  *extractor.Registry
	logger    *slog.Logger
	now       func() time.Time
}

// NewCoordinator creates a coordinator. A nil persister disables persistence.
func NewCoordinator(fetcher Fetcher, persister Persister, registry *extractor.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher:   fetcher,
		persister: persister,
		registry:  registry,
		logger:    logger.With("component", "pipeline"),
		now:       time.Now,
	}
}

// Run executes the pipeline and always returns a well-formed report. The
// result is never altered by the outcome of persistence.
func (c *Coordinator) Run(ctx context.Context, req models.ExtractionRequest) models.RunReport {
	start := c.now()
	log := c.logger.With("request_id", requestID(ctx))

	report := c.run(ctx, req, log)
	report.Duration = c.now().Sub(start)

	log.Info("extraction finished",
		"file_type", report.Result.FileKind,
		"status", report.Result.Status,
		"stage", report.Stage,
		"updated", report.Persistence.Updated,
		"text_length", len(report.Result.Text),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

func (c *Coordinator) run(ctx context.Context, req models.ExtractionRequest, log *slog.Logger) models.RunReport {
	if err := req.Validate(); err != nil {
		return errored(models.Failed(models.FileKindUnknown, err), log)
	}

	kind := extractor.Classify(req.DocumentURL, req.ContentType)
	log.Debug("stage", "stage", models.StageClassified, "file_type", kind)

	strategy, err := c.registry.Get(kind)
	if err != nil {
		return errored(models.Failed(models.FileKindUnknown, models.AsPipelineError(err, models.ErrUnsupportedFormat)), log)
	}

	data, err := c.fetcher.Fetch(ctx, req.DocumentURL)
	if err != nil {
		return errored(models.Failed(kind, models.AsPipelineError(err, models.ErrFetch)), log)
	}
	log.Debug("stage", "stage", models.StageFetched, "bytes", len(data))

	out, err := extract(strategy, models.RawDocument{Bytes: data, DeclaredKind: kind})

	pe := models.AsPipelineError(err, models.ErrExtraction)
	if pe.Fatal() || out == nil {
		return errored(models.Failed(kind, pe), log)
	}
	result := models.Succeeded(kind, out.Text)
	if pe != nil {
		result = models.Partial(kind, out.Text, pe)
	}
	log.Debug("stage", "stage", models.StageExtracted, "status", result.Status, "units", out.Units, "failed_units", out.FailedUnits)
	for _, w := range out.Warnings {
		log.Debug("extraction warning", "warning", w)
	}

	report := models.RunReport{Result: result, Stage: models.StageDone}
	if req.RecordID == "" {
		log.Debug("no record id, skipping persistence")
		return report
	}

	report.Persistence = c.persist(ctx, req.RecordID, result, log)
	return report
}

func (c *Coordinator) persist(ctx context.Context, recordID string, result models.ExtractionResult, log *slog.Logger) models.PersistenceOutcome {
	if c.persister == nil {
		return models.PersistenceOutcome{Err: models.NewPersistenceError("record store is not configured", nil)}
	}
	if err := c.persister.Persist(ctx, recordID, result.Text, result.Status); err != nil {
		pe := models.AsPipelineError(err, models.ErrPersistence)
		log.Warn("persistence failed", "record_id", recordID, "error", err)
		return models.PersistenceOutcome{Err: pe}
	}
	log.Debug("stage", "stage", models.StagePersisted, "record_id", recordID)
	return models.PersistenceOutcome{Updated: true}
}

// extract runs a strategy, converting a panic into an ExtractionError.
func extract(strategy extractor.Extractor, doc models.RawDocument) (out *extractor.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = models.NewExtractionError(fmt.Sprintf("%s strategy panicked", strategy.Kind()), fmt.Errorf("%v", r))
		}
	}()
	out, err = strategy.Extract(doc)
	if err == nil && out == nil {
		out = &extractor.Output{}
	}
	return out, err
}

func errored(result models.ExtractionResult, log *slog.Logger) models.RunReport {
	log.Debug("stage", "stage", models.StageErrored, "code", result.Err.Code(), "error", result.Err)
	return models.RunReport{Result: result, Stage: models.StageErrored}
}

type requestIDKey struct{}

// WithRequestID attaches a request id used to correlate log lines of a run.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
