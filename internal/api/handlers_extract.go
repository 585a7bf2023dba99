// handlers_extract.go - Document text extraction handler
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/textextract/backend/internal/models"
	"github.com/textextract/backend/internal/pipeline"
)

// ExtractHandlerImpl implements the ExtractHandler interface
type ExtractHandlerImpl struct {
	runner  Runner
	history HistoryRecorder // nil when history is disabled
	logger  *slog.Logger
	now     func() time.Time
}

// NewExtractHandler creates a new extraction handler
func NewExtractHandler(runner Runner, history HistoryRecorder, logger *slog.Logger) ExtractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractHandlerImpl{
		runner:  runner,
		history: history,
		logger:  logger.With("component", "extract_handler"),
		now:     time.Now,
	}
}

type extractTextRequest struct {
	FileURL     string  `json:"file_url"`
	SongID      *string `json:"song_id"`
	ContentType string  `json:"content_type"`
}

func (r *extractTextRequest) validate() error {
	if perr := r.toModel().Validate(); perr != nil {
		return NewValidationError("file_url", perr.Message)
	}
	return nil
}

func (r *extractTextRequest) toModel() models.ExtractionRequest {
	req := models.ExtractionRequest{
		DocumentURL: r.FileURL,
		ContentType: r.ContentType,
	}
	if r.SongID != nil {
		req.RecordID = *r.SongID
	}
	return req
}

type resultError struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

type extractTextResponse struct {
	Text            string       `json:"text" msgpack:"text"`
	Status          string       `json:"status" msgpack:"status"`
	FileType        string       `json:"file_type" msgpack:"file_type"`
	UpdatedSupabase bool         `json:"updated_supabase" msgpack:"updated_supabase"`
	Error           *resultError `json:"error,omitempty" msgpack:"error,omitempty"`
}

func newExtractTextResponse(report models.RunReport) extractTextResponse {
	resp := extractTextResponse{
		Text:            report.Result.Text,
		Status:          string(report.Result.Status),
		FileType:        report.Result.FileKind.String(),
		UpdatedSupabase: report.Persistence.Updated,
	}
	if err := report.Result.Err; err != nil && report.Result.Status != models.StatusSuccess {
		resp.Error = &resultError{Code: err.Code(), Message: err.Message}
	}
	return resp
}

// HandleExtractText fetches the document at file_url, extracts its text and
// writes it to the record named by song_id. Any completed run answers 200;
// only malformed input is rejected.
func (h *ExtractHandlerImpl) HandleExtractText(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read request body", err)
	}
	if apiErr := validateBody(extractTextValidator, raw); apiErr != nil {
		return apiErr
	}

	var req extractTextRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	id := requestID(c)
	if id == "" {
		id = uuid.NewString()
	}
	ctx := pipeline.WithRequestID(c.Request().Context(), id)

	model := req.toModel()
	report := h.runner.Run(ctx, model)
	h.record(ctx, id, model, report)

	return respond(c, http.StatusOK, newExtractTextResponse(report))
}

// record stores a run summary. Failures are logged and never reach the client.
func (h *ExtractHandlerImpl) record(ctx context.Context, id string, req models.ExtractionRequest, report models.RunReport) {
	if h.history == nil {
		return
	}
	entry := models.NewHistoryEntry(id, req, report, h.now().UTC())
	if err := h.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		h.logger.Warn("failed to record extraction history", "request_id", id, "error", err)
	}
}
