// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/textextract/backend/internal/models"
)

// ExtractHandler handles document text extraction
type ExtractHandler interface {
	HandleExtractText(c echo.Context) error
}

// HistoryHandler serves recently completed extractions
type HistoryHandler interface {
	HandleRecentExtractions(c echo.Context) error
}

// InfoHandler describes the service
type InfoHandler interface {
	HandleInfo(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Runner runs the extraction pipeline for one request.
// This allows mocking in tests
type Runner interface {
	Run(ctx context.Context, req models.ExtractionRequest) models.RunReport
}

// HistoryRecorder stores and lists run summaries
type HistoryRecorder interface {
	Record(ctx context.Context, entry models.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}
