// handlers_health.go - Health check and service info handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/textextract/backend/internal/models"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
	})
}

// InfoHandlerImpl implements the InfoHandler interface
type InfoHandlerImpl struct {
	version string
	kinds   []models.FileKind
}

// NewInfoHandler creates a handler that reports the given supported kinds
func NewInfoHandler(version string, kinds []models.FileKind) InfoHandler {
	return &InfoHandlerImpl{version: version, kinds: kinds}
}

type serviceInfo struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	SupportedFormats []string          `json:"supported_formats"`
	Endpoints        map[string]string `json:"endpoints"`
}

// HandleInfo returns the service name, supported formats and endpoints
func (h *InfoHandlerImpl) HandleInfo(c echo.Context) error {
	formats := make([]string, 0, len(h.kinds))
	for _, k := range h.kinds {
		formats = append(formats, "."+string(k))
	}
	return c.JSON(http.StatusOK, serviceInfo{
		Name:             "Text Extraction Service",
		Version:          h.version,
		SupportedFormats: formats,
		Endpoints: map[string]string{
			"extract": "POST /extract-text",
			"history": "GET /api/extractions",
			"health":  "GET /health",
		},
	})
}
