// handlers_history.go - Extraction history handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/textextract/backend/internal/models"
	"github.com/textextract/backend/internal/storage"
)

// HistoryHandlerImpl implements the HistoryHandler interface
type HistoryHandlerImpl struct {
	history      HistoryRecorder
	defaultLimit int
}

// NewHistoryHandler creates a history handler. A nil history answers 503.
func NewHistoryHandler(history HistoryRecorder, defaultLimit int) HistoryHandler {
	if defaultLimit <= 0 || defaultLimit > storage.MaxHistoryLimit {
		defaultLimit = 50
	}
	return &HistoryHandlerImpl{history: history, defaultLimit: defaultLimit}
}

type historyResponse struct {
	Entries []models.HistoryEntry `json:"entries" msgpack:"entries"`
	Count   int                   `json:"count" msgpack:"count"`
}

// HandleRecentExtractions lists the most recent runs, newest first
func (h *HistoryHandlerImpl) HandleRecentExtractions(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("extraction history is disabled")
	}

	limit := h.defaultLimit
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > storage.MaxHistoryLimit {
			return NewBadRequestError(fmt.Sprintf("limit must be between 1 and %d", storage.MaxHistoryLimit), nil)
		}
		limit = n
	}

	entries, err := h.history.Recent(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to load extraction history", err)
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return respond(c, http.StatusOK, historyResponse{Entries: entries, Count: len(entries)})
}
