package models

import "time"

// HistoryEntry records one completed pipeline run.
type HistoryEntry struct {
	ID           string    `json:"id" msgpack:"id"`
	RecordID     string    `json:"recordId,omitempty" msgpack:"recordId,omitempty"`
	DocumentURL  string    `json:"documentUrl" msgpack:"documentUrl"`
	FileKind     FileKind  `json:"fileKind" msgpack:"fileKind"`
	Status       Status    `json:"status" msgpack:"status"`
	ErrorCode    string    `json:"errorCode,omitempty" msgpack:"errorCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty" msgpack:"errorMessage,omitempty"`
	TextLength   int       `json:"textLength" msgpack:"textLength"`
	Updated      bool      `json:"updated" msgpack:"updated"`
	DurationMs   int64     `json:"durationMs" msgpack:"durationMs"`
	CreatedAt    time.Time `json:"createdAt" msgpack:"createdAt"`
}

// NewHistoryEntry summarizes a run report. The extracted text itself is not kept.
func NewHistoryEntry(id string, req ExtractionRequest, report RunReport, at time.Time) HistoryEntry {
	entry := HistoryEntry{
		ID:          id,
		RecordID:    req.RecordID,
		DocumentURL: req.DocumentURL,
		FileKind:    report.Result.FileKind,
		Status:      report.Result.Status,
		TextLength:  len(report.Result.Text),
		Updated:     report.Persistence.Updated,
		DurationMs:  report.Duration.Milliseconds(),
		CreatedAt:   at,
	}
	if err := report.Result.Err; err != nil {
		entry.ErrorCode = err.Code()
		entry.ErrorMessage = err.Message
	}
	return entry
}
