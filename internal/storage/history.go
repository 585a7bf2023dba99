package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/textextract/backend/internal/models"
)

// HistoryStore defines the interface for the extraction history.
type HistoryStore interface {
	Record(ctx context.Context, entry models.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Close() error
}

// MaxHistoryLimit caps a single Recent query.
const MaxHistoryLimit = 500

// DuckHistory keeps one row per pipeline run in a DuckDB file.
type DuckHistory struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// OpenDuckHistory opens or creates the history database at dbPath.
func OpenDuckHistory(dbPath string, logger *slog.Logger) (*DuckHistory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history")

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS extractions (
			id            VARCHAR PRIMARY KEY,
			record_id     VARCHAR,
			document_url  VARCHAR NOT NULL,
			file_kind     VARCHAR NOT NULL,
			status        VARCHAR NOT NULL,
			error_code    VARCHAR,
			error_message VARCHAR,
			text_length   BIGINT NOT NULL,
			updated       BOOLEAN NOT NULL,
			duration_ms   BIGINT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("extraction history opened", "path", dbPath)
	return &DuckHistory{db: db, dbPath: dbPath, logger: logger}, nil
}

// Record inserts entry.
func (h *DuckHistory) Record(ctx context.Context, entry models.HistoryEntry) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO extractions (id, record_id, document_url, file_kind, status, error_code,
			error_message, text_length, updated, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		nullString(entry.RecordID),
		entry.DocumentURL,
		string(entry.FileKind),
		string(entry.Status),
		nullString(entry.ErrorCode),
		nullString(entry.ErrorMessage),
		int64(entry.TextLength),
		entry.Updated,
		entry.DurationMs,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording extraction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *DuckHistory) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, record_id, document_url, file_kind, status, error_code, error_message,
			text_length, updated, duration_ms, created_at
		FROM extractions
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e                         models.HistoryEntry
			recordID, errCode, errMsg sql.NullString
			fileKind, status          string
			textLength                int64
			createdAt                 time.Time
		)
		if err := rows.Scan(&e.ID, &recordID, &e.DocumentURL, &fileKind, &status, &errCode, &errMsg,
			&textLength, &e.Updated, &e.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.RecordID = recordID.String
		e.ErrorCode = errCode.String
		e.ErrorMessage = errMsg.String
		e.FileKind = models.FileKind(fileKind)
		e.Status = models.Status(status)
		e.TextLength = int(textLength)
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database. The file is kept.
func (h *DuckHistory) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
