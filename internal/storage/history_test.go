// history_test.go - Tests for the DuckDB extraction history
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textextract/backend/internal/models"
)

// createTestHistory opens a history database in a temp directory
func createTestHistory(t *testing.T) (*DuckHistory, string) {
	path := filepath.Join(t.TempDir(), "history", "extractions.duckdb")
	h, err := OpenDuckHistory(path, nil)
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h, path
}

func historyEntry(id string, at time.Time, status models.Status) models.HistoryEntry {
	return models.HistoryEntry{
		ID:          id,
		DocumentURL: "https://host/" + id + ".txt",
		FileKind:    models.FileKindTXT,
		Status:      status,
		TextLength:  10,
		DurationMs:  5,
		CreatedAt:   at,
	}
}

func TestOpenDuckHistory(t *testing.T) {
	_, path := createTestHistory(t)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Expected history database file to be created")
	}
}

func TestDuckHistory_RecordAndRecent(t *testing.T) {
	h, _ := createTestHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	failed := historyEntry("b", base.Add(time.Minute), models.StatusFailure)
	failed.ErrorCode = "FETCH_ERROR"
	failed.ErrorMessage = "unexpected status 404"
	failed.TextLength = 0

	persisted := historyEntry("c", base.Add(2*time.Minute), models.StatusSuccess)
	persisted.RecordID = "s1"
	persisted.Updated = true

	require.NoError(t, h.Record(ctx, historyEntry("a", base, models.StatusSuccess)))
	require.NoError(t, h.Record(ctx, failed))
	require.NoError(t, h.Record(ctx, persisted))

	entries, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "s1", entries[0].RecordID)
	assert.True(t, entries[0].Updated)

	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, models.StatusFailure, entries[1].Status)
	assert.Equal(t, "FETCH_ERROR", entries[1].ErrorCode)
	assert.Equal(t, "unexpected status 404", entries[1].ErrorMessage)
	assert.Empty(t, entries[1].RecordID)

	assert.Equal(t, "a", entries[2].ID)
	assert.Equal(t, models.FileKindTXT, entries[2].FileKind)
	assert.True(t, entries[2].CreatedAt.Equal(base))
}

func TestDuckHistory_RecentLimit(t *testing.T) {
	h, _ := createTestHistory(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Record(ctx, historyEntry(fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Second), models.StatusSuccess)))
	}

	entries, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e4", entries[0].ID)
	assert.Equal(t, "e3", entries[1].ID)
}

func TestDuckHistory_DuplicateID(t *testing.T) {
	h, _ := createTestHistory(t)
	entry := historyEntry("dup", time.Now(), models.StatusSuccess)

	require.NoError(t, h.Record(context.Background(), entry))
	assert.Error(t, h.Record(context.Background(), entry))
}

func TestDuckHistory_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extractions.duckdb")

	h, err := OpenDuckHistory(path, nil)
	require.NoError(t, err)
	require.NoError(t, h.Record(context.Background(), historyEntry("kept", time.Now(), models.StatusSuccess)))
	require.NoError(t, h.Close())

	h, err = OpenDuckHistory(path, nil)
	require.NoError(t, err)
	defer h.Close()

	entries, err := h.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].ID)
}
