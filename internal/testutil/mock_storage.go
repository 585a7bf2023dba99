// mock_storage.go - Mock record store and history implementations for testing
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/textextract/backend/internal/models"
)

// PersistCall records one Persist invocation.
type PersistCall struct {
	RecordID string
	Text     string
	Status   models.Status
}

// MockPersister implements pipeline.Persister for testing
type MockPersister struct {
	mu    sync.Mutex
	calls []PersistCall

	// Err, when set, is returned from every Persist call.
	Err error
}

// NewMockPersister creates a persister that accepts every write
func NewMockPersister() *MockPersister {
	return &MockPersister{}
}

func (m *MockPersister) Persist(ctx context.Context, recordID, text string, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, PersistCall{RecordID: recordID, Text: text, Status: status})
	if m.Err != nil {
		return m.Err
	}
	return ctx.Err()
}

// Calls returns a copy of the recorded calls.
func (m *MockPersister) Calls() []PersistCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PersistCall(nil), m.calls...)
}

// MockHistory is an in-memory extraction history.
type MockHistory struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
	closed  bool

	RecordErr error
	RecentErr error
}

func NewMockHistory() *MockHistory {
	return &MockHistory{}
}

func (m *MockHistory) Record(ctx context.Context, entry models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordErr != nil {
		return m.RecordErr
	}
	if m.closed {
		return errors.New("history closed")
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockHistory) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.RecentErr != nil {
		return nil, m.RecentErr
	}

	list := append([]models.HistoryEntry(nil), m.entries...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MockHistory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Entries returns every recorded entry in insertion order.
func (m *MockHistory) Entries() []models.HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.HistoryEntry(nil), m.entries...)
}
