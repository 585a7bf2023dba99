// mock_fetcher.go - Mock document fetcher for testing
package testutil

import (
	"context"
	"sync"

	"github.com/textextract/backend/internal/models"
)

// MockFetcher serves documents from memory keyed by URL.
type MockFetcher struct {
	mu        sync.Mutex
	documents map[string][]byte
	errors    map[string]error
	requested []string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		documents: make(map[string][]byte),
		errors:    make(map[string]error),
	}
}

// Serve registers the body returned for url.
func (m *MockFetcher) Serve(url string, body []byte) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[url] = body
	return m
}

// Fail registers the error returned for url.
func (m *MockFetcher) Fail(url string, err error) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[url] = err
	return m
}

func (m *MockFetcher) Fetch(ctx context.Context, documentURL string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requested = append(m.requested, documentURL)
	if err := ctx.Err(); err != nil {
		return nil, models.NewFetchError("request cancelled", err)
	}
	if err, ok := m.errors[documentURL]; ok {
		return nil, err
	}
	body, ok := m.documents[documentURL]
	if !ok {
		return nil, models.NewFetchError("unexpected status 404", nil)
	}
	return body, nil
}

// Requests returns every URL fetched so far.
func (m *MockFetcher) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requested...)
}
