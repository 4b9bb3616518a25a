// Package testutil provides testing utilities for shelfsync.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock library endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockLibrary is a configurable mock library API server for testing.
type MockLibrary struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount     int
	RequestsByPath   map[string]int
	LastRequestQuery map[string]string
}

// NewMockLibrary creates a new mock library API server.
func NewMockLibrary() *MockLibrary {
	mock := &MockLibrary{
		handlers:       make(map[string]func(w http.ResponseWriter, r *http.Request)),
		RequestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestsByPath[r.URL.Path]++
		query := make(map[string]string)
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		mock.LastRequestQuery = query
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockLibrary) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockLibrary) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockLibrary) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestsByPath = make(map[string]int)
	m.LastRequestQuery = nil
}

// Requests returns the total request count.
func (m *MockLibrary) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestsFor returns the request count for one path.
func (m *MockLibrary) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestsByPath[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockLibrary) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse sets a fixed response for a specific path.
func (m *MockLibrary) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		fmt.Fprint(w, resp.Body)
	})
}

// SetBooks sets a canned book-list response for a path.
// The body follows the standard {"books": [...], "pagination": {...}} shape.
func (m *MockLibrary) SetBooks(path string, booksJSON string, total int) {
	m.SetResponse(path, MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"books":%s,"pagination":{"total":%d}}`, booksJSON, total),
	})
}

// defaultHandler serves an empty list for unknown paths.
func (m *MockLibrary) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"books":[],"pagination":{"total":0}}`)
}
