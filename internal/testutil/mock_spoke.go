// Package testutil provides a fake atSpoke API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

// TestAPIKey is the key MockSpoke accepts unless told otherwise.
const TestAPIKey = "fake_api_key"

// MockResponse overrides the response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
}

// RecordedRequest is one call the mock received.
type RecordedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
}

// MockSpoke is an httptest server speaking the atSpoke v1 collection API.
// Collections are served with start/limit paging; /webhooks and /whoami
// ignore paging.
type MockSpoke struct {
	server *httptest.Server

	mu          sync.RWMutex
	apiKey      string
	account     any
	collections map[string][]any
	overrides   map[string]MockResponse
	requests    []RecordedRequest
}

// NewMockSpoke starts a mock server that accepts TestAPIKey.
func NewMockSpoke() *MockSpoke {
	m := &MockSpoke{
		apiKey:      TestAPIKey,
		collections: make(map[string][]any),
		overrides:   make(map[string]MockResponse),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the base URL to configure the client with.
func (m *MockSpoke) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSpoke) Close() {
	m.server.Close()
}

// SetAPIKey changes the accepted key.
func (m *MockSpoke) SetAPIKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = key
}

// SetAccount sets the /whoami payload.
func (m *MockSpoke) SetAccount(account any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account = account
}

// SetCollection sets the items served for a collection path such as "/users".
func (m *MockSpoke) SetCollection(path string, items ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[path] = items
}

// SetResponse makes path answer with a fixed status and body.
func (m *MockSpoke) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[path] = resp
}

// Requests returns a copy of every recorded request.
func (m *MockSpoke) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsTo returns the recorded requests for one path.
func (m *MockSpoke) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Reset clears the request log.
func (m *MockSpoke) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

func (m *MockSpoke) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	apiKey := m.apiKey
	override, hasOverride := m.overrides[r.URL.Path]
	account := m.account
	items, hasCollection := m.collections[r.URL.Path]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if hasOverride {
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			_, _ = w.Write([]byte(override.Body))
		}
		return
	}

	if r.Header.Get("Api-Key") != apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
		return
	}

	switch {
	case r.URL.Path == "/whoami":
		writeJSON(w, account)
	case r.URL.Path == "/webhooks":
		writeJSON(w, map[string]any{"results": nonNil(items)})
	case hasCollection:
		writeJSON(w, map[string]any{"results": page(items, r.URL.Query())})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, `{"error":"no route for %s"}`, r.URL.Path)
	}
}

func page(items []any, q url.Values) []any {
	start, err := strconv.Atoi(q.Get("start"))
	if err != nil || start < 0 {
		start = 0
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 25
	}
	if start >= len(items) {
		return []any{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func nonNil(items []any) []any {
	if items == nil {
		return []any{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
