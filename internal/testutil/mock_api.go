// Package testutil provides testing utilities for hubfetch.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockResponse defines the behavior for one mock API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockAPI is a configurable mock GitHub-style API server for testing.
// Each path can carry either a fixed response or a script of responses
// consumed one per request, which makes transient-failure scenarios
// (500 then 200) straightforward to express.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.Mutex
	fixed    map[string]MockResponse
	scripts  map[string][]MockResponse
	consumed map[string]int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		fixed:    make(map[string]MockResponse),
		scripts:  make(map[string][]MockResponse),
		consumed: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and script positions.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.consumed = make(map[string]int)
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[path] = resp
}

// SetScript configures a sequence of responses for a path, consumed one
// per request. Once the script runs out the last response repeats.
func (m *MockAPI) SetScript(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = responses
	m.consumed[path] = 0
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests seen.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ConditionalCount
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" {
		m.ConditionalCount++
	}

	var resp MockResponse
	var found bool
	if script, ok := m.scripts[r.URL.Path]; ok && len(script) > 0 {
		idx := m.consumed[r.URL.Path]
		if idx >= len(script) {
			idx = len(script) - 1
		}
		resp = script[idx]
		m.consumed[r.URL.Path]++
		found = true
	} else if fixed, ok := m.fixed[r.URL.Path]; ok {
		resp = fixed
		found = true
	}
	m.mu.Unlock()

	if !found {
		resp = NewPageResponse(`[]`, "")
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewPageResponse creates a 200 page response with healthy rate limit
// headers. nextURL, when non-empty, is advertised as rel="next".
func NewPageResponse(body, nextURL string) MockResponse {
	headers := map[string]string{
		"X-RateLimit-Remaining": "4900",
		"X-RateLimit-Reset":     "4102444800",
		"Content-Type":          "application/json; charset=utf-8",
	}
	if nextURL != "" {
		headers["Link"] = fmt.Sprintf(`<%s>; rel="next"`, nextURL)
	}

	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    headers,
	}
}

// NewLowQuotaResponse creates a 200 page response whose remaining quota
// is below the default token floor.
func NewLowQuotaResponse(body string, remaining int, resetEpoch int64) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-RateLimit-Remaining": fmt.Sprintf("%d", remaining),
			"X-RateLimit-Reset":     fmt.Sprintf("%d", resetEpoch),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewForbiddenResponse creates a 403 secondary rate-limit response.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "You have exceeded a secondary rate limit"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "4102444800",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "4900",
			"X-RateLimit-Reset":     "4102444800",
		},
	}
}

// NewConditionalHandler returns a fixed response carrying an etag; the
// MockAPI serves it as-is, so pair it with SetScript to emulate a 304 on
// the second request.
func NewConditionalHandler(etag, body string) MockResponse {
	resp := NewPageResponse(body, "")
	resp.Headers["ETag"] = etag
	return resp
}
