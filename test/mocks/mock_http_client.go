package mocks

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// MockHTTPClient is a ports.HTTPClient that captures requests and their bodies
type MockHTTPClient struct {
	mu     sync.Mutex
	DoFunc func(req *http.Request) (*http.Response, error)
	Calls  []*http.Request
	Bodies [][]byte
}

// NewMockHTTPClient creates a mock client. A nil doFunc answers 200 with an empty gateway response.
func NewMockHTTPClient(doFunc func(req *http.Request) (*http.Response, error)) *MockHTTPClient {
	return &MockHTTPClient{DoFunc: doFunc}
}

// Do captures the request and delegates to DoFunc
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.Bodies = append(m.Bodies, body)
	m.mu.Unlock()

	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return XMLResponse(http.StatusOK, `<response><result>00</result></response>`), nil
}

// XMLResponse builds an *http.Response carrying body
func XMLResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"text/xml"}},
	}
}
