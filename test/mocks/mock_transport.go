package mocks

import (
	"context"
	"fmt"
	"sync"
)

// TransportCall records one Post made through MockTransport
type TransportCall struct {
	Endpoint string
	Body     []byte
}

// TransportReply is one scripted result
type TransportReply struct {
	Body []byte
	Err  error
}

// MockTransport returns scripted replies in order and captures every call
type MockTransport struct {
	mu      sync.Mutex
	replies []TransportReply
	Calls   []TransportCall
}

// NewMockTransport creates a transport that answers successive calls with bodies
func NewMockTransport(bodies ...string) *MockTransport {
	m := &MockTransport{}
	for _, b := range bodies {
		m.replies = append(m.replies, TransportReply{Body: []byte(b)})
	}
	return m
}

// FailNext queues a transport error after the replies already scripted
func (m *MockTransport) FailNext(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, TransportReply{Err: err})
	return m
}

// Post returns the next scripted reply. Running out of replies is an error.
func (m *MockTransport) Post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, TransportCall{Endpoint: endpoint, Body: append([]byte(nil), body...)})
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("mock transport: unexpected call %d to %s", len(m.Calls), endpoint)
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply.Body, reply.Err
}

// CallCount returns how many posts were made
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
