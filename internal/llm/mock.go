package llm

import (
	"context"
	"sync"
)

// MockProvider is a scriptable Provider for tests.
type MockProvider struct {
	// ChatFunc, when set, handles every request.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	mu       sync.Mutex
	response string
	err      error
	queue    []*ChatResponse
	requests []ChatRequest
}

// NewMockProvider creates a mock that answers with an empty response.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetResponse sets the text content returned when no queued response remains.
func (m *MockProvider) SetResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = content
}

// SetError makes every unscripted call fail.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// QueueResponse appends a response returned in FIFO order before the default.
func (m *MockProvider) QueueResponse(resp *ChatResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

// Chat implements Provider.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return &ChatResponse{Content: m.response, StopReason: "stop", Model: "mock"}, nil
}

// LastRequest returns the most recent request, or a zero request.
func (m *MockProvider) LastRequest() ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ChatRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// Requests returns a copy of every request received.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}
