package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one canned reply.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

func TextResponse(text string) MockResponse {
	return MockResponse{Content: json.RawMessage(text)}
}

// MockProvider serves canned replies in order and records every request.
// When the queue is empty it answers with Fallback, or reports itself
// unavailable if Fallback is nil.
type MockProvider struct {
	Fallback func(Request) MockResponse

	mu      sync.Mutex
	queue   []MockResponse
	history []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{queue: responses}
}

const offlineReply = "The tutor is running offline (llm.provider is \"mock\"). Set an API key for Anthropic, OpenAI, Gemini or OpenRouter to get real answers."

// NewOfflineProvider answers every plain-text request with a fixed notice.
// Structured requests fail as unavailable.
func NewOfflineProvider() *MockProvider {
	m := NewMockProvider()
	m.Fallback = func(req Request) MockResponse {
		if req.Schema != nil {
			return MockResponse{Err: &ErrProviderUnavailable{}}
		}
		return TextResponse(offlineReply)
	}
	return m
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.history = append(m.history, req)
	var next MockResponse
	switch {
	case len(m.queue) > 0:
		next, m.queue = m.queue[0], m.queue[1:]
	case m.Fallback != nil:
		next = m.Fallback(req)
	default:
		next = MockResponse{Err: &ErrProviderUnavailable{}}
	}
	m.mu.Unlock()

	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// LastCall returns the most recent request, or false if none was made.
func (m *MockProvider) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Request{}, false
	}
	return m.history[len(m.history)-1], true
}
