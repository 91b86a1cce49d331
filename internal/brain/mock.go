package brain

import (
	"context"
	"sync"
)

// MockCompleter returns scripted replies and records every request.
type MockCompleter struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	requests []CompletionRequest
}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{Reply: "I'm running in mock mode right now."}
}

func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Requests returns a copy of the requests seen so far.
func (m *MockCompleter) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}
