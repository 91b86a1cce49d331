package voice

import (
	"context"
	"sync"
)

// MockSpeech returns fixed audio and records requests.
type MockSpeech struct {
	mu       sync.Mutex
	Audio    []byte
	Err      error
	requests []SpeechRequest
}

func (m *MockSpeech) CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]byte(nil), m.Audio...), nil
}

func (m *MockSpeech) Requests() []SpeechRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SpeechRequest(nil), m.requests...)
}
