package store

import (
	"context"
	"encoding/json"
	"sync"
)

// InMemoryStore is a process-local store for tests and throwaway dev runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string][]byte)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := document(s.docs[key])
	return doc, ok, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	b, err := encode(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = b
	return nil
}

// SetRaw stores bytes verbatim, including malformed JSON.
func (s *InMemoryStore) SetRaw(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), raw...)
}

func (s *InMemoryStore) Close() error { return nil }
