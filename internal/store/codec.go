package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

func encode(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !sonic.ConfigDefault.Valid(raw) {
			return nil, fmt.Errorf("encode document: invalid raw JSON")
		}
		return append([]byte(nil), raw...), nil
	}
	b, err := sonic.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// document returns raw as a stored document, or ok=false when it is empty or malformed.
func document(raw []byte) (json.RawMessage, bool) {
	if len(raw) == 0 || !sonic.ConfigDefault.Valid(raw) {
		return nil, false
	}
	return json.RawMessage(append([]byte(nil), raw...)), true
}

// ReadOrDefault decodes the document at key into a T. Absent or malformed documents
// yield fallback with a nil error. A backend failure also yields fallback, and the
// error is returned for the caller to log; the value is always usable.
func ReadOrDefault[T any](ctx context.Context, s Store, key string, fallback T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return fallback, nil
	}
	var out T
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return fallback, nil
	}
	return out, nil
}
