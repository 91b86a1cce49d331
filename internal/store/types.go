package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Document keys owned by the configuration store.
const (
	KeyAdditionalContext = "additionalContext"
	KeyVoiceConfig       = "voiceConfig"
)

var ErrInvalidKey = errors.New("invalid document key")

// Store persists small JSON configuration documents by key.
//
// Get reports ok=false for keys that were never written and for documents that are
// not valid JSON; callers own defaulting. Set is last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) (doc json.RawMessage, ok bool, err error)
	Set(ctx context.Context, key string, value any) error
	Close() error
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
