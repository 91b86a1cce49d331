package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contextDoc struct {
	Context   string `json:"context"`
	UpdatedAt string `json:"updatedAt"`
}

func TestInMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if _, ok, err := s.Get(ctx, KeyAdditionalContext); err != nil || ok {
		t.Fatalf("Get(empty) ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	require.NoError(t, s.Set(ctx, KeyAdditionalContext, contextDoc{Context: "likes hiking"}))
	got, err := ReadOrDefault(ctx, s, KeyAdditionalContext, contextDoc{})
	require.NoError(t, err)
	assert.Equal(t, "likes hiking", got.Context)

	require.NoError(t, s.Set(ctx, KeyAdditionalContext, contextDoc{Context: "second"}))
	got, err = ReadOrDefault(ctx, s, KeyAdditionalContext, contextDoc{})
	require.NoError(t, err)
	assert.Equal(t, "second", got.Context, "last writer wins")
}

func TestMalformedDocumentReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	s.SetRaw(KeyVoiceConfig, []byte("{not json"))

	_, ok, err := s.Get(ctx, KeyVoiceConfig)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := ReadOrDefault(ctx, s, KeyVoiceConfig, contextDoc{Context: "fallback"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got.Context)
}

func TestReadOrDefaultTypeMismatchUsesFallback(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Set(ctx, KeyAdditionalContext, []int{1, 2, 3}))

	got, err := ReadOrDefault(ctx, s, KeyAdditionalContext, contextDoc{Context: "fallback"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got.Context)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (json.RawMessage, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) Set(context.Context, string, any) error { return errors.New("backend down") }
func (failingStore) Close() error                           { return nil }

func TestReadOrDefaultReportsBackendError(t *testing.T) {
	got, err := ReadOrDefault(context.Background(), failingStore{}, KeyAdditionalContext, contextDoc{Context: "fallback"})
	if err == nil {
		t.Fatalf("ReadOrDefault() error = nil, want backend error")
	}
	if got.Context != "fallback" {
		t.Fatalf("ReadOrDefault() value = %q, want fallback", got.Context)
	}
}

func TestInvalidKeyRejected(t *testing.T) {
	s := NewInMemoryStore()
	for _, key := range []string{"", "  ", "../etc", "a/b"} {
		if err := s.Set(context.Background(), key, "x"); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Set(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestFileStoreUsesLegacyNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, KeyAdditionalContext, contextDoc{Context: "ctx"}))
	require.NoError(t, s.Set(ctx, KeyVoiceConfig, map[string]any{"selectedVoice": "nova"}))
	require.NoError(t, s.Set(ctx, "other", map[string]any{"a": 1}))

	for _, name := range []string{"ai-context.json", "voice-config.json", "other.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s on disk: %v", name, err)
		}
	}

	raw, ok, err := s.Get(ctx, KeyVoiceConfig)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"selectedVoice":"nova"}`, string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestFileStoreMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, KeyAdditionalContext)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ai-context.json"), []byte("garbage"), 0o644))
	_, ok, err = s.Get(ctx, KeyAdditionalContext)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewStoreDefaultsToFile(t *testing.T) {
	s, name, err := NewStore(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "file", name)
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("NewStore() = %T, want *FileStore", s)
	}
}
