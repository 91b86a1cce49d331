package voice

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khelan-mehta/avatar-backend/internal/store"
)

func strPtr(s string) *string { return &s }

func TestNormalizeSpeed(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{nil, 1.0},
		{"1.5", 1.0},
		{true, 1.0},
		{0.1, 1.0},
		{4.01, 1.0},
		{math.NaN(), 1.0},
		{0.25, 0.25},
		{4.0, 4.0},
		{1.75, 1.75},
		{2, 2.0},
	}
	for _, tc := range cases {
		if got := NormalizeSpeed(tc.in); got != tc.want {
			t.Fatalf("NormalizeSpeed(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestResolveForSynthesisCoercesInvalidValues(t *testing.T) {
	got := ResolveForSynthesis(Config{SelectedVoice: "darth", Speed: 9})
	assert.Equal(t, DefaultVoice, got.SelectedVoice)
	assert.Equal(t, DefaultSpeed, got.Speed)

	got = ResolveForSynthesis(Config{SelectedVoice: "nova", Speed: 0.5})
	assert.Equal(t, "nova", got.SelectedVoice)
	assert.Equal(t, 0.5, got.Speed)
}

func TestResolveForSaveRejectsUnknownVoice(t *testing.T) {
	_, err := ResolveForSave(DefaultConfig(), strPtr("darth"), nil)
	if !errors.Is(err, ErrInvalidVoice) {
		t.Fatalf("ResolveForSave() error = %v, want ErrInvalidVoice", err)
	}
}

func TestResolveForSaveCoercesSpeedAndKeepsOmittedFields(t *testing.T) {
	current := Config{SelectedVoice: "echo", Speed: 1.5}

	got, err := ResolveForSave(current, nil, "fast")
	require.NoError(t, err)
	assert.Equal(t, "echo", got.SelectedVoice)
	assert.Equal(t, DefaultSpeed, got.Speed)

	got, err = ResolveForSave(current, strPtr("shimmer"), nil)
	require.NoError(t, err)
	assert.Equal(t, "shimmer", got.SelectedVoice)
	assert.Equal(t, 1.5, got.Speed)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	saved, err := SaveConfig(ctx, s, strPtr("fable"), 0.75, now)
	require.NoError(t, err)
	require.NotNil(t, saved.UpdatedAt)

	loaded, err := LoadConfig(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "fable", loaded.SelectedVoice)
	assert.Equal(t, 0.75, loaded.Speed)
	require.NotNil(t, loaded.UpdatedAt)
	assert.True(t, loaded.UpdatedAt.Equal(now))
}

func TestSaveInvalidVoiceDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	_, err := SaveConfig(ctx, s, strPtr("robot"), 2.0, time.Now())
	require.ErrorIs(t, err, ErrInvalidVoice)

	_, ok, err := s.Get(ctx, store.KeyVoiceConfig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadConfigCoercesFieldsIndependently(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	s.SetRaw(store.KeyVoiceConfig, []byte(`{"selectedVoice":"nova","speed":"loud","updatedAt":"yesterday"}`))
	got, err := LoadConfig(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "nova", got.SelectedVoice)
	assert.Equal(t, DefaultSpeed, got.Speed)
	assert.Nil(t, got.UpdatedAt)

	s.SetRaw(store.KeyVoiceConfig, []byte(`{"selectedVoice":42,"speed":2.5}`))
	got, err = LoadConfig(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, DefaultVoice, got.SelectedVoice)
	assert.Equal(t, 2.5, got.Speed)

	s.SetRaw(store.KeyVoiceConfig, []byte(`not json`))
	got, err = LoadConfig(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)
}

func TestLabel(t *testing.T) {
	if got := Label("shimmer"); got != "Shimmer" {
		t.Fatalf("Label() = %q, want Shimmer", got)
	}
	if len(Voices()) != 6 {
		t.Fatalf("len(Voices()) = %d, want 6", len(Voices()))
	}
}
