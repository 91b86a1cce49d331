package voice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/khelan-mehta/avatar-backend/internal/store"
)

var ErrInvalidVoice = errors.New("invalid voice")

// Config is the persisted voice selection.
type Config struct {
	SelectedVoice string     `json:"selectedVoice"`
	Speed         float64    `json:"speed"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// DefaultConfig is used whenever no usable configuration is stored.
func DefaultConfig() Config {
	return Config{SelectedVoice: DefaultVoice, Speed: DefaultSpeed}
}

// storedConfig decodes each field independently so one bad field does not discard the other.
type storedConfig struct {
	SelectedVoice any `json:"selectedVoice"`
	Speed         any `json:"speed"`
	UpdatedAt     any `json:"updatedAt"`
}

// NormalizeSpeed returns v when it is a number within [MinSpeed, MaxSpeed], else DefaultSpeed.
func NormalizeSpeed(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return DefaultSpeed
	}
	if math.IsNaN(f) || f < MinSpeed || f > MaxSpeed {
		return DefaultSpeed
	}
	return f
}

// ResolveForSynthesis coerces a stored configuration into a usable one. It never fails.
func ResolveForSynthesis(stored Config) Config {
	out := Config{
		SelectedVoice: stored.SelectedVoice,
		Speed:         NormalizeSpeed(stored.Speed),
		UpdatedAt:     stored.UpdatedAt,
	}
	if !IsValidVoice(out.SelectedVoice) {
		out.SelectedVoice = DefaultVoice
	}
	return out
}

// ResolveForSave applies a requested update on top of current. A provided voice must be
// allow-listed; a provided speed is coerced to DefaultSpeed when unusable. Omitted fields
// keep their current values.
func ResolveForSave(current Config, voice *string, speed any) (Config, error) {
	out := ResolveForSynthesis(current)
	if voice != nil {
		if !IsValidVoice(*voice) {
			return Config{}, fmt.Errorf("%w: %q", ErrInvalidVoice, *voice)
		}
		out.SelectedVoice = *voice
	}
	if speed != nil {
		out.Speed = NormalizeSpeed(speed)
	}
	return out, nil
}

// LoadConfig reads the stored configuration and coerces it for synthesis. The returned
// config is always usable; the error reports backend failures only.
func LoadConfig(ctx context.Context, s store.Store) (Config, error) {
	raw, err := store.ReadOrDefault(ctx, s, store.KeyVoiceConfig, storedConfig{})
	var cfg Config
	if ts, ok := raw.UpdatedAt.(string); ok {
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			cfg.UpdatedAt = &t
		}
	}
	if v, ok := raw.SelectedVoice.(string); ok {
		cfg.SelectedVoice = v
	}
	cfg.Speed = NormalizeSpeed(raw.Speed)
	return ResolveForSynthesis(cfg), err
}

// SaveConfig validates and persists an update, returning the stored configuration.
func SaveConfig(ctx context.Context, s store.Store, voice *string, speed any, now time.Time) (Config, error) {
	current, err := LoadConfig(ctx, s)
	if err != nil {
		return Config{}, err
	}
	next, err := ResolveForSave(current, voice, speed)
	if err != nil {
		return Config{}, err
	}
	ts := now.UTC()
	next.UpdatedAt = &ts
	if err := s.Set(ctx, store.KeyVoiceConfig, next); err != nil {
		return Config{}, fmt.Errorf("save voice config: %w", err)
	}
	return next, nil
}
