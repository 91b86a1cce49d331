package voice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/khelan-mehta/avatar-backend/internal/observability"
	"github.com/khelan-mehta/avatar-backend/internal/policy"
	"github.com/khelan-mehta/avatar-backend/internal/reliability"
	"github.com/khelan-mehta/avatar-backend/internal/store"
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrNotConfigured   = errors.New("tts not configured")
	ErrSynthesisFailed = errors.New("tts generation failed")
)

// SynthesisError carries the upstream failure behind ErrSynthesisFailed.
type SynthesisError struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *SynthesisError) Error() string {
	return ErrSynthesisFailed.Error() + ": " + e.Err.Error()
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesisFailed }

// Detail is a short upstream description safe to show to the caller.
func (e *SynthesisError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// SpeechRequest is a single synthesis call.
type SpeechRequest struct {
	Model string
	Voice string
	Text  string
	Speed float64
}

// SpeechProvider renders text to encoded audio.
type SpeechProvider interface {
	CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// SampleLister reports whether any voice sample is stored.
type SampleLister interface {
	HasSamples(ctx context.Context) (bool, error)
}

// Result is rendered audio plus the settings actually used.
type Result struct {
	Audio       []byte
	Voice       string
	Speed       float64
	Model       string
	ContentType string
}

// VoiceOption is one entry of the voice catalog as shown to the admin UI.
type VoiceOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Description is the read-only view of the current voice setup.
type Description struct {
	Voices    []VoiceOption `json:"voices"`
	Speed     float64       `json:"speed"`
	HasSample bool          `json:"hasSample"`
	Model     string        `json:"model"`
}

// Dispatcher resolves the active voice configuration and calls the speech provider.
type Dispatcher struct {
	provider SpeechProvider
	store    store.Store
	samples  SampleLister
	log      *logger.Logger
	metrics  *observability.Metrics
}

// NewDispatcher builds a dispatcher. A nil provider means no speech credential is configured.
func NewDispatcher(provider SpeechProvider, s store.Store, samples SampleLister, log *logger.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		store:    s,
		samples:  samples,
		log:      log,
		metrics:  metrics,
	}
}

// PrepareText truncates text to MaxTextChars characters and trims surrounding whitespace.
func PrepareText(text string) string {
	runes := []rune(text)
	if len(runes) > MaxTextChars {
		runes = runes[:MaxTextChars]
	}
	return strings.TrimSpace(string(runes))
}

// Synthesize renders text with the stored voice configuration.
func (d *Dispatcher) Synthesize(ctx context.Context, text string) (Result, error) {
	input := PrepareText(text)
	if input == "" {
		d.metrics.IncTTS("empty")
		return Result{}, ErrEmptyText
	}
	if d.provider == nil {
		d.metrics.IncTTS("not_configured")
		return Result{}, ErrNotConfigured
	}

	cfg, err := LoadConfig(ctx, d.store)
	d.metrics.IncStoreOp("get_voice_config", err)
	if err != nil && d.log != nil {
		d.log.Warn("tts: voice config unavailable, using defaults: %v", err)
	}

	start := time.Now()
	audio, err := d.provider.CreateSpeech(ctx, SpeechRequest{
		Model: Model,
		Voice: cfg.SelectedVoice,
		Text:  input,
		Speed: cfg.Speed,
	})
	d.metrics.ObserveStage(observability.StageTTSSynthesis, time.Since(start))
	if err != nil {
		code, retryable := reliability.Classify(err)
		d.metrics.IncProviderError("openai_tts", code)
		d.metrics.IncTTS("failed")
		if d.log != nil {
			d.log.Error("tts: synthesis failed voice=%s code=%s: %s", cfg.SelectedVoice, code, policy.Preview(err.Error(), 200))
		}
		return Result{}, &SynthesisError{Code: code, Retryable: retryable, Err: err}
	}

	d.metrics.IncTTS("ok")
	return Result{
		Audio:       audio,
		Voice:       cfg.SelectedVoice,
		Speed:       cfg.Speed,
		Model:       Model,
		ContentType: ContentType,
	}, nil
}

// DescribeConfig reports the catalog, the active selection and whether samples exist.
// Every call re-reads storage.
func (d *Dispatcher) DescribeConfig(ctx context.Context) (Description, error) {
	cfg, err := LoadConfig(ctx, d.store)
	d.metrics.IncStoreOp("get_voice_config", err)
	if err != nil && d.log != nil {
		d.log.Warn("tts: voice config unavailable, using defaults: %v", err)
	}

	hasSample := false
	if d.samples != nil {
		hasSample, err = d.samples.HasSamples(ctx)
		d.metrics.IncStoreOp("list_samples", err)
		if err != nil {
			return Description{}, err
		}
	}

	options := make([]VoiceOption, 0, len(voices))
	for _, id := range voices {
		options = append(options, VoiceOption{
			ID:       id,
			Label:    Label(id),
			Selected: id == cfg.SelectedVoice,
		})
	}
	return Description{
		Voices:    options,
		Speed:     cfg.Speed,
		HasSample: hasSample,
		Model:     Model,
	}, nil
}

// Configured reports whether a speech provider is available.
func (d *Dispatcher) Configured() bool {
	return d.provider != nil
}

// LoadConfig returns the active, coerced voice configuration.
func (d *Dispatcher) LoadConfig(ctx context.Context) (Config, error) {
	return LoadConfig(ctx, d.store)
}

// SaveConfig validates and persists a voice configuration update.
func (d *Dispatcher) SaveConfig(ctx context.Context, voice *string, speed any) (Config, error) {
	cfg, err := SaveConfig(ctx, d.store, voice, speed, time.Now())
	if !errors.Is(err, ErrInvalidVoice) {
		d.metrics.IncStoreOp("set_voice_config", err)
	}
	return cfg, err
}
