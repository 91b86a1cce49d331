package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khelan-mehta/avatar-backend/internal/store"
)

type fakeSamples struct {
	has bool
	err error
}

func (f *fakeSamples) HasSamples(context.Context) (bool, error) { return f.has, f.err }

func TestSynthesizeEmptyTextMakesNoProviderCall(t *testing.T) {
	mock := &MockSpeech{Audio: []byte("mp3")}
	d := NewDispatcher(mock, store.NewInMemoryStore(), nil, nil, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := d.Synthesize(context.Background(), text)
		if !errors.Is(err, ErrEmptyText) {
			t.Fatalf("Synthesize(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
	if n := len(mock.Requests()); n != 0 {
		t.Fatalf("provider calls = %d, want 0", n)
	}
}

func TestSynthesizeNotConfigured(t *testing.T) {
	d := NewDispatcher(nil, store.NewInMemoryStore(), nil, nil, nil)
	_, err := d.Synthesize(context.Background(), "Hello world")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Synthesize() error = %v, want ErrNotConfigured", err)
	}
}

func TestSynthesizeUsesStoredConfig(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	_, err := SaveConfig(ctx, s, strPtr("nova"), 1.25, time.Now())
	require.NoError(t, err)

	mock := &MockSpeech{Audio: []byte("mp3-bytes")}
	d := NewDispatcher(mock, s, nil, nil, nil)

	res, err := d.Synthesize(ctx, "  Hello world  ")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), res.Audio)
	assert.Equal(t, "nova", res.Voice)
	assert.Equal(t, 1.25, res.Speed)
	assert.Equal(t, Model, res.Model)
	assert.Equal(t, "audio/mpeg", res.ContentType)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, SpeechRequest{Model: "tts-1-hd", Voice: "nova", Text: "Hello world", Speed: 1.25}, reqs[0])
}

func TestSynthesizeCorruptConfigUsesDefaults(t *testing.T) {
	s := store.NewInMemoryStore()
	s.SetRaw(store.KeyVoiceConfig, []byte(`{"selectedVoice":"darth","speed":12}`))
	mock := &MockSpeech{Audio: []byte("x")}
	d := NewDispatcher(mock, s, nil, nil, nil)

	res, err := d.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "onyx", res.Voice)
	assert.Equal(t, 1.0, res.Speed)
}

func TestSynthesizeTruncatesBeforeTrim(t *testing.T) {
	mock := &MockSpeech{Audio: []byte("x")}
	d := NewDispatcher(mock, store.NewInMemoryStore(), nil, nil, nil)

	long := strings.Repeat("é", MaxTextChars-1) + "  tail"
	_, err := d.Synthesize(context.Background(), long)
	require.NoError(t, err)
	got := mock.Requests()[0].Text
	assert.Equal(t, strings.Repeat("é", MaxTextChars-1), got)

	_, err = d.Synthesize(context.Background(), strings.Repeat(" ", MaxTextChars)+"hidden")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestSynthesizeProviderFailure(t *testing.T) {
	mock := &MockSpeech{Err: errors.New("quota exceeded")}
	d := NewDispatcher(mock, store.NewInMemoryStore(), nil, nil, nil)

	_, err := d.Synthesize(context.Background(), "Hello")
	require.ErrorIs(t, err, ErrSynthesisFailed)
	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "quota exceeded", synthErr.Detail())
}

func TestDescribeConfig(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	samples := &fakeSamples{}
	d := NewDispatcher(nil, s, samples, nil, nil)

	first, err := d.DescribeConfig(ctx)
	require.NoError(t, err)
	second, err := d.DescribeConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, first.HasSample)
	assert.Equal(t, "tts-1-hd", first.Model)
	assert.Equal(t, 1.0, first.Speed)
	require.Len(t, first.Voices, 6)
	for _, v := range first.Voices {
		assert.Equal(t, v.ID == "onyx", v.Selected, v.ID)
	}
	assert.Equal(t, "Alloy", first.Voices[0].Label)

	samples.has = true
	_, err = d.SaveConfig(ctx, strPtr("echo"), 3.0)
	require.NoError(t, err)
	third, err := d.DescribeConfig(ctx)
	require.NoError(t, err)
	assert.True(t, third.HasSample)
	assert.Equal(t, 3.0, third.Speed)
	assert.True(t, third.Voices[1].Selected)
}

func TestDescribeConfigSampleError(t *testing.T) {
	d := NewDispatcher(nil, store.NewInMemoryStore(), &fakeSamples{err: errors.New("nats down")}, nil, nil)
	if _, err := d.DescribeConfig(context.Background()); err == nil {
		t.Fatalf("DescribeConfig() error = nil, want sample listing error")
	}
}

func TestOpenAISpeechCreateSpeech(t *testing.T) {
	var gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %q, want /v1/audio/speech", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer ts.Close()

	p, err := NewOpenAISpeech("sk-test", ts.URL+"/v1", 5*time.Second)
	require.NoError(t, err)

	audio, err := p.CreateSpeech(context.Background(), SpeechRequest{Model: Model, Voice: "onyx", Text: "Hello", Speed: 1.5})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-audio"), audio)
	assert.Contains(t, gotBody, `"model":"tts-1-hd"`)
	assert.Contains(t, gotBody, `"voice":"onyx"`)
	assert.Contains(t, gotBody, `"speed":1.5`)
}

func TestOpenAISpeechProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer ts.Close()

	p, err := NewOpenAISpeech("sk-test", ts.URL+"/v1", 0)
	require.NoError(t, err)

	d := NewDispatcher(p, store.NewInMemoryStore(), nil, nil, nil)
	_, err = d.Synthesize(context.Background(), "Hello")
	require.ErrorIs(t, err, ErrSynthesisFailed)
	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "server_error", synthErr.Code)
	assert.True(t, synthErr.Retryable)
	assert.Contains(t, synthErr.Detail(), "upstream exploded")
}
