package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAISpeech renders speech through the OpenAI audio API.
type OpenAISpeech struct {
	client *openai.Client
}

func NewOpenAISpeech(apiKey, baseURL string, timeout time.Duration) (*OpenAISpeech, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAISpeech{client: openai.NewClientWithConfig(cfg)}, nil
}

func (s *OpenAISpeech) CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech audio: %w", err)
	}
	return audio, nil
}
