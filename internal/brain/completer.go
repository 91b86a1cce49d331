package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the speaker of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the normalized request sent to a language model.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []Turn
	MaxTokens    int
	Temperature  float32
}

// ErrUpstreamUnavailable wraps every failure reported by a model backend.
var ErrUpstreamUnavailable = errors.New("language model unavailable")

// Completer produces a single assistant reply. An empty string means the model
// returned no content.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Config controls completer construction.
type Config struct {
	Mode    string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewCompleter returns the completer for cfg.Mode. Mode "auto" yields an OpenAI
// completer when a key is present and nil otherwise, leaving the caller to take
// its unconfigured path.
func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, nil
		}
		return NewOpenAICompleter(cfg)
	case "openai":
		return NewOpenAICompleter(cfg)
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported completer mode %q", cfg.Mode)
	}
}
