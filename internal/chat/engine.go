package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/khelan-mehta/avatar-backend/internal/brain"
	"github.com/khelan-mehta/avatar-backend/internal/observability"
	"github.com/khelan-mehta/avatar-backend/internal/persona"
	"github.com/khelan-mehta/avatar-backend/internal/policy"
	"github.com/khelan-mehta/avatar-backend/internal/reliability"
	"github.com/khelan-mehta/avatar-backend/internal/store"
)

const (
	HistoryWindow    = 10
	MaxReplyTokens   = 500
	ReplyTemperature = float32(0.8)

	// EmptyReply replaces a model answer that carried no content.
	EmptyReply = "Sorry, I couldn't think of a response right now!"
)

// Reply sources, used as metric labels.
const (
	SourceModel        = "model"
	SourceFallback     = "fallback"
	SourceUnconfigured = "unconfigured"
)

var ErrInvalidInput = errors.New("message is required")

// Engine turns a visitor message into an in-character reply.
type Engine struct {
	completer brain.Completer
	store     store.Store
	log       *logger.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewEngine builds an engine. A nil completer means no model credential is configured
// and every reply comes from the fallback table.
func NewEngine(completer brain.Completer, s store.Store, log *logger.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		completer: completer,
		store:     s,
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Configured reports whether replies can come from the language model.
func (e *Engine) Configured() bool {
	return e.completer != nil
}

// Respond returns a non-empty reply for message. Model failures are logged and answered
// from the fallback table; only an empty message is reported to the caller.
func (e *Engine) Respond(ctx context.Context, message string, history []brain.Turn) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrInvalidInput
	}

	if e.completer == nil {
		e.metrics.IncChatReply(SourceUnconfigured)
		return e.fallback(message), nil
	}

	additional, err := persona.LoadContext(ctx, e.store)
	e.metrics.IncStoreOp("get_context", err)
	if err != nil {
		e.logf("warn", "chat: additional context unavailable, using base persona: %v", err)
	}

	req := brain.CompletionRequest{
		SystemPrompt: persona.Compose(persona.BasePersona, additional),
		Messages:     append(TruncateHistory(history, HistoryWindow), brain.Turn{Role: brain.RoleUser, Content: message}),
		MaxTokens:    MaxReplyTokens,
		Temperature:  ReplyTemperature,
	}

	start := e.now()
	reply, err := e.completer.Complete(ctx, req)
	e.metrics.ObserveStage(observability.StageChatModel, e.now().Sub(start))
	if err != nil {
		code, retryable := reliability.Classify(err)
		e.metrics.IncProviderError("openai", code)
		e.logf("error", "chat: model call failed code=%s retryable=%t message=%q: %s",
			code, retryable, policy.Preview(message, 80), policy.Preview(err.Error(), 200))
		e.metrics.IncChatReply(SourceFallback)
		return e.fallback(message), nil
	}

	e.metrics.IncChatReply(SourceModel)
	if reply == "" {
		return EmptyReply, nil
	}
	return reply, nil
}

func (e *Engine) fallback(message string) string {
	start := e.now()
	topic, reply := persona.MatchFallback(message)
	e.metrics.ObserveStage(observability.StageChatFallback, e.now().Sub(start))
	e.logf("info", "chat: fallback reply topic=%s", topic)
	return reply
}

func (e *Engine) logf(level, format string, args ...any) {
	if e.log == nil {
		return
	}
	switch level {
	case "error":
		e.log.Error(format, args...)
	case "warn":
		e.log.Warn(format, args...)
	default:
		e.log.Info(format, args...)
	}
}

// TruncateHistory keeps the last max valid turns. Turns with an unknown role or empty
// content are dropped first.
func TruncateHistory(history []brain.Turn, max int) []brain.Turn {
	kept := make([]brain.Turn, 0, len(history))
	for _, turn := range history {
		if !turn.Role.Valid() || turn.Content == "" {
			continue
		}
		kept = append(kept, turn)
	}
	if max >= 0 && len(kept) > max {
		kept = kept[len(kept)-max:]
	}
	out := make([]brain.Turn, len(kept), len(kept)+1)
	copy(out, kept)
	return out
}
