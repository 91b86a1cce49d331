package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khelan-mehta/avatar-backend/internal/brain"
	"github.com/khelan-mehta/avatar-backend/internal/persona"
	"github.com/khelan-mehta/avatar-backend/internal/store"
)

func TestRespondRejectsEmptyMessage(t *testing.T) {
	e := NewEngine(nil, store.NewInMemoryStore(), nil, nil)
	for _, msg := range []string{"", "   \n"} {
		if _, err := e.Respond(context.Background(), msg, nil); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Respond(%q) error = %v, want ErrInvalidInput", msg, err)
		}
	}
}

func TestRespondUnconfiguredUsesFallback(t *testing.T) {
	e := NewEngine(nil, store.NewInMemoryStore(), nil, nil)

	got, err := e.Respond(context.Background(), "What's your tech stack?", nil)
	require.NoError(t, err)
	_, want := persona.MatchFallback("skills")
	assert.Equal(t, want, got)
	assert.False(t, e.Configured())
}

func TestRespondUnconfiguredGreetingVerbatim(t *testing.T) {
	e := NewEngine(nil, store.NewInMemoryStore(), nil, nil)
	for _, msg := range []string{"Hello!", "HEY you", "hi"} {
		got, err := e.Respond(context.Background(), msg, nil)
		require.NoError(t, err)
		assert.Equal(t, persona.FallbackReply("hello"), got, msg)
	}
}

func TestRespondSendsComposedPromptAndTruncatedHistory(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	_, err := persona.SaveContext(ctx, s, "Currently learning Go.", time.Now())
	require.NoError(t, err)

	mock := &brain.MockCompleter{Reply: "I love energy modeling!"}
	e := NewEngine(mock, s, nil, nil)

	history := make([]brain.Turn, 0, 15)
	for i := 0; i < 15; i++ {
		role := brain.RoleUser
		if i%2 == 1 {
			role = brain.RoleAssistant
		}
		history = append(history, brain.Turn{Role: role, Content: fmt.Sprintf("turn-%d", i)})
	}

	got, err := e.Respond(ctx, "What do you do?", history)
	require.NoError(t, err)
	assert.Equal(t, "I love energy modeling!", got)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, persona.Compose(persona.BasePersona, "Currently learning Go."), req.SystemPrompt)
	assert.Equal(t, MaxReplyTokens, req.MaxTokens)
	assert.Equal(t, ReplyTemperature, req.Temperature)

	require.Len(t, req.Messages, HistoryWindow+1)
	assert.Equal(t, "turn-5", req.Messages[0].Content, "oldest turns dropped")
	assert.Equal(t, "turn-14", req.Messages[HistoryWindow-1].Content)
	assert.Equal(t, brain.Turn{Role: brain.RoleUser, Content: "What do you do?"}, req.Messages[HistoryWindow])
}

func TestRespondReadsContextOnEveryCall(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	mock := &brain.MockCompleter{Reply: "ok"}
	e := NewEngine(mock, s, nil, nil)

	_, err := e.Respond(ctx, "first", nil)
	require.NoError(t, err)
	_, err = persona.SaveContext(ctx, s, "New fact.", time.Now())
	require.NoError(t, err)
	_, err = e.Respond(ctx, "second", nil)
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, persona.BasePersona, reqs[0].SystemPrompt)
	assert.True(t, strings.HasSuffix(reqs[1].SystemPrompt, "New fact."))
}

func TestRespondModelErrorFallsBack(t *testing.T) {
	mock := &brain.MockCompleter{Err: fmt.Errorf("%w: connection reset", brain.ErrUpstreamUnavailable)}
	e := NewEngine(mock, store.NewInMemoryStore(), nil, nil)

	got, err := e.Respond(context.Background(), "How can I reach you?", nil)
	require.NoError(t, err)
	assert.Equal(t, persona.FallbackReply("contact"), got)
}

func TestRespondCanceledContextFallsBack(t *testing.T) {
	mock := &brain.MockCompleter{Reply: "unused"}
	e := NewEngine(mock, store.NewInMemoryStore(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := e.Respond(ctx, "Tell me about your education", nil)
	require.NoError(t, err)
	assert.Equal(t, persona.FallbackReply("education"), got)
}

func TestRespondEmptyModelContentUsesApology(t *testing.T) {
	mock := &brain.MockCompleter{Reply: ""}
	e := NewEngine(mock, store.NewInMemoryStore(), nil, nil)

	got, err := e.Respond(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, EmptyReply, got)
}

type brokenStore struct{ *store.InMemoryStore }

func (brokenStore) Get(context.Context, string) (json.RawMessage, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func TestRespondStoreFailureUsesBasePersona(t *testing.T) {
	mock := &brain.MockCompleter{Reply: "still here"}
	e := NewEngine(mock, brokenStore{store.NewInMemoryStore()}, nil, nil)

	got, err := e.Respond(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "still here", got)
	require.Len(t, mock.Requests(), 1)
	assert.Equal(t, persona.BasePersona, mock.Requests()[0].SystemPrompt)
}

func TestTruncateHistory(t *testing.T) {
	history := []brain.Turn{
		{Role: brain.RoleUser, Content: "a"},
		{Role: "tool", Content: "ignored"},
		{Role: brain.RoleAssistant, Content: ""},
		{Role: brain.RoleAssistant, Content: "b"},
		{Role: brain.RoleUser, Content: "c"},
	}
	got := TruncateHistory(history, 2)
	want := []brain.Turn{
		{Role: brain.RoleAssistant, Content: "b"},
		{Role: brain.RoleUser, Content: "c"},
	}
	assert.Equal(t, want, got)

	got[0].Content = "changed"
	assert.Equal(t, "b", history[3].Content, "input slice untouched")
	assert.Empty(t, TruncateHistory(nil, HistoryWindow))
}
