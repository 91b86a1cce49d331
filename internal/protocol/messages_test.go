package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/khelan-mehta/avatar-backend/internal/brain"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"chat","id":"m1","message":"hi","history":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chat, ok := msg.(ChatRequest)
	if !ok {
		t.Fatalf("message type = %T, want ChatRequest", msg)
	}
	if chat.ID != "m1" || chat.Message != "hi" || len(chat.History) != 2 {
		t.Fatalf("unexpected chat request: %+v", chat)
	}
	if chat.History[1].Role != brain.RoleAssistant {
		t.Fatalf("History[1].Role = %q, want assistant", chat.History[1].Role)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsEmptyChat(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"chat","message":"   "}`))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestParseClientMessageRejectsBadJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected envelope error")
	}
}

func TestParseClientMessageSpeakAndPing(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"speak","id":"s1","text":"Hello"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(speak) error = %v", err)
	}
	if speak, ok := msg.(SpeakRequest); !ok || speak.Text != "Hello" {
		t.Fatalf("speak = %#v", msg)
	}

	msg, err = ParseClientMessage([]byte(`{"type":"ping","id":"p"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(ping) error = %v", err)
	}
	if _, ok := msg.(Ping); !ok {
		t.Fatalf("message type = %T, want Ping", msg)
	}
}

func TestEncodeReply(t *testing.T) {
	b, err := Encode(Reply{Type: TypeReply, ID: "m1", Reply: "hey"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(b), `"type":"reply"`) || !strings.Contains(string(b), `"reply":"hey"`) {
		t.Fatalf("Encode() = %s", b)
	}
}

func BenchmarkParseClientMessageChat(b *testing.B) {
	raw := []byte(`{"type":"chat","id":"m1","message":"What's your tech stack?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ChatRequest); !ok {
			b.Fatalf("message type = %T, want ChatRequest", msg)
		}
	}
}
