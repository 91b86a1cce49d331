package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/khelan-mehta/avatar-backend/internal/brain"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChat  MessageType = "chat"
	TypeSpeak MessageType = "speak"
	TypePing  MessageType = "ping"

	TypeReply MessageType = "reply"
	TypeAudio MessageType = "audio"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

var (
	ErrUnsupportedType = errors.New("unsupported message type")
	ErrInvalidMessage  = errors.New("invalid message")
)

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatRequest asks for one persona reply.
type ChatRequest struct {
	Type    MessageType  `json:"type"`
	ID      string       `json:"id,omitempty"`
	Message string       `json:"message"`
	History []brain.Turn `json:"history,omitempty"`
}

// SpeakRequest asks for text to be synthesized with the active voice.
type SpeakRequest struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
	Text string      `json:"text"`
}

type Ping struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
}

type Reply struct {
	Type  MessageType `json:"type"`
	ID    string      `json:"id"`
	Reply string      `json:"reply"`
}

type Audio struct {
	Type        MessageType `json:"type"`
	ID          string      `json:"id"`
	Voice       string      `json:"voice"`
	Speed       float64     `json:"speed"`
	Format      string      `json:"format"`
	AudioBase64 string      `json:"audio_base64"`
}

type Pong struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChat:
		var msg ChatRequest
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if strings.TrimSpace(msg.Message) == "" {
			return nil, fmt.Errorf("%w: chat message is required", ErrInvalidMessage)
		}
		return msg, nil
	case TypeSpeak:
		var msg SpeakRequest
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return msg, nil
	case TypePing:
		var msg Ping
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// Encode marshals a server message.
func Encode(msg any) ([]byte, error) {
	return sonic.Marshal(msg)
}
