package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/khelan-mehta/avatar-backend/internal/brain"
	"github.com/khelan-mehta/avatar-backend/internal/chat"
	"github.com/khelan-mehta/avatar-backend/internal/policy"
	"github.com/khelan-mehta/avatar-backend/internal/protocol"
	"github.com/khelan-mehta/avatar-backend/internal/voice"
)

type chatRequest struct {
	Message string       `json:"message"`
	History []brain.Turn `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if s.chat == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "chat not configured")
		return
	}

	reply, err := s.chat.Respond(r.Context(), req.Message, req.History)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "message_required", "Message is required")
			return
		}
		s.logError("chat: respond failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "Chat failed")
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "chat not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 16)
	outbound := make(chan any, 16)

	processDone := make(chan struct{})
	go func() {
		defer close(processDone)
		defer close(outbound)
		for msg := range inbound {
			out := s.processWSMessage(ctx, msg)
			select {
			case <-ctx.Done():
				return
			case outbound <- out:
			}
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			payload, err := protocol.Encode(msg)
			if err == nil {
				err = conn.WriteMessage(websocket.TextMessage, payload)
			}
			if err != nil {
				cancel()
				_ = conn.Close()
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.metrics.IncWSMessage("outbound", string(t))
			}
		}
	}()

	conn.SetReadLimit(maxJSONBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			parsed = protocol.ErrorEvent{
				Type:   protocol.TypeError,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}
		} else if t, ok := messageTypeOf(parsed); ok {
			s.metrics.IncWSMessage("inbound", string(t))
		}

		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	close(inbound)
	cancel()
	<-processDone
	<-writerDone
}

// processWSMessage handles one client message and returns the server message to send.
func (s *Server) processWSMessage(ctx context.Context, msg any) any {
	switch m := msg.(type) {
	case protocol.ChatRequest:
		id := messageID(m.ID)
		reply, err := s.chat.Respond(ctx, m.Message, m.History)
		if err != nil {
			return protocol.ErrorEvent{Type: protocol.TypeError, ID: id, Code: "message_required", Detail: "Message is required"}
		}
		return protocol.Reply{Type: protocol.TypeReply, ID: id, Reply: reply}
	case protocol.SpeakRequest:
		id := messageID(m.ID)
		if s.speech == nil {
			return protocol.ErrorEvent{Type: protocol.TypeError, ID: id, Code: "tts_not_configured", Detail: "TTS not configured"}
		}
		res, err := s.speech.Synthesize(ctx, m.Text)
		if err != nil {
			_, code, message := classifySpeechError(err)
			ev := protocol.ErrorEvent{Type: protocol.TypeError, ID: id, Code: code, Detail: message}
			var synthErr *voice.SynthesisError
			if errors.As(err, &synthErr) {
				ev.Retryable = synthErr.Retryable
				ev.Detail = policy.Preview(synthErr.Detail(), 200)
			}
			return ev
		}
		return protocol.Audio{
			Type:        protocol.TypeAudio,
			ID:          id,
			Voice:       res.Voice,
			Speed:       res.Speed,
			Format:      res.ContentType,
			AudioBase64: base64.StdEncoding.EncodeToString(res.Audio),
		}
	case protocol.Ping:
		return protocol.Pong{Type: protocol.TypePong, ID: m.ID}
	case protocol.ErrorEvent:
		return m
	default:
		return protocol.ErrorEvent{Type: protocol.TypeError, Code: "invalid_client_message", Detail: protocol.ErrUnsupportedType.Error()}
	}
}

func messageID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ChatRequest:
		return m.Type, true
	case protocol.SpeakRequest:
		return m.Type, true
	case protocol.Ping:
		return m.Type, true
	case protocol.Reply:
		return m.Type, true
	case protocol.Audio:
		return m.Type, true
	case protocol.Pong:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
