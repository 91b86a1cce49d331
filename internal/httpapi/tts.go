package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/khelan-mehta/avatar-backend/internal/policy"
	"github.com/khelan-mehta/avatar-backend/internal/voice"
)

type ttsRequest struct {
	Text any `json:"text"`
}

type voiceConfigRequest struct {
	SelectedVoice *string `json:"selectedVoice"`
	Speed         any     `json:"speed"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	text, ok := req.Text.(string)
	if !ok || text == "" {
		respondError(w, http.StatusBadRequest, "text_required", "Text is required and must be a string")
		return
	}
	if s.speech == nil {
		respondError(w, http.StatusServiceUnavailable, "tts_not_configured", "TTS not configured")
		return
	}

	res, err := s.speech.Synthesize(r.Context(), text)
	if err != nil {
		status, code, message := classifySpeechError(err)
		var synthErr *voice.SynthesisError
		if errors.As(err, &synthErr) {
			respondErrorDetail(w, status, code, message, policy.Preview(synthErr.Detail(), 200))
			return
		}
		respondError(w, status, code, message)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(res.Audio)))
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("X-Voice-Used", res.Voice)
	h.Set("X-Voice-Speed", formatSpeed(res.Speed))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}

func (s *Server) handleTTSConfig(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "speech not configured")
		return
	}
	desc, err := s.speech.DescribeConfig(r.Context())
	if err != nil {
		s.logError("tts: describe config failed: %v", err)
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to read voice configuration")
		return
	}
	respondJSON(w, http.StatusOK, desc)
}

func (s *Server) handleGetVoiceConfig(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "speech not configured")
		return
	}
	cfg, err := s.speech.LoadConfig(r.Context())
	if err != nil {
		s.logWarn("tts: voice config read failed, returning defaults: %v", err)
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveVoiceConfig(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "speech not configured")
		return
	}
	var req voiceConfigRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cfg, err := s.speech.SaveConfig(r.Context(), req.SelectedVoice, req.Speed)
	if err != nil {
		if errors.Is(err, voice.ErrInvalidVoice) {
			respondError(w, http.StatusBadRequest, "invalid_voice", "Invalid voice. Choose one of: alloy, echo, fable, onyx, nova, shimmer")
			return
		}
		s.logError("tts: save voice config failed: %v", err)
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to save voice configuration")
		return
	}
	s.logInfo("tts: voice config saved voice=%s speed=%s", cfg.SelectedVoice, formatSpeed(cfg.Speed))
	respondJSON(w, http.StatusOK, cfg)
}

// classifySpeechError maps a synthesis error to an HTTP status, code and message.
func classifySpeechError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, voice.ErrEmptyText):
		return http.StatusBadRequest, "empty_text", "Text cannot be empty"
	case errors.Is(err, voice.ErrNotConfigured):
		return http.StatusServiceUnavailable, "tts_not_configured", "TTS not configured: set OPENAI_API_KEY in .env"
	case errors.Is(err, voice.ErrSynthesisFailed):
		return http.StatusInternalServerError, "synthesis_failed", "TTS generation failed"
	default:
		return http.StatusInternalServerError, "internal", "TTS generation failed"
	}
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
