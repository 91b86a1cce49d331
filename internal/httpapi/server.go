package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/khelan-mehta/avatar-backend/internal/auth"
	"github.com/khelan-mehta/avatar-backend/internal/brain"
	"github.com/khelan-mehta/avatar-backend/internal/config"
	"github.com/khelan-mehta/avatar-backend/internal/media"
	"github.com/khelan-mehta/avatar-backend/internal/observability"
	"github.com/khelan-mehta/avatar-backend/internal/store"
	"github.com/khelan-mehta/avatar-backend/internal/voice"
)

const maxJSONBodyBytes = 10 << 20

// ChatResponder produces persona replies.
type ChatResponder interface {
	Respond(ctx context.Context, message string, history []brain.Turn) (string, error)
}

// SpeechService synthesizes audio and manages the voice configuration.
type SpeechService interface {
	Synthesize(ctx context.Context, text string) (voice.Result, error)
	DescribeConfig(ctx context.Context) (voice.Description, error)
	LoadConfig(ctx context.Context) (voice.Config, error)
	SaveConfig(ctx context.Context, voiceID *string, speed any) (voice.Config, error)
}

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Chat    ChatResponder
	Speech  SpeechService
	Store   store.Store
	Media   *media.Library
	Auth    *auth.Authenticator
	Metrics *observability.Metrics
	Log     *logger.Logger
}

type Server struct {
	cfg      config.Config
	chat     ChatResponder
	speech   SpeechService
	store    store.Store
	media    *media.Library
	auth     *auth.Authenticator
	metrics  *observability.Metrics
	log      *logger.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		chat:    deps.Chat,
		speech:  deps.Speech,
		store:   deps.Store,
		media:   deps.Media,
		auth:    deps.Auth,
		metrics: deps.Metrics,
		log:     deps.Log,
		now:     time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Voice-Used", "X-Voice-Speed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.instrument)

	r.Get("/api/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})
	r.Get("/api/perf/latency", s.handlePerfLatency)

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)

	r.Post("/api/tts", s.handleTTS)
	r.Get("/api/tts/config", s.handleTTSConfig)

	r.Get("/api/video", s.handleVideo)
	r.Get("/uploads/*", s.handleUploads)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/upload-video", s.handleUploadVideo)
			r.Get("/context", s.handleGetContext)
			r.Post("/context", s.handleSaveContext)
			r.Get("/voice-config", s.handleGetVoiceConfig)
			r.Post("/voice-config", s.handleSaveVoiceConfig)
			r.Get("/voice-samples", s.handleListSamples)
			r.Post("/voice-samples", s.handleUploadSamples)
			r.Delete("/voice-samples/{filename}", s.handleDeleteSample)
			r.Delete("/perf/latency", s.handleResetPerfLatency)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "Not found")
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients often omit Origin.
		return true
	}
	if strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(s.cfg.FrontendURL, "/")) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// instrument counts requests per route pattern and logs failures.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		s.metrics.IncHTTPRequest(route, status)
		if status >= 500 {
			s.logError("http %s %s status=%d dur=%s req=%s", r.Method, route, status, time.Since(start), middleware.GetReqID(r.Context()))
		}
	})
}

func (s *Server) logInfo(format string, args ...any) {
	if s.log != nil {
		s.log.Info(format, args...)
	}
}

func (s *Server) logWarn(format string, args ...any) {
	if s.log != nil {
		s.log.Warn(format, args...)
	}
}

func (s *Server) logError(format string, args ...any) {
	if s.log != nil {
		s.log.Error(format, args...)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errEmptyBody
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func respondErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code, Detail: detail})
}
