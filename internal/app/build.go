package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/khelan-mehta/avatar-backend/internal/auth"
	"github.com/khelan-mehta/avatar-backend/internal/brain"
	"github.com/khelan-mehta/avatar-backend/internal/chat"
	"github.com/khelan-mehta/avatar-backend/internal/config"
	"github.com/khelan-mehta/avatar-backend/internal/httpapi"
	"github.com/khelan-mehta/avatar-backend/internal/media"
	"github.com/khelan-mehta/avatar-backend/internal/observability"
	"github.com/khelan-mehta/avatar-backend/internal/reliability"
	"github.com/khelan-mehta/avatar-backend/internal/store"
	"github.com/khelan-mehta/avatar-backend/internal/voice"
)

const (
	connectAttempts    = 4
	connectBackoffBase = 250 * time.Millisecond
	connectBackoffCap  = 4 * time.Second
)

// BackendInfo names the backends Build selected, for the startup banner.
type BackendInfo struct {
	ConfigStore string
	MediaStore  string
	Chat        string
	Speech      string
}

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Chat    *chat.Engine
	Speech  *voice.Dispatcher
	Media   *media.Library
	Metrics *observability.Metrics
	Info    BackendInfo

	// Cleanup releases the config store and media store connections.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log *logger.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var (
		docs      store.Store
		storeKind string
	)
	err := retry(ctx, log, "config store", func() error {
		var err error
		docs, storeKind, err = store.NewStore(ctx, store.Options{
			DatabaseURL: cfg.DatabaseURL,
			RedisURL:    cfg.RedisURL,
			Dir:         cfg.DataDir,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("config store init failed: %w", err)
	}

	blobs, mediaKind, err := openMediaStore(ctx, cfg, log)
	if err != nil {
		_ = docs.Close()
		return nil, fmt.Errorf("media store init failed: %w", err)
	}
	library := media.NewLibrary(blobs, cfg.MaxVideoBytes, cfg.MaxSampleBytes)

	apiKey := ""
	if cfg.OpenAIConfigured() {
		apiKey = cfg.OpenAIAPIKey
	}
	completer, err := brain.NewCompleter(brain.Config{
		Mode:    "auto",
		APIKey:  apiKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	})
	if err != nil {
		_ = blobs.Close()
		_ = docs.Close()
		return nil, fmt.Errorf("chat completer init failed: %w", err)
	}
	engine := chat.NewEngine(completer, docs, log, metrics)

	var speech voice.SpeechProvider
	if cfg.OpenAIConfigured() {
		p, err := voice.NewOpenAISpeech(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITimeout)
		if err != nil {
			_ = blobs.Close()
			_ = docs.Close()
			return nil, fmt.Errorf("speech provider init failed: %w", err)
		}
		speech = p
	}
	dispatcher := voice.NewDispatcher(speech, docs, library, log, metrics)

	api := httpapi.New(cfg, httpapi.Deps{
		Chat:    engine,
		Speech:  dispatcher,
		Store:   docs,
		Media:   library,
		Auth:    auth.NewAuthenticator(cfg.AdminPassword, cfg.JWTSecret, cfg.JWTTTL),
		Metrics: metrics,
		Log:     log,
	})

	cleanup := func() error {
		var errs []string
		if err := blobs.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := docs.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	info := BackendInfo{
		ConfigStore: storeKind,
		MediaStore:  mediaKind,
		Chat:        "fallback",
		Speech:      "disabled",
	}
	if engine.Configured() {
		info.Chat = "openai " + cfg.OpenAIModel
	}
	if dispatcher.Configured() {
		info.Speech = "openai " + voice.Model
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Chat:    engine,
		Speech:  dispatcher,
		Media:   library,
		Metrics: metrics,
		Info:    info,
		Cleanup: cleanup,
	}, nil
}

func openMediaStore(ctx context.Context, cfg config.Config, log *logger.Logger) (media.Store, string, error) {
	if strings.TrimSpace(cfg.NATSURL) == "" {
		s, err := media.NewFSStore(cfg.UploadsDir)
		if err != nil {
			return nil, "", err
		}
		return s, "fs", nil
	}
	var s *media.NATSStore
	err := retry(ctx, log, "nats media store", func() error {
		var err error
		s, err = media.DialNATSStore(cfg.NATSURL, cfg.NATSMediaBucket)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return s, "nats", nil
}

// retry runs fn until it succeeds, the attempts run out, or ctx ends.
func retry(ctx context.Context, log *logger.Logger, what string, fn func() error) error {
	var err error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == connectAttempts-1 {
			break
		}
		wait := reliability.ExponentialBackoff(attempt, connectBackoffBase, connectBackoffCap)
		if log != nil {
			log.Warn("%s connect attempt %d failed, retrying in %s: %v", what, attempt+1, wait, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
