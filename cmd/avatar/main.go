package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/khelan-mehta/avatar-backend/internal/app"
	"github.com/khelan-mehta/avatar-backend/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "avatar-backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.LogDir, "avatar-backend.log")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	if cfg.UsingDefaultJWTSecret() {
		log.Warn("JWT_SECRET is not set; admin tokens are signed with the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("build failed: %v", err)
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			log.Error("cleanup failed: %v", err)
		}
	}()

	log.System("config store: %s, media store: %s", res.Info.ConfigStore, res.Info.MediaStore)
	log.System("chat: %s, speech: %s", res.Info.Chat, res.Info.Speech)
	if !cfg.OpenAIConfigured() {
		log.Warn("OPENAI_API_KEY not configured; chat uses canned replies and /api/tts returns 503")
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           res.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening on %s (frontend %s)", cfg.BindAddr, cfg.FrontendURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			log.Error("listen error: %v", err)
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Info("shutdown complete")
	return nil
}
