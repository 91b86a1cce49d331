package store

import (
	"context"
	"strings"
)

// Options selects a backend. Postgres wins over Redis; the file store is the default.
type Options struct {
	DatabaseURL string
	RedisURL    string
	Dir         string
}

// NewStore creates the configured backend and reports its name.
func NewStore(ctx context.Context, opts Options) (Store, string, error) {
	if strings.TrimSpace(opts.DatabaseURL) != "" {
		s, err := NewPostgresStore(ctx, opts.DatabaseURL)
		return s, "postgres", err
	}
	if strings.TrimSpace(opts.RedisURL) != "" {
		s, err := NewRedisStore(ctx, opts.RedisURL)
		return s, "redis", err
	}
	s, err := NewFileStore(opts.Dir)
	return s, "file", err
}
