package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// PlaceholderOpenAIKey is the value shipped in the example .env file. It counts as "not configured".
const PlaceholderOpenAIKey = "sk-your-openai-api-key-here"

// Config contains all runtime settings for the avatar backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	FrontendURL      string
	LogDir           string

	// UploadsDir holds public media (avatar video, voice samples). DataDir holds
	// persisted configuration documents and is never served.
	UploadsDir string
	DataDir    string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	AdminPassword string
	JWTSecret     string
	JWTTTL        time.Duration

	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	NATSMediaBucket string

	MaxVideoBytes  int64
	MaxSampleBytes int64
}

// OpenAIConfigured reports whether a usable OpenAI credential is present.
func (c Config) OpenAIConfigured() bool {
	key := strings.TrimSpace(c.OpenAIAPIKey)
	return key != "" && key != PlaceholderOpenAIKey
}

// UsingDefaultJWTSecret reports whether tokens are signed with the built-in development secret.
func (c Config) UsingDefaultJWTSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

const defaultJWTSecret = "default-secret-change-me"

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are given)
// into the process environment. Existing variables win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads defaults, then the optional APP_CONFIG_FILE (TOML), then environment variables.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         ":3001",
		ShutdownTimeout:  15 * time.Second,
		MetricsNamespace: "avatar",
		FrontendURL:      "http://localhost:5173",
		LogDir:           "logs",
		UploadsDir:       "uploads",
		DataDir:          "data",
		OpenAIModel:      "gpt-4o-mini",
		OpenAITimeout:    60 * time.Second,
		AdminPassword:    "admin123",
		JWTSecret:        defaultJWTSecret,
		JWTTTL:           24 * time.Hour,
		NATSMediaBucket:  "AVATAR_MEDIA",
		MaxVideoBytes:    100 << 20,
		MaxSampleBytes:   10 << 20,
	}

	if path := stringsTrimSpace("APP_CONFIG_FILE"); path != "" {
		fc, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := fc.applyTo(&cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.BindAddr = envOrDefault("APP_BIND_ADDR", cfg.BindAddr)
	cfg.MetricsNamespace = envOrDefault("APP_METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.FrontendURL = envOrDefault("FRONTEND_URL", cfg.FrontendURL)
	cfg.LogDir = envOrDefault("LOG_DIR", cfg.LogDir)
	cfg.UploadsDir = envOrDefault("UPLOADS_DIR", cfg.UploadsDir)
	cfg.DataDir = envOrDefault("DATA_DIR", cfg.DataDir)
	cfg.OpenAIAPIKey = stringsTrimSpace("OPENAI_API_KEY")
	cfg.OpenAIModel = envOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = envOrDefault("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.AdminPassword = envOrDefault("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.NATSURL = envOrDefault("NATS_URL", cfg.NATSURL)
	cfg.NATSMediaBucket = envOrDefault("NATS_MEDIA_BUCKET", cfg.NATSMediaBucket)

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITimeout, err = durationFromEnv("OPENAI_TIMEOUT", cfg.OpenAITimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JWTTTL, err = durationFromEnv("JWT_TTL", cfg.JWTTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxVideoBytes, err = int64FromEnv("MAX_VIDEO_BYTES", cfg.MaxVideoBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSampleBytes, err = int64FromEnv("MAX_SAMPLE_BYTES", cfg.MaxSampleBytes)
	if err != nil {
		return Config{}, err
	}

	if cfg.OpenAITimeout <= 0 {
		return Config{}, fmt.Errorf("OPENAI_TIMEOUT must be positive")
	}
	if cfg.JWTTTL < time.Minute {
		return Config{}, fmt.Errorf("JWT_TTL must be at least 1m")
	}
	if cfg.MaxVideoBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_VIDEO_BYTES must be positive")
	}
	if cfg.MaxSampleBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_SAMPLE_BYTES must be positive")
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return Config{}, fmt.Errorf("ADMIN_PASSWORD must not be empty")
	}

	return cfg, nil
}

// fileConfig mirrors the TOML layout of APP_CONFIG_FILE. Secrets are env-only.
type fileConfig struct {
	Server struct {
		BindAddr         string `toml:"bind_addr"`
		ShutdownTimeout  string `toml:"shutdown_timeout"`
		MetricsNamespace string `toml:"metrics_namespace"`
		FrontendURL      string `toml:"frontend_url"`
		LogDir           string `toml:"log_dir"`
		UploadsDir       string `toml:"uploads_dir"`
		DataDir          string `toml:"data_dir"`
	} `toml:"server"`
	OpenAI struct {
		Model   string `toml:"model"`
		BaseURL string `toml:"base_url"`
		Timeout string `toml:"timeout"`
	} `toml:"openai"`
	Storage struct {
		DatabaseURL     string `toml:"database_url"`
		RedisURL        string `toml:"redis_url"`
		NATSURL         string `toml:"nats_url"`
		NATSMediaBucket string `toml:"nats_media_bucket"`
	} `toml:"storage"`
	Limits struct {
		MaxVideoBytes  int64 `toml:"max_video_bytes"`
		MaxSampleBytes int64 `toml:"max_sample_bytes"`
	} `toml:"limits"`
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

func (fc fileConfig) applyTo(cfg *Config) error {
	setString(&cfg.BindAddr, fc.Server.BindAddr)
	setString(&cfg.MetricsNamespace, fc.Server.MetricsNamespace)
	setString(&cfg.FrontendURL, fc.Server.FrontendURL)
	setString(&cfg.LogDir, fc.Server.LogDir)
	setString(&cfg.UploadsDir, fc.Server.UploadsDir)
	setString(&cfg.DataDir, fc.Server.DataDir)
	setString(&cfg.OpenAIModel, fc.OpenAI.Model)
	setString(&cfg.OpenAIBaseURL, fc.OpenAI.BaseURL)
	setString(&cfg.DatabaseURL, fc.Storage.DatabaseURL)
	setString(&cfg.RedisURL, fc.Storage.RedisURL)
	setString(&cfg.NATSURL, fc.Storage.NATSURL)
	setString(&cfg.NATSMediaBucket, fc.Storage.NATSMediaBucket)
	if fc.Limits.MaxVideoBytes > 0 {
		cfg.MaxVideoBytes = fc.Limits.MaxVideoBytes
	}
	if fc.Limits.MaxSampleBytes > 0 {
		cfg.MaxSampleBytes = fc.Limits.MaxSampleBytes
	}

	if v := strings.TrimSpace(fc.Server.ShutdownTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("server.shutdown_timeout parse error: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v := strings.TrimSpace(fc.OpenAI.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("openai.timeout parse error: %w", err)
		}
		cfg.OpenAITimeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
