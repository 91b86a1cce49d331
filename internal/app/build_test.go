package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khelan-mehta/avatar-backend/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		MetricsNamespace: "test",
		FrontendURL:      "http://localhost:5173",
		UploadsDir:       filepath.Join(dir, "uploads"),
		DataDir:          filepath.Join(dir, "data"),
		OpenAIModel:      "gpt-4o-mini",
		OpenAITimeout:    time.Second,
		OpenAIAPIKey:     config.PlaceholderOpenAIKey,
		AdminPassword:    "pw",
		JWTSecret:        "secret",
		JWTTTL:           time.Hour,
		MaxVideoBytes:    1 << 20,
		MaxSampleBytes:   1 << 20,
	}
}

func TestBuildDefaultsToLocalBackends(t *testing.T) {
	res, err := Build(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.Equal(t, BackendInfo{
		ConfigStore: "file",
		MediaStore:  "fs",
		Chat:        "fallback",
		Speech:      "disabled",
	}, res.Info)
	assert.False(t, res.Chat.Configured())
	assert.False(t, res.Speech.Configured())

	ts := httptest.NewServer(res.API.Router())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildWithKeyEnablesOpenAI(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = "sk-test"

	res, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.True(t, res.Chat.Configured())
	assert.True(t, res.Speech.Configured())
	assert.Equal(t, "openai gpt-4o-mini", res.Info.Chat)
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), nil, "thing", func() error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retry(ctx, nil, "thing", func() error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("retry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
