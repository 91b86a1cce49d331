package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := NewLatencyWindow(8)
	w.Observe(StageChatModel, 500)
	w.Observe(StageChatModel, 700)
	w.Observe(StageChatModel, 900)
	w.ObserveIndicator("openai_rate_limited")
	w.ObserveIndicator("openai_rate_limited")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != StageChatModel {
		t.Fatalf("Stage = %q, want %q", s.Stage, StageChatModel)
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 4000 {
		t.Fatalf("TargetP95MS = %.2f, want 4000", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators = %+v, want one indicator with count 2", snap.Indicators)
	}
}

func TestLatencyWindowWrapsAround(t *testing.T) {
	w := NewLatencyWindow(2)
	w.Observe(StageTTSSynthesis, 10)
	w.Observe(StageTTSSynthesis, 20)
	w.Observe(StageTTSSynthesis, 30)

	s := w.Snapshot().Stages[0]
	if s.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", s.Samples)
	}
	if s.AvgMS != 25 {
		t.Fatalf("AvgMS = %.2f, want 25 (oldest sample evicted)", s.AvgMS)
	}
}

func TestMetricsInstancesDoNotCollide(t *testing.T) {
	a := NewMetrics("avatar")
	b := NewMetrics("avatar")
	a.IncChatReply("fallback")
	b.IncChatReply("model")
	a.ObserveStage(StageChatFallback, time.Millisecond)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `avatar_chat_replies_total{source="fallback"} 1`) {
		t.Fatalf("metrics output missing fallback counter:\n%s", body)
	}
	if strings.Contains(string(body), `source="model"`) {
		t.Fatalf("metrics output leaked another instance's counter")
	}
	if got := a.LatencySnapshot().Stages; len(got) != 1 || got[0].Stage != StageChatFallback {
		t.Fatalf("LatencySnapshot().Stages = %+v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncChatReply("model")
	m.IncProviderError("openai", "timeout")
	m.IncTTS("ok")
	m.IncStoreOp("get", nil)
	m.IncHTTPRequest("/api/chat", 200)
	m.IncWSMessage("in", "chat")
	m.ObserveStage(StageChatModel, time.Second)
	m.ResetLatency()
	if snap := m.LatencySnapshot(); len(snap.Stages) != 0 {
		t.Fatalf("nil metrics snapshot has stages")
	}
}
