package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Latency window stages.
const (
	StageChatModel    = "chat_model"
	StageChatFallback = "chat_fallback"
	StageTTSSynthesis = "tts_synthesis"
)

// Metrics groups all Prometheus instruments used by the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	window   *LatencyWindow

	ChatReplies     *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	TTSRequests     *prometheus.CounterVec
	StoreOps        *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	WSMessages      *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		window:   NewLatencyWindow(256),
		ChatReplies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat replies by source (model, fallback, unconfigured).",
		}, []string{"source"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		TTSRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Speech synthesis requests by outcome.",
		}, []string{"outcome"}),
		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Configuration and media store operations by op and result.",
		}, []string{"op", "result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status class.",
		}, []string{"route", "status"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_ms",
			Help:      "Latency of language model and speech calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		}, []string{"stage"}),
	}
}

// ObserveStage records d for stage in both the histogram and the latency window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.UpstreamLatency.WithLabelValues(stage).Observe(ms)
	m.window.Observe(stage, ms)
}

func (m *Metrics) IncChatReply(source string) {
	if m == nil {
		return
	}
	m.ChatReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) IncProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
	m.window.ObserveIndicator(provider + "_" + code)
}

func (m *Metrics) IncTTS(outcome string) {
	if m == nil {
		return
	}
	m.TTSRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStoreOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) IncHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func (m *Metrics) IncWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// LatencySnapshot returns the rolling per-stage latency summary.
func (m *Metrics) LatencySnapshot() LatencySnapshot {
	if m == nil {
		return NewLatencyWindow(1).Snapshot()
	}
	return m.window.Snapshot()
}

// ResetLatency clears the rolling latency window.
func (m *Metrics) ResetLatency() {
	if m == nil {
		return
	}
	m.window.Reset()
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
