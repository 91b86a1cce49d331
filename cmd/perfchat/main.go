package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/khelan-mehta/avatar-backend/internal/brain"
	"github.com/khelan-mehta/avatar-backend/internal/protocol"
)

type options struct {
	baseURL        string
	turns          int
	speak          bool
	keepHistory    bool
	startDelay     time.Duration
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type wsEnvelope struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Reply  string `json:"reply,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type turnResult struct {
	chat  time.Duration
	speak time.Duration
}

var defaultQuestions = []string{
	"Hi! Who are you?",
	"What's your tech stack?",
	"Tell me about your projects.",
	"How can I contact you?",
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textsRaw string
	var startDelayMS, interTurnMS, turnTimeoutMS int

	fs := flag.NewFlagSet("perfchat", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:3001", "avatar backend base URL")
	fs.IntVar(&cfg.turns, "turns", 8, "number of chat turns to replay")
	fs.BoolVar(&cfg.speak, "speak", false, "also synthesize each reply over the socket")
	fs.BoolVar(&cfg.keepHistory, "history", true, "send the running conversation as history")
	fs.IntVar(&startDelayMS, "start-delay-ms", 0, "delay before the first turn in milliseconds")
	fs.IntVar(&interTurnMS, "inter-turn-ms", 200, "delay between turns in milliseconds")
	fs.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "timeout waiting for each server message in milliseconds")
	fs.StringVar(&textsRaw, "texts", "", "questions separated by '|' (optional)")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if startDelayMS < 0 {
		startDelayMS = 0
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.startDelay = time.Duration(startDelayMS) * time.Millisecond
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultQuestions...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty questions")
		}
	}
	return cfg, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	wsURL, err := chatSocketURL(cfg.baseURL)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	if cfg.startDelay > 0 {
		time.Sleep(cfg.startDelay)
	}

	var history []brain.Turn
	results := make([]turnResult, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		question := cfg.texts[i%len(cfg.texts)]
		var res turnResult

		start := time.Now()
		reply, err := exchange(conn, cfg.turnTimeout, protocol.ChatRequest{
			Type:    protocol.TypeChat,
			ID:      uuid.NewString(),
			Message: question,
			History: history,
		}, string(protocol.TypeReply))
		if err != nil {
			return fmt.Errorf("turn %d chat: %w", i+1, err)
		}
		res.chat = time.Since(start)
		if cfg.verbose {
			fmt.Printf("perfchat: turn %d/%d chat=%s q=%q reply=%q\n", i+1, cfg.turns, res.chat.Round(time.Millisecond), question, truncate(reply.Reply, 80))
		}

		if cfg.speak {
			start = time.Now()
			if _, err := exchange(conn, cfg.turnTimeout, protocol.SpeakRequest{
				Type: protocol.TypeSpeak,
				ID:   uuid.NewString(),
				Text: reply.Reply,
			}, string(protocol.TypeAudio)); err != nil {
				return fmt.Errorf("turn %d speak: %w", i+1, err)
			}
			res.speak = time.Since(start)
			if cfg.verbose {
				fmt.Printf("perfchat: turn %d/%d speak=%s\n", i+1, cfg.turns, res.speak.Round(time.Millisecond))
			}
		}
		results = append(results, res)

		if cfg.keepHistory {
			history = append(history,
				brain.Turn{Role: brain.RoleUser, Content: question},
				brain.Turn{Role: brain.RoleAssistant, Content: reply.Reply},
			)
		}
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	printSummary(os.Stdout, results, cfg.speak)
	if cfg.verbose {
		if snapshot, err := fetchServerLatency(ctx, cfg.baseURL); err == nil {
			fmt.Printf("perfchat: server latency snapshot %s\n", snapshot)
		} else {
			fmt.Fprintf(os.Stderr, "perfchat: server latency unavailable: %v\n", err)
		}
	}
	return nil
}

// exchange writes req and waits for a message of type want, failing on an error event.
func exchange(conn *websocket.Conn, timeout time.Duration, req any, want string) (wsEnvelope, error) {
	payload, err := protocol.Encode(req)
	if err != nil {
		return wsEnvelope{}, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return wsEnvelope{}, err
	}
	deadline := time.Now().Add(timeout)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return wsEnvelope{}, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return wsEnvelope{}, err
		}
		var env wsEnvelope
		if err := sonic.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case want:
			return env, nil
		case string(protocol.TypeError):
			return env, fmt.Errorf("server error code=%s detail=%s", env.Code, env.Detail)
		}
	}
}

func chatSocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/chat/ws"
	return u.String(), nil
}

func fetchServerLatency(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/perf/latency", nil)
	if err != nil {
		return "", err
	}
	res, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", res.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

func printSummary(w io.Writer, results []turnResult, speak bool) {
	chat := make([]time.Duration, 0, len(results))
	synth := make([]time.Duration, 0, len(results))
	for _, r := range results {
		chat = append(chat, r.chat)
		if speak {
			synth = append(synth, r.speak)
		}
	}
	fmt.Fprintf(w, "perfchat: %d turns chat p50=%s p95=%s\n", len(results),
		percentile(chat, 50).Round(time.Millisecond), percentile(chat, 95).Round(time.Millisecond))
	if speak {
		fmt.Fprintf(w, "perfchat: speak p50=%s p95=%s\n",
			percentile(synth, 50).Round(time.Millisecond), percentile(synth, 95).Round(time.Millisecond))
	}
}

// percentile uses nearest-rank on a sorted copy.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
