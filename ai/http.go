package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"lovink/backend/internal/community"
)

// HTTPGenerator calls a chat endpoint that owns the model call. Community
// requests carry the roster, the speaker and the trailing history; direct
// requests carry the user and partner profiles. The endpoint answers
// {"reply": "..."}.
type HTTPGenerator struct {
	client   *http.Client
	endpoint string
	apiKey   string
	window   int
}

// HTTPOption configures an HTTPGenerator
type HTTPOption func(*HTTPGenerator)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGenerator) { g.client = c }
}

// WithAPIKey sends a bearer token
func WithAPIKey(key string) HTTPOption {
	return func(g *HTTPGenerator) { g.apiKey = key }
}

// WithHistoryWindow bounds the history sent per request
func WithHistoryWindow(n int) HTTPOption {
	return func(g *HTTPGenerator) { g.window = n }
}

// NewHTTPGenerator creates a generator for endpoint
func NewHTTPGenerator(endpoint string, opts ...HTTPOption) *HTTPGenerator {
	g := &HTTPGenerator{
		client:   &http.Client{Timeout: 60 * time.Second},
		endpoint: endpoint,
		window:   DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type communityRequest struct {
	Mode            string              `json:"mode"`
	Partners        []community.Persona `json:"partners"`
	SpeakingPartner community.Persona   `json:"speakingPartner"`
	Messages        []community.Message `json:"messages"`
}

type communityResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// GenerateReply implements community.ReplyGenerator
func (g *HTTPGenerator) GenerateReply(ctx context.Context, req community.ReplyRequest) (string, error) {
	history := req.History
	if len(history) > g.window {
		history = history[len(history)-g.window:]
	}
	return g.post(ctx, communityRequest{
		Mode:            "community",
		Partners:        req.Roster,
		SpeakingPartner: req.Speaker,
		Messages:        history,
	})
}

type directTurn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type directRequest struct {
	Mode           string            `json:"mode"`
	UserProfile    UserInfo          `json:"userProfile"`
	PartnerProfile community.Persona `json:"partnerProfile"`
	ChatHistory    []directTurn      `json:"chatHistory"`
	UserMessage    string            `json:"userMessage"`
}

// GenerateDirect implements DirectGenerator. The trailing user message is
// sent as userMessage and the turns before it as chatHistory.
func (g *HTTPGenerator) GenerateDirect(ctx context.Context, req DirectRequest) (string, error) {
	history := req.History
	userMessage := directOpener
	if n := len(history); n > 0 && history[n-1].FromUser() {
		userMessage = history[n-1].Text
		history = history[:n-1]
	}
	if len(history) > DirectHistoryWindow {
		history = history[len(history)-DirectHistoryWindow:]
	}
	turns := make([]directTurn, len(history))
	for i, m := range history {
		sender := "partner"
		if m.FromUser() {
			sender = "user"
		}
		turns[i] = directTurn{Sender: sender, Text: m.Text}
	}
	return g.post(ctx, directRequest{
		Mode:           "direct",
		UserProfile:    req.User,
		PartnerProfile: req.Partner,
		ChatHistory:    turns,
		UserMessage:    userMessage,
	})
}

func (g *HTTPGenerator) post(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", g.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	var out communityResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generator: %s", out.Error)
	}
	return out.Reply, nil
}

// StatusError is a non-200 answer from the endpoint
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator returned %d: %s", e.StatusCode, e.Body)
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
