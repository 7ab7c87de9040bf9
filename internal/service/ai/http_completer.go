package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"

	"github.com/zhouzirui/bzik/backend/internal/service/credential"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "openai/gpt-3.5-turbo"
	DefaultMaxTokens   = 50
	DefaultTemperature = 0.5

	maxResponseBytes = 1 << 20
)

// HTTPConfig describes an OpenAI-compatible chat completions endpoint.
type HTTPConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	// SiteURL and SiteName become OpenRouter's attribution headers when set.
	SiteURL  string
	SiteName string
}

// HTTPCompleter posts to {base}/chat/completions with bearer auth.
type HTTPCompleter struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPCompleter fills defaults into cfg. A nil client means http.DefaultClient;
// timeouts come from the per-attempt context.
func NewHTTPCompleter(cfg HTTPConfig, client *http.Client) *HTTPCompleter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCompleter{cfg: cfg, client: client}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// Complete implements Completer.
func (c *HTTPCompleter) Complete(ctx context.Context, cred credential.Credential, messages []*schema.Message) Result {
	payload := completionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]wireMessage, 0, len(messages)),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		payload.Messages = append(payload.Messages, wireMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Outcome: OutcomeFailure, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeFailure, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.SiteName != "" {
		req.Header.Set("X-Title", c.cfg.SiteName)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Outcome: OutcomeFailure, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{Outcome: OutcomeFailure, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if outcome := classifyStatus(resp.StatusCode); outcome != OutcomeSuccess {
		return Result{
			Outcome: outcome,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("upstream status %d: %s", resp.StatusCode, truncate(string(raw), 200)),
		}
	}

	text, ok := ExtractReply(raw)
	if !ok {
		return Result{Outcome: OutcomeSoftFailure, Status: resp.StatusCode, Err: fmt.Errorf("empty or unparseable completion body")}
	}
	return Result{Outcome: OutcomeSuccess, Status: resp.StatusCode, Text: text}
}

// ExtractReply pulls the reply text out of a chat completions body. It prefers
// choices[0].message.content and otherwise joins every non-empty message.content,
// content or text field across all choices. Only strings and content-part arrays
// count as text; objects and numbers are ignored.
func ExtractReply(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}

	if primary := textOf(gjson.GetBytes(body, "choices.0.message.content")); primary != "" {
		return primary, true
	}

	var parts []string
	gjson.GetBytes(body, "choices").ForEach(func(_, choice gjson.Result) bool {
		for _, path := range []string{"message.content", "content", "text"} {
			if part := textOf(choice.Get(path)); part != "" {
				parts = append(parts, part)
			}
		}
		return true
	})
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// textOf reads a content field: a plain string, or an array of parts whose text
// fields are joined.
func textOf(r gjson.Result) string {
	switch {
	case r.Type == gjson.String:
		return strings.TrimSpace(r.Str)
	case r.IsArray():
		var parts []string
		r.ForEach(func(_, part gjson.Result) bool {
			if part.Type == gjson.String {
				if text := strings.TrimSpace(part.Str); text != "" {
					parts = append(parts, text)
				}
				return true
			}
			if text := part.Get("text"); text.Type == gjson.String && strings.TrimSpace(text.Str) != "" {
				parts = append(parts, strings.TrimSpace(text.Str))
			}
			return true
		})
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
