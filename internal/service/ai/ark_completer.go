package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"github.com/zhouzirui/bzik/backend/internal/service/credential"
)

// ArkConfig 描述火山方舟模型调用参数，API Key 来自凭证池。
type ArkConfig struct {
	BaseURL     string
	Region      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ArkCompleter calls an Ark chat model through eino-ext. One model client is built
// lazily per credential and reused.
type ArkCompleter struct {
	cfg ArkConfig

	mu     sync.Mutex
	models map[string]model.BaseChatModel

	// newModel is ark.NewChatModel; tests replace it.
	newModel func(ctx context.Context, cfg *ark.ChatModelConfig) (model.BaseChatModel, error)
}

// NewArkCompleter creates the completer. No network traffic happens until the first
// Complete.
func NewArkCompleter(cfg ArkConfig) *ArkCompleter {
	return &ArkCompleter{
		cfg:    cfg,
		models: make(map[string]model.BaseChatModel),
		newModel: func(ctx context.Context, c *ark.ChatModelConfig) (model.BaseChatModel, error) {
			return ark.NewChatModel(ctx, c)
		},
	}
}

// Complete implements Completer.
func (c *ArkCompleter) Complete(ctx context.Context, cred credential.Credential, messages []*schema.Message) Result {
	chatModel, err := c.modelFor(ctx, cred)
	if err != nil {
		return Result{Outcome: OutcomeFailure, Err: err}
	}

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return Result{Outcome: classifyError(err), Err: fmt.Errorf("ark generate: %w", err)}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return Result{Outcome: OutcomeSoftFailure, Err: fmt.Errorf("ark returned empty content")}
	}
	return Result{Outcome: OutcomeSuccess, Text: strings.TrimSpace(resp.Content)}
}

func (c *ArkCompleter) modelFor(ctx context.Context, cred credential.Credential) (model.BaseChatModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[cred.ID]; ok {
		return m, nil
	}

	if c.cfg.Model == "" {
		return nil, fmt.Errorf("ark model 未配置")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL: c.cfg.BaseURL,
		Region:  c.cfg.Region,
		APIKey:  cred.Token,
		Model:   c.cfg.Model,
	}
	if c.cfg.MaxTokens > 0 {
		maxTokens := c.cfg.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	temperature := float32(c.cfg.Temperature)
	cfg.Temperature = &temperature

	m, err := c.newModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	c.models[cred.ID] = m
	return m, nil
}

// classifyError maps an ark SDK error onto an outcome. The HTTP status carried by the
// SDK's typed errors wins; text matching only covers errors that lost their status.
func classifyError(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusOutcome(apiErr.HTTPStatusCode)
	}
	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusOutcome(reqErr.HTTPStatusCode)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "toomanyrequests"):
		return OutcomeRateLimited
	case strings.Contains(msg, "status code: 402"),
		strings.Contains(msg, "exceeded your current quota"),
		strings.Contains(msg, "insufficient balance"),
		strings.Contains(msg, "insufficient_quota"):
		return OutcomeQuotaExhausted
	default:
		return OutcomeFailure
	}
}

// statusOutcome is classifyStatus for a call that still failed; a 200 here means the
// body could not be decoded.
func statusOutcome(status int) Outcome {
	if outcome := classifyStatus(status); outcome != OutcomeSuccess {
		return outcome
	}
	return OutcomeSoftFailure
}
