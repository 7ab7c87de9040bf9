// Package ai turns a user message into an upstream completion, failing over across
// every configured credential.
package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/bzik/backend/internal/model/chat"
	"github.com/zhouzirui/bzik/backend/internal/model/persona"
	"github.com/zhouzirui/bzik/backend/internal/service/credential"
)

// DefaultAttemptTimeout bounds a single upstream call.
const DefaultAttemptTimeout = 15 * time.Second

// Request is the dispatcher input for one chat turn.
type Request struct {
	Persona persona.Persona
	History []chat.Turn
	Message string
}

// Dispatcher walks the credential pool once per request.
type Dispatcher struct {
	pool      *credential.Pool
	completer Completer
	prompts   *PromptBuilder
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithAttemptTimeout overrides DefaultAttemptTimeout.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithClock injects the time source used for cooldown checks.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(b *PromptBuilder) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.prompts = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher wires a pool to a transport.
func NewDispatcher(pool *credential.Pool, completer Completer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pool:      pool,
		completer: completer,
		prompts:   NewPromptBuilder(DefaultHistoryLimit),
		timeout:   DefaultAttemptTimeout,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "dispatcher").Logger()
	return d
}

// Dispatch returns the first successful reply. ok is false when every credential was
// skipped or failed, or ctx ended; Dispatch never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (reply string, ok bool) {
	if d == nil || d.pool == nil || d.completer == nil {
		return "", false
	}
	creds := d.pool.Snapshot()
	if len(creds) == 0 {
		return "", false
	}

	messages, err := d.prompts.Build(ctx, req.Persona, req.History, req.Message)
	if err != nil {
		d.logger.Error().Err(err).Msg("构建请求消息失败")
		return "", false
	}

	for i, cred := range creds {
		if ctx.Err() != nil {
			return "", false
		}
		if d.pool.InCooldown(cred.ID, d.now()) {
			d.logger.Debug().Str("credential", cred.ID).Int("position", i).Msg("凭证冷却中，跳过")
			continue
		}

		result := d.attempt(ctx, cred, messages)

		// caller gave up: not the credential's fault
		if ctx.Err() != nil {
			d.logger.Debug().Str("credential", cred.ID).Msg("请求已取消，停止尝试")
			return "", false
		}

		if result.Outcome == OutcomeSuccess {
			d.pool.RecordSuccess(cred.ID)
			d.logger.Debug().Str("credential", cred.ID).Int("position", i).Int("length", len(result.Text)).Msg("上游返回成功")
			return result.Text, true
		}

		kind := result.Outcome.failureKind()
		d.pool.RecordFailure(cred.ID, kind)
		d.logger.Warn().
			Err(result.Err).
			Str("credential", cred.ID).
			Int("position", i).
			Int("status", result.Status).
			Str("outcome", result.Outcome.String()).
			Msg("上游调用失败，尝试下一个凭证")
	}

	d.logger.Info().Int("credentials", len(creds)).Msg("所有凭证均不可用")
	return "", false
}

func (d *Dispatcher) attempt(ctx context.Context, cred credential.Credential, messages []*schema.Message) Result {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result := d.completer.Complete(attemptCtx, cred, messages)
	if result.Outcome == OutcomeSuccess && result.Text == "" {
		result.Outcome = OutcomeSoftFailure
	}
	if result.Outcome != OutcomeSuccess && result.Err == nil {
		result.Err = errors.New(result.Outcome.String())
	}
	return result
}
