// Package chat orchestrates one chat turn: duplicate check, history, knowledge,
// upstream dispatch, fallback, persistence and voice session bookkeeping.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/bzik/backend/internal/analysis/fallback"
	chatmodel "github.com/zhouzirui/bzik/backend/internal/model/chat"
	"github.com/zhouzirui/bzik/backend/internal/model/persona"
	"github.com/zhouzirui/bzik/backend/internal/service/ai"
	"github.com/zhouzirui/bzik/backend/internal/service/conversation"
	"github.com/zhouzirui/bzik/backend/internal/service/dedupe"
	"github.com/zhouzirui/bzik/backend/internal/service/voice"
)

const (
	DefaultUserID = "default_user"

	EmptyMessageReply = "Please provide a message to chat with me!"
	ErrorReply        = "Oops, something went wrong on my end. Let's give it another shot!"
	// emptyReplyGuard replaces a blank reply from any stage.
	emptyReplyGuard = "I'm having some connectivity issues right now, but I'm still here to chat!"
)

// ErrEmptyMessage is returned for a blank message; nothing is recorded.
var ErrEmptyMessage = errors.New("message is required")

// Source 标识回复的来源。
type Source string

const (
	SourceCache     Source = "cache"
	SourceKnowledge Source = "knowledge"
	SourceLLM       Source = "llm"
	SourceFallback  Source = "fallback"
	SourceError     Source = "error"
)

// Request is one inbound chat message.
type Request struct {
	UserID       string
	Message      string
	Persona      string
	IsVoiceInput bool
	IsMobile     bool
}

// Result is everything the transport needs to answer.
type Result struct {
	Reply         string
	Success       bool
	Duplicate     bool
	Source        Source
	SelectedVoice persona.ID
	BackendVoice  string
	MessageSaved  bool
	Timestamp     time.Time
	UserID        string
	IsVoiceInput  bool
	IsMobile      bool
	RequestID     string
	VoiceSession  *voice.Status
}

// Dispatcher produces an upstream reply or reports that none is available.
type Dispatcher interface {
	Dispatch(ctx context.Context, req ai.Request) (string, bool)
}

// KnowledgeBase answers canned questions.
type KnowledgeBase interface {
	Lookup(message string) (string, bool)
}

// Service owns the per-request flow. It is safe for concurrent use; requests from the
// same user are serialized.
type Service struct {
	personas   persona.Store
	knowledge  KnowledgeBase
	dispatcher Dispatcher
	dedupe     *dedupe.Suppressor
	store      conversation.Store
	voice      *voice.Manager
	locks      *userLocks
	now        func() time.Time
	logger     zerolog.Logger
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Personas   persona.Store
	Knowledge  KnowledgeBase
	Dispatcher Dispatcher
	Dedupe     *dedupe.Suppressor
	Store      conversation.Store
	Voice      *voice.Manager
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService validates deps and builds the service.
func NewService(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Personas == nil:
		return nil, fmt.Errorf("chat service: persona store is required")
	case deps.Dedupe == nil:
		return nil, fmt.Errorf("chat service: duplicate suppressor is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("chat service: conversation store is required")
	case deps.Voice == nil:
		return nil, fmt.Errorf("chat service: voice manager is required")
	}

	s := &Service{
		personas:   deps.Personas,
		knowledge:  deps.Knowledge,
		dispatcher: deps.Dispatcher,
		dedupe:     deps.Dedupe,
		store:      deps.Store,
		voice:      deps.Voice,
		locks:      newUserLocks(),
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "chat").Logger()
	return s, nil
}

// NormalizeUserID maps a blank id onto DefaultUserID.
func NormalizeUserID(raw string) string {
	if id := strings.TrimSpace(raw); id != "" {
		return id
	}
	return DefaultUserID
}

// HandleChat answers one message. The only error is ErrEmptyMessage; every other
// failure still yields a well-formed Result.
func (s *Service) HandleChat(ctx context.Context, req Request) (res Result, err error) {
	message := strings.TrimSpace(req.Message)
	userID := NormalizeUserID(req.UserID)
	if message == "" {
		return Result{Reply: EmptyMessageReply, UserID: userID}, ErrEmptyMessage
	}

	p := s.personas.Resolve(req.Persona)
	now := s.now()
	res = Result{
		SelectedVoice: p.ID,
		BackendVoice:  p.BackendVoice,
		Timestamp:     now,
		UserID:        userID,
		IsVoiceInput:  req.IsVoiceInput,
		IsMobile:      req.IsMobile,
		RequestID:     uuid.NewString(),
	}
	logger := s.logger.With().Str("user_id", userID).Str("request_id", res.RequestID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("处理聊天请求时发生异常")
			res.Reply = ErrorReply
			res.Success = false
			res.Source = SourceError
			res.Duplicate = false
			res.VoiceSession = nil
			err = nil
		}
	}()

	unlock := s.locks.Lock(userID)
	defer unlock()

	if cached, dup := s.dedupe.Check(userID, message, now); dup {
		logger.Info().Msg("重复消息，返回缓存回复")
		status := s.voice.Peek(userID, now)
		res.Reply = cached
		res.Success = true
		res.Duplicate = true
		res.Source = SourceCache
		res.VoiceSession = &status
		return res, nil
	}

	history, loadErr := s.store.Load(ctx, userID)
	if loadErr != nil {
		logger.Warn().Err(loadErr).Msg("加载对话历史失败，按空历史处理")
		history = nil
	}

	exiting := s.voice.DetectExit(message)

	reply, source := s.resolve(ctx, p, history, message)
	if strings.TrimSpace(reply) == "" {
		logger.Error().Str("source", string(source)).Msg("回复为空，使用兜底文案")
		reply = emptyReplyGuard
	}

	if _, appendErr := s.store.Append(ctx, userID, chatmodel.UserTurn(message), chatmodel.AssistantTurn(reply)); appendErr != nil {
		logger.Error().Err(appendErr).Msg("保存对话失败")
		res.MessageSaved = false
	} else {
		res.MessageSaved = true
	}

	s.dedupe.Record(userID, message, reply, now)

	// the listening window opens when the reply is ready, not when the request arrived
	replyAt := s.now()
	var status voice.Status
	if exiting {
		logger.Info().Msg("检测到结束语，关闭语音会话")
		status = s.voice.End(userID)
	} else {
		status = s.voice.Begin(userID, replyAt)
	}

	res.Reply = reply
	res.Success = true
	res.Source = source
	res.VoiceSession = &status

	logger.Info().Str("source", string(source)).Str("persona", string(p.ID)).Bool("saved", res.MessageSaved).Msg("聊天请求完成")
	return res, nil
}

// resolve walks knowledge, upstream and fallback in order.
func (s *Service) resolve(ctx context.Context, p persona.Persona, history []chatmodel.Turn, message string) (string, Source) {
	if s.knowledge != nil {
		if answer, ok := s.knowledge.Lookup(message); ok {
			return answer, SourceKnowledge
		}
	}

	if s.dispatcher != nil {
		if reply, ok := s.dispatcher.Dispatch(ctx, ai.Request{Persona: p, History: history, Message: message}); ok {
			return reply, SourceLLM
		}
	}

	return fallback.Reply(message, p), SourceFallback
}

// VoiceStatus advances and returns the user's voice session.
func (s *Service) VoiceStatus(userID string) voice.Status {
	return s.voice.Poll(NormalizeUserID(userID), s.now())
}

// EndVoice closes the user's voice session.
func (s *Service) EndVoice(userID string) voice.Status {
	return s.voice.End(NormalizeUserID(userID))
}

// Personas lists the selectable personas.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}
