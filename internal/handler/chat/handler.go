package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/zhouzirui/bzik/backend/internal/service/chat"
	"github.com/zhouzirui/bzik/backend/internal/service/voice"
	"github.com/zhouzirui/bzik/backend/pkg/utils"
)

const invalidJSONReply = "Error: Invalid JSON data"

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chat.Service
}

// New 创建聊天处理器
func New(chatSvc *chat.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
}

// Payload is the inbound chat body.
type Payload struct {
	Message      string   `json:"message"`
	UserID       string   `json:"user_id"`
	Voice        string   `json:"voice"`
	Timestamp    *float64 `json:"timestamp,omitempty"`
	IsMobile     bool     `json:"is_mobile"`
	IsVoiceInput bool     `json:"is_voice_input"`
}

// Response is the chat reply body.
type Response struct {
	Reply                 string        `json:"reply"`
	Success               bool          `json:"success"`
	Duplicate             bool          `json:"duplicate,omitempty"`
	Source                string        `json:"source,omitempty"`
	SelectedVoice         string        `json:"selected_voice,omitempty"`
	BackendVoice          string        `json:"backend_voice,omitempty"`
	MessageSaved          bool          `json:"message_saved"`
	VoiceResponseFinished bool          `json:"voice_response_finished"`
	Timestamp             float64       `json:"timestamp,omitempty"`
	UserID                string        `json:"user_id,omitempty"`
	IsMobile              bool          `json:"is_mobile"`
	IsVoiceInput          bool          `json:"is_voice_input"`
	RequestID             string        `json:"request_id,omitempty"`
	VoiceSession          *voice.Status `json:"voice_session,omitempty"`
}

// HandleChat answers POST /api/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	var payload Payload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		logger.Debug().Err(err).Msg("chat 请求体解析失败")
		utils.RespondJSON(w, http.StatusBadRequest, Response{Reply: invalidJSONReply})
		return
	}

	result, err := h.chatSvc.HandleChat(r.Context(), chat.Request{
		UserID:       payload.UserID,
		Message:      payload.Message,
		Persona:      strings.TrimSpace(payload.Voice),
		IsVoiceInput: payload.IsVoiceInput,
		IsMobile:     payload.IsMobile,
	})
	if errors.Is(err, chat.ErrEmptyMessage) {
		utils.RespondJSON(w, http.StatusBadRequest, Response{
			Reply:  chat.EmptyMessageReply,
			UserID: result.UserID,
		})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("chat 请求处理失败")
		utils.RespondJSON(w, http.StatusOK, Response{Reply: chat.ErrorReply})
		return
	}

	utils.RespondJSON(w, http.StatusOK, toResponse(result))
}

func toResponse(res chat.Result) Response {
	out := Response{
		Reply:                 res.Reply,
		Success:               res.Success,
		Duplicate:             res.Duplicate,
		Source:                string(res.Source),
		SelectedVoice:         string(res.SelectedVoice),
		BackendVoice:          res.BackendVoice,
		MessageSaved:          res.MessageSaved,
		VoiceResponseFinished: res.Success && !res.Duplicate,
		UserID:                res.UserID,
		IsMobile:              res.IsMobile,
		IsVoiceInput:          res.IsVoiceInput,
		RequestID:             res.RequestID,
		VoiceSession:          res.VoiceSession,
	}
	if !res.Timestamp.IsZero() {
		out.Timestamp = float64(res.Timestamp.UnixNano()) / 1e9
	}
	return out
}
