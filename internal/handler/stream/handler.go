package stream

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/zhouzirui/bzik/backend/internal/service/chat"
	"github.com/zhouzirui/bzik/backend/pkg/utils"
)

// Handler delivers a chat turn as Server-Sent Events.
type Handler struct {
	chatSvc *chat.Service
}

// New creates a new stream handler
func New(chatSvc *chat.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册 SSE 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

// Event is one SSE payload.
type Event struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	Source    string `json:"source,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Persona   string `json:"persona,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleStream answers GET /stream?message=&user_id=&voice= with start, message,
// voice_session and end events.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	query := r.URL.Query()
	message := query.Get("message")
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	logger := hlog.FromRequest(r)
	utils.SetupSSEHeaders(w)

	req := chat.Request{
		UserID:  query.Get("user_id"),
		Message: message,
		Persona: query.Get("voice"),
	}

	result, err := h.chatSvc.HandleChat(r.Context(), req)
	if err != nil {
		content := chat.ErrorReply
		if errors.Is(err, chat.ErrEmptyMessage) {
			content = chat.EmptyMessageReply
		}
		logger.Debug().Err(err).Msg("stream 请求处理失败")
		_ = utils.SendSSEEvent(w, flusher, "error", Event{Event: "error", Error: content})
		return
	}

	events := []struct {
		name string
		data any
	}{
		{"start", Event{Event: "start", Persona: string(result.SelectedVoice), RequestID: result.RequestID}},
		{"message", Event{Event: "message", Content: result.Reply, Source: string(result.Source), Duplicate: result.Duplicate}},
		{"voice_session", result.VoiceSession},
		{"end", Event{Event: "end", Finished: true, RequestID: result.RequestID}},
	}
	for _, ev := range events {
		if r.Context().Err() != nil {
			return
		}
		if err := utils.SendSSEEvent(w, flusher, ev.name, ev.data); err != nil {
			logger.Debug().Err(err).Str("event", ev.name).Msg("sse 写入失败")
			return
		}
	}
}
