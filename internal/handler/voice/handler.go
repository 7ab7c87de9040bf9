// Package voice exposes the voice session state over HTTP and websocket.
package voice

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"

	"github.com/zhouzirui/bzik/backend/internal/service/chat"
	"github.com/zhouzirui/bzik/backend/pkg/utils"
)

const (
	defaultPushInterval = time.Second
	readTimeout         = 60 * time.Second
	writeTimeout        = 10 * time.Second
)

// Handler 语音会话的HTTP处理器
type Handler struct {
	chatSvc      *chat.Service
	upgrader     websocket.Upgrader
	pushInterval time.Duration
}

// New 创建语音会话处理器
func New(chatSvc *chat.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pushInterval: defaultPushInterval,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice", func(vr chi.Router) {
		vr.Post("/status", h.handleStatus)
		vr.Post("/end", h.handleEnd)
		vr.Get("/ws", h.handleWebSocket)
	})
}

type userPayload struct {
	UserID string `json:"user_id"`
}

// handleStatus 轮询语音会话状态，会推进静默计时。
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.VoiceStatus(payload.UserID))
}

// handleEnd 结束语音会话。
func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.chatSvc.EndVoice(payload.UserID)
	hlog.FromRequest(r).Debug().Str("user_id", chat.NormalizeUserID(payload.UserID)).Msg("语音会话已结束")
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Voice session ended"})
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket pushes the polled status every interval until the session exits or
// the client disconnects. A client message {"type":"end"} closes the session.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chat.NormalizeUserID(r.URL.Query().Get("user_id"))
	logger := hlog.FromRequest(r).With().Str("user_id", userID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	endRequested := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug().Err(err).Msg("websocket read error")
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if strings.EqualFold(msg.Type, "end") {
				select {
				case endRequested <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	// first status goes out immediately
	if exit := h.push(conn, userID, false); exit {
		h.closeNormal(conn)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-endRequested:
			h.push(conn, userID, true)
			h.closeNormal(conn)
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if exit := h.push(conn, userID, false); exit {
				h.closeNormal(conn)
				return
			}
		}
	}
}

// push writes one status frame and reports whether the session has ended.
func (h *Handler) push(conn *websocket.Conn, userID string, end bool) bool {
	status := h.chatSvc.VoiceStatus(userID)
	if end {
		status = h.chatSvc.EndVoice(userID)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(outgoingMessage{
		Type:      "voice_status",
		UserID:    userID,
		Data:      status,
		Timestamp: time.Now().UnixMilli(),
	})
	return err != nil || status.ExitTriggered
}

func (h *Handler) closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "voice session ended")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}
