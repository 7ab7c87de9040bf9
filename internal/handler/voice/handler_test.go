package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bzik/backend/internal/model/persona"
	"github.com/zhouzirui/bzik/backend/internal/service/chat"
	"github.com/zhouzirui/bzik/backend/internal/service/conversation"
	"github.com/zhouzirui/bzik/backend/internal/service/dedupe"
	voicesvc "github.com/zhouzirui/bzik/backend/internal/service/voice"
)

func setup(t *testing.T) (*chi.Mux, *chat.Service, *Handler) {
	t.Helper()
	store, err := conversation.OpenFile(filepath.Join(t.TempDir(), "m.json"))
	require.NoError(t, err)

	svc, err := chat.NewService(chat.Deps{
		Personas: persona.NewMemoryStore(persona.Seed()),
		Dedupe:   dedupe.New(0, 0),
		Store:    store,
		Voice:    voicesvc.NewManager(voicesvc.Config{}, zerolog.Nop()),
	})
	require.NoError(t, err)

	h := New(svc)
	h.pushInterval = 10 * time.Millisecond
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, svc, h
}

func startSession(t *testing.T, svc *chat.Service, userID string) {
	t.Helper()
	_, err := svc.HandleChat(context.Background(), chat.Request{UserID: userID, Message: "hello"})
	require.NoError(t, err)
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStatus_ActiveSession(t *testing.T) {
	r, svc, _ := setup(t)
	startSession(t, svc, "u1")

	rec := postJSON(r, "/voice/status", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var st voicesvc.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Active)
	assert.True(t, st.ShouldListen)
	assert.Greater(t, st.TimeRemaining, 100.0)
}

func TestStatus_NoSession(t *testing.T) {
	r, _, _ := setup(t)
	rec := postJSON(r, "/voice/status", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":false`)
	assert.Contains(t, rec.Body.String(), `"listening_until":null`)
}

func TestStatus_InvalidBody(t *testing.T) {
	r, _, _ := setup(t)
	rec := postJSON(r, "/voice/status", `{"user_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnd(t *testing.T) {
	r, svc, _ := setup(t)
	startSession(t, svc, "u1")

	rec := postJSON(r, "/voice/end", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Voice session ended"}`, rec.Body.String())
	assert.False(t, svc.VoiceStatus("u1").Active)
}

func TestWebSocket_PushesStatusAndEnds(t *testing.T) {
	r, svc, _ := setup(t)
	startSession(t, svc, "ws-user")

	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/voice/ws?user_id=ws-user"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first struct {
		Type string          `json:"type"`
		Data voicesvc.Status `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "voice_status", first.Type)
	assert.True(t, first.Data.Active)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "end"}))

	for {
		var msg struct {
			Data voicesvc.Status `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		if msg.Data.ExitTriggered {
			assert.Equal(t, voicesvc.ExitMessage, msg.Data.ExitMessage)
		}
	}
	assert.False(t, svc.VoiceStatus("ws-user").Active)
}
