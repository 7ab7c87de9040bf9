package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/zhouzirui/bzik/backend/internal/handler/chat"
	"github.com/zhouzirui/bzik/backend/internal/handler/health"
	"github.com/zhouzirui/bzik/backend/internal/handler/persona"
	"github.com/zhouzirui/bzik/backend/internal/handler/stream"
	"github.com/zhouzirui/bzik/backend/internal/handler/voice"
	middlewarePkg "github.com/zhouzirui/bzik/backend/internal/middleware"
	personaModel "github.com/zhouzirui/bzik/backend/internal/model/persona"
	chatService "github.com/zhouzirui/bzik/backend/internal/service/chat"
	"github.com/zhouzirui/bzik/backend/internal/service/credential"
)

// Deps 是路由依赖的核心服务。
type Deps struct {
	Personas      personaModel.Store
	Chat          *chatService.Service
	Pool          *credential.Pool
	Provider      string
	MaxConcurrent int
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	maxConcurrent := deps.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	throttle := middleware.ThrottleBacklog(maxConcurrent, maxConcurrent*4, 30*time.Second)

	personaHandler := persona.New(deps.Personas)
	chatHandler := chat.New(deps.Chat)
	voiceHandler := voice.New(deps.Chat)
	streamHandler := stream.New(deps.Chat)
	healthHandler := health.New(deps.Pool, deps.Provider)

	// 兼容旧前端：/chat 与 /health 也挂在根路径。
	r.Group(func(root chi.Router) {
		root.Use(throttle, middlewarePkg.NoCache)
		chatHandler.RegisterRoutes(root)
	})
	healthHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		healthHandler.RegisterRoutes(api)

		api.Group(func(work chi.Router) {
			work.Use(throttle, middlewarePkg.NoCache)
			chatHandler.RegisterRoutes(work)
			streamHandler.RegisterRoutes(work)
		})

		// websocket 连接是长连接，不占用并发配额。
		voiceHandler.RegisterRoutes(api)
	})

	return r
}

// requestIDField copies chi's request id into the request logger.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger := zerolog.Ctx(r.Context())
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
