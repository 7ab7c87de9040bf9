// Package health reports liveness and credential pool state.
package health

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/bzik/backend/internal/service/credential"
	"github.com/zhouzirui/bzik/backend/pkg/utils"
)

// Handler serves GET /health.
type Handler struct {
	pool     *credential.Pool
	provider string
	now      func() time.Time
}

// New creates the handler. pool may be nil when no credentials are configured.
func New(pool *credential.Pool, provider string) *Handler {
	return &Handler{pool: pool, provider: provider, now: time.Now}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := []credential.Status{}
	keys := 0
	if h.pool != nil {
		keys = h.pool.Len()
		statuses = h.pool.Statuses(h.now())
	}

	available := 0
	for _, s := range statuses {
		if !s.CoolingDown {
			available++
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"keys":        keys,
		"available":   available,
		"provider":    h.provider,
		"credentials": statuses,
	})
}
