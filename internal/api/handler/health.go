package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/brandlens/brandlens/internal/api/response"
	"github.com/brandlens/brandlens/internal/cache"
	"github.com/brandlens/brandlens/internal/store"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports service health. The database is required; a cache
// outage only degrades the service because callers fail open without it.
type HealthHandler struct {
	store store.Store
	cache cache.Cache
}

func NewHealthHandler(st store.Store, c cache.Cache) *HealthHandler {
	return &HealthHandler{store: st, cache: c}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	components := map[string]string{"database": "ok", "cache": "ok"}

	if err := h.store.Ping(ctx); err != nil {
		components["database"] = "unreachable"
		status = "unhealthy"
	}
	if err := h.cache.Ping(ctx); err != nil {
		components["cache"] = "unreachable"
		if status == "ok" {
			status = "degraded"
		}
	}

	body := map[string]any{"status": status, "components": components}
	if status == "unhealthy" {
		response.Error(w, http.StatusServiceUnavailable,
			"SERVICE_UNAVAILABLE", "One or more components are unreachable", body)
		return
	}
	response.JSON(w, body)
}
