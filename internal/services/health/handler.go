package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/telemetry"
)

// Handler exposes the health endpoints.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches /health to the API group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
}

// RegisterProbe attaches /healthz at the root for orchestrator probes.
func (h *Handler) RegisterProbe(r gin.IRoutes) {
	r.GET("/healthz", h.healthz)
}

func (h *Handler) health(c *gin.Context) {
	st := h.Svc.Check(c.Request.Context())
	if !st.Healthy() {
		telemetry.Error("health.check_failed", map[string]any{"error": st.Err.Error()})
		respond.JSON(c, http.StatusInternalServerError, gin.H{"ok": false, "status": "degraded"})
		return
	}
	respond.OK(c, gin.H{"ok": true, "status": "healthy"})
}

func (h *Handler) healthz(c *gin.Context) {
	st := h.Svc.Check(c.Request.Context())
	body := gin.H{
		"timestamp": st.CheckedAt.Format(time.RFC3339),
		"database":  st.Database,
	}
	if !st.Healthy() {
		body["status"] = "error"
		body["error"] = st.Err.Error()
		respond.JSON(c, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	respond.OK(c, body)
}
