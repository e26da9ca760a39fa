package jobs

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/query"
	"docuflow/internal/shared/server/respond"
)

var validActions = []string{"retry", "cancel"}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.enqueue)
	rg.GET("/jobs", h.list)
	rg.GET("/jobs/:id", h.get)
	rg.POST("/jobs/:id", h.action)
}

func (h *Handler) enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	job, err := h.Svc.Enqueue(c.Request.Context(), EnqueueOptions{
		Type:        Type(strings.ToUpper(strings.TrimSpace(req.Type))),
		Payload:     req.Payload,
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
		ScheduledAt: req.ScheduledAt,
		DocumentID:  req.DocumentID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.Created(c, toResponse(job))
}

func (h *Handler) list(c *gin.Context) {
	take, err := query.Int(c, "take", defaultTake)
	if err != nil {
		respond.BadRequest(c, err.Error(), nil)
		return
	}
	skip, err := query.Int(c, "skip", 0)
	if err != nil {
		respond.BadRequest(c, err.Error(), nil)
		return
	}
	items, total, f, err := h.Svc.List(c.Request.Context(), ListFilter{
		Status: Status(strings.ToUpper(query.String(c, "status"))),
		Type:   Type(strings.ToUpper(query.String(c, "type"))),
		Skip:   skip,
		Take:   take,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := listResponse{Items: make([]JobResponse, 0, len(items)), Total: total, Skip: f.Skip, Take: f.Take}
	for _, l := range items {
		out.Items = append(out.Items, toListedResponse(l))
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	l, err := h.Svc.Detail(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toListedResponse(l))
}

func (h *Handler) action(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", gin.H{"validActions": validActions})
		return
	}
	var (
		job Job
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "retry":
		job, err = h.Svc.Retry(c.Request.Context(), id)
	case "cancel":
		job, err = h.Svc.Cancel(c.Request.Context(), id)
	default:
		respond.BadRequest(c, "Invalid action", gin.H{"validActions": validActions})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(job))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "Job not found")
	case errors.Is(err, ErrInvalidInput):
		respond.BadRequest(c, err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusBadRequest, "invalid_transition", "Job cannot perform this action in its current status", nil)
	default:
		respond.Internal(c, err)
	}
}
