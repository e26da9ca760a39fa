package institutions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/query"
	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/validate"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches institution routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/institutions", h.list)
	rg.POST("/institutions", h.create)
	rg.GET("/institutions/:id", h.get)
	rg.PUT("/institutions/:id", h.update)
	rg.DELETE("/institutions/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	page, err := query.Int(c, "page", 1)
	if err != nil {
		respond.BadRequest(c, err.Error(), nil)
		return
	}
	limit, err := query.Int(c, "limit", defaultLimit)
	if err != nil {
		respond.BadRequest(c, err.Error(), nil)
		return
	}

	f := ListFilter{Search: query.String(c, "search"), Page: page, Limit: limit}.normalized()
	items, total, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		respond.Internal(c, err)
		return
	}

	out := listResponse{Data: make([]institutionResponse, 0, len(items))}
	for _, inst := range items {
		out.Data = append(out.Data, toResponse(inst))
	}
	out.Meta = listMeta{Total: total, Page: f.Page, TotalPages: query.TotalPages(total, f.Limit)}
	respond.OK(c, out)
}

func (h *Handler) create(c *gin.Context) {
	var req institutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	inst, err := h.Svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.Created(c, toResponse(inst))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	inst, counts, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := toResponse(inst)
	out.Count = &countResponse{Members: counts.Members, Documents: counts.Documents}
	respond.OK(c, out)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	var req institutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	inst, err := h.Svc.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(inst))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		respond.BadRequest(c, "name and cuit are required and must be valid", verr.Issues)
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "Institution not found")
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "An institution with this CUIT already exists", nil)
	case errors.Is(err, ErrHasDependents):
		respond.Error(c, http.StatusBadRequest, "has_dependents", "Cannot delete institution with associated members or documents", nil)
	default:
		respond.Internal(c, err)
	}
}
