package documents

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/query"
	"docuflow/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.file)
}

func (h *Handler) list(c *gin.Context) {
	page, err := query.Int(c, "page", 1)
	if err != nil {
		respond.BadRequest(c, err.Error(), nil)
		return
	}
	pageSize, err := query.Int(c, "pageSize", 20)
	if err != nil {
		respond.BadRequest(c, err.Error(), nil)
		return
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	f := ListFilter{
		Type:     Type(query.String(c, "type")),
		MemberID: query.String(c, "memberId"),
		Q:        query.String(c, "q"),
		Page:     page,
		PageSize: pageSize,
	}
	items, total, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := listResponse{Data: make([]DocumentResponse, 0, len(items))}
	for _, d := range items {
		out.Data = append(out.Data, toResponse(d, false))
	}
	out.Meta = listMeta{Total: total, Page: page, PageSize: pageSize, TotalPages: query.TotalPages(total, pageSize)}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	d, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(d, true))
}

func (h *Handler) file(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	doc, rc, err := h.Svc.Open(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.OriginalName))
	if doc.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "Document not found")
	case errors.Is(err, ErrInvalidInput):
		respond.BadRequest(c, err.Error(), nil)
	default:
		respond.Internal(c, err)
	}
}
