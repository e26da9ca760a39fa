package members

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/query"
	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/validate"
)

// sortAliases maps accepted sort keys, including the Spanish ones, to columns.
var sortAliases = map[string]string{
	"lastName":  SortLastName,
	"apellido":  SortLastName,
	"firstName": SortFirstName,
	"nombre":    SortFirstName,
	"dni":       SortDNI,
	"joinedAt":  SortJoinedAt,
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches member and socios routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/members", h.list)
	rg.POST("/members", h.create)
	rg.GET("/members/:id", h.get)
	rg.PUT("/members/:id", h.update)
	rg.DELETE("/members/:id", h.delete)

	rg.GET("/socios", h.listSocios)
	rg.POST("/socios", h.createSocio)
	rg.GET("/socios/:id", h.getSocio)
	rg.PATCH("/socios/:id", h.patchSocio)
	rg.DELETE("/socios/:id", h.deactivateSocio)
}

func (h *Handler) list(c *gin.Context) {
	issues := validate.Issues{}
	page, err := query.Int(c, "page", 1)
	if err != nil {
		issues.Add("page", err.Error())
	}
	pageSize, err := query.Int(c, "pageSize", defaultPageSize)
	if err != nil {
		issues.Add("pageSize", err.Error())
	}
	sortKey := query.String(c, "sort")
	if sortKey == "" {
		sortKey = "lastName"
	}
	sort, ok := sortAliases[sortKey]
	if !ok {
		issues.Add("sort", "unknown sort field")
	}
	dir := strings.ToLower(query.String(c, "dir"))
	if dir != "" && dir != "asc" && dir != "desc" {
		issues.Add("dir", "must be asc or desc")
	}
	if len(issues) > 0 {
		respond.BadRequest(c, "Invalid query", issues)
		return
	}

	f := ListFilter{
		Q:             query.String(c, "q"),
		Status:        Status(query.String(c, "status")),
		InstitutionID: query.String(c, "institutionId"),
		Sort:          sort,
		Desc:          dir == "desc",
		Page:          page,
		PageSize:      pageSize,
	}
	rows, total, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := listResponse{Data: make([]memberResponse, 0, len(rows))}
	for _, row := range rows {
		out.Data = append(out.Data, toResponse(row))
	}
	out.Meta = listMeta{Total: total, Page: page, PageSize: pageSize, TotalPages: query.TotalPages(total, pageSize)}
	respond.OK(c, out)
}

func (h *Handler) create(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	m, err := h.Svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	row, _, err := h.Svc.Get(c.Request.Context(), m.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.Created(c, toResponse(row))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	row, docs, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := toResponse(row)
	out.Count = &countResponse{Documents: docs}
	respond.OK(c, out)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	m, err := h.Svc.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	row, _, err := h.Svc.Get(c.Request.Context(), m.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(row))
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

func (h *Handler) listSocios(c *gin.Context) {
	page, _ := query.Int(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize, _ := query.Int(c, "pageSize", defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	f := ListFilter{
		Q:        query.String(c, "search"),
		SkipDNI:  true,
		Sort:     SortCreatedAt,
		Desc:     true,
		Page:     page,
		PageSize: pageSize,
	}
	rows, total, err := h.Svc.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := socioListResponse{Data: make([]socioResponse, 0, len(rows))}
	for _, row := range rows {
		out.Data = append(out.Data, toSocio(row.Member))
	}
	out.Meta = listMeta{Total: total, Page: page, PageSize: pageSize, TotalPages: query.TotalPages(total, pageSize)}
	respond.OK(c, out)
}

func (h *Handler) createSocio(c *gin.Context) {
	var req socioCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	m, err := h.Svc.CreateBasic(c.Request.Context(), BasicInput(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.Created(c, toSocio(m))
}

func (h *Handler) getSocio(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	row, docs, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := toSocio(row.Member)
	out.DocumentsCount = &docs
	respond.OK(c, gin.H{"data": out})
}

func (h *Handler) patchSocio(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	var req socioPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	m, err := h.Svc.Patch(c.Request.Context(), id, Patch(req))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"data": toSocio(m)})
}

func (h *Handler) deactivateSocio(c *gin.Context) {
	id, ok := query.ID(c, "id")
	if !ok {
		h.writeError(c, ErrNotFound)
		return
	}
	if err := h.Svc.Deactivate(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		respond.BadRequest(c, "invalid member data", verr.Issues)
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "Member not found")
	case errors.Is(err, ErrInstitutionNotFound):
		respond.NotFound(c, "Institution not found")
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "Another member with this DNI or email already exists", nil)
	case errors.Is(err, ErrHasDocuments):
		respond.Error(c, http.StatusBadRequest, "has_dependents", "Cannot delete member with documents. Please remove all documents first.", nil)
	default:
		respond.Internal(c, err)
	}
}
