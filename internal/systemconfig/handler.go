package systemconfig

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/validate"
)

// Handler serves /system-config.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/system-config", h.get)
	rg.PUT("/system-config", h.update)
}

type configResponse struct {
	ID                 string    `json:"id"`
	AppName            string    `json:"appName"`
	LogoURL            *string   `json:"logoUrl"`
	PrimaryColor       string    `json:"primaryColor"`
	SecondaryColor     string    `json:"secondaryColor"`
	PrimaryTextColor   string    `json:"primaryTextColor"`
	SecondaryTextColor string    `json:"secondaryTextColor"`
	BorderRadius       string    `json:"borderRadius"`
	DefaultLocale      string    `json:"defaultLocale"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toResponse(cfg Config) configResponse {
	out := configResponse{
		ID:                 "default",
		AppName:            cfg.AppName,
		PrimaryColor:       cfg.PrimaryColor,
		SecondaryColor:     cfg.SecondaryColor,
		PrimaryTextColor:   cfg.PrimaryTextColor,
		SecondaryTextColor: cfg.SecondaryTextColor,
		BorderRadius:       cfg.BorderRadius,
		DefaultLocale:      cfg.DefaultLocale,
		CreatedAt:          cfg.CreatedAt,
		UpdatedAt:          cfg.UpdatedAt,
	}
	if cfg.LogoURL != "" {
		logo := cfg.LogoURL
		out.LogoURL = &logo
	}
	return out
}

func (h *Handler) get(c *gin.Context) {
	cfg, err := h.Svc.Get(c.Request.Context())
	if err != nil {
		respond.Internal(c, err)
		return
	}
	respond.OK(c, gin.H{"data": toResponse(cfg), "success": true})
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "Datos de configuración inválidos", nil)
		return
	}
	cfg, err := h.Svc.Update(c.Request.Context(), in)
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		respond.BadRequest(c, "Datos de configuración inválidos", verr.Issues)
		return
	case err != nil:
		respond.Internal(c, err)
		return
	}
	respond.OK(c, gin.H{
		"data":    toResponse(cfg),
		"success": true,
		"message": "Configuración actualizada correctamente",
	})
}
