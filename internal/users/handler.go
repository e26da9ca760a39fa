package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/server/middleware"
	"docuflow/internal/shared/server/respond"
)

// TokenSigner issues session tokens.
type TokenSigner interface {
	Sign(subject, email, name string) (string, error)
}

type Handler struct {
	Svc    *Service
	Signer TokenSigner
}

func NewHandler(svc *Service, signer TokenSigner) *Handler {
	return &Handler{Svc: svc, Signer: signer}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.login)
	rg.GET("/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.BadRequest(c, "email and password are required", nil)
		return
	}
	if h.Signer == nil {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "token signing not configured", nil)
		return
	}
	user, err := h.Svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid email or password", nil)
		return
	}
	if err != nil {
		respond.Internal(c, err)
		return
	}
	token, err := h.Signer.Sign(user.ID, user.Email, user.Name)
	if err != nil {
		respond.Internal(c, err)
		return
	}
	respond.OK(c, gin.H{"token": token})
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "user not found")
			return
		}
		respond.Internal(c, err)
		return
	}
	out := gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"avatarUrl": user.AvatarURL,
	}
	if user.GitHubLogin != nil {
		out["githubLogin"] = *user.GitHubLogin
	}
	respond.OK(c, out)
}
