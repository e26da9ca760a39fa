package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/auth"
	"docuflow/internal/shared/server/middleware"
)

func newRouter(t *testing.T) (*gin.Engine, *Service, *auth.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("test-secret", "test", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	svc := newService()
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.Auth(middleware.AuthConfig{Verifier: signer, Required: true, PublicPrefixes: []string{"/api/auth"}}))
	NewHandler(svc, signer).RegisterRoutes(api)
	return r, svc, signer
}

func TestLoginIssuesToken(t *testing.T) {
	r, svc, signer := newRouter(t)
	user, err := svc.Create(context.Background(), "ana@example.com", "Ana", "s3cret-pass")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	body, _ := json.Marshal(loginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := signer.Verify(out.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != user.ID || claims.Email != "ana@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r, svc, _ := newRouter(t)
	if _, err := svc.Create(context.Background(), "ana@example.com", "Ana", "s3cret-pass"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	body, _ := json.Marshal(loginRequest{Email: "ana@example.com", Password: "nope-nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	r, svc, signer := newRouter(t)
	user, err := svc.Create(context.Background(), "ana@example.com", "Ana", "s3cret-pass")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, err := signer.Sign(user.ID, user.Email, user.Name)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["id"] != user.ID || out["name"] != "Ana" {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestMeRequiresToken(t *testing.T) {
	r, _, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
