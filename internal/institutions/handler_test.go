package institutions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, Now: func() time.Time { return time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC) }}
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api"))
	return router, repo
}

func seedInstitutions(t *testing.T, repo *MemoryRepo, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		inst := Institution{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("Institución %03d", i),
			CUIT:      fmt.Sprintf("30-%08d-1", i),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(context.Background(), inst); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestListMetaMatchesServedPageSize(t *testing.T) {
	router, repo := newTestRouter(t)
	seedInstitutions(t, repo, 150)

	cases := []struct {
		query      string
		items      int
		totalPages int
	}{
		{"limit=200", 100, 2},
		{"limit=0", 10, 15},
		{"limit=50&page=3", 50, 3},
		{"", 10, 15},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/institutions?"+tc.query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tc.query, rec.Code)
		}
		var body listResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Data) != tc.items || body.Meta.TotalPages != tc.totalPages || body.Meta.Total != 150 {
			t.Fatalf("%q: got items=%d meta=%+v", tc.query, len(body.Data), body.Meta)
		}
	}
}

func TestListEmptyHasZeroPages(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/institutions?page=0", nil))
	var body listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta.Total != 0 || body.Meta.TotalPages != 0 || body.Meta.Page != 1 {
		t.Fatalf("unexpected meta: %+v", body.Meta)
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, "/api/institutions/not-a-uuid", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d: %s", method, rec.Code, rec.Body.String())
		}
	}
}
