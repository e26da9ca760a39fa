package members

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(newTestService()).RegisterRoutes(router.Group("/api"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSociosLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/socios", map[string]any{"firstName": "Ana", "lastName": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("create without lastName: expected 400, got %d", rec.Code)
	}

	rec = doJSON(router, http.MethodPost, "/api/socios", map[string]any{"firstName": " Ana ", "lastName": "Paz", "email": "ana@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created socioResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.FirstName != "Ana" || created.Status != StatusPendingVerification {
		t.Fatalf("unexpected socio: %+v", created)
	}

	rec = doJSON(router, http.MethodGet, "/api/socios/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var got struct {
		Data socioResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data.ID != created.ID || got.Data.DocumentsCount == nil || *got.Data.DocumentsCount != 0 {
		t.Fatalf("unexpected get body: %+v", got.Data)
	}

	rec = doJSON(router, http.MethodPatch, "/api/socios/"+created.ID, map[string]any{"status": "active", "phone": "  "})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data.Status != StatusActive || got.Data.Phone != nil {
		t.Fatalf("unexpected patched socio: %+v", got.Data)
	}

	rec = doJSON(router, http.MethodPatch, "/api/socios/"+created.ID, map[string]any{"status": "ZOMBIE"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("patch unknown status: expected 400, got %d", rec.Code)
	}

	rec = doJSON(router, http.MethodDelete, "/api/socios/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(router, http.MethodGet, "/api/socios/"+created.ID, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data.Status != StatusInactive {
		t.Fatalf("expected deactivated socio, got %s", got.Data.Status)
	}
}

func TestListSociosClampsPageSize(t *testing.T) {
	router := newTestRouter(t)
	for _, name := range []string{"Ana", "Beto", "Carla"} {
		if rec := doJSON(router, http.MethodPost, "/api/socios", map[string]any{"firstName": name, "lastName": "Paz"}); rec.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", name, rec.Code)
		}
	}

	rec := doJSON(router, http.MethodGet, "/api/socios?pageSize=500&search=paz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body socioListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 3 || body.Meta.PageSize != maxPageSize || body.Meta.TotalPages != 1 || body.Meta.Total != 3 {
		t.Fatalf("unexpected list: len=%d meta=%+v", len(body.Data), body.Meta)
	}

	rec = doJSON(router, http.MethodGet, "/api/socios?search=nadie", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta.Total != 0 || body.Meta.TotalPages != 0 {
		t.Fatalf("expected empty page meta, got %+v", body.Meta)
	}
}

func TestMalformedMemberIDIsNotFound(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/members/not-a-uuid"},
		{http.MethodPut, "/api/members/not-a-uuid"},
		{http.MethodDelete, "/api/members/not-a-uuid"},
		{http.MethodGet, "/api/socios/42"},
		{http.MethodPatch, "/api/socios/42"},
		{http.MethodDelete, "/api/socios/42"},
	}
	for _, p := range paths {
		rec := doJSON(router, p.method, p.path, map[string]any{})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestListRejectsMalformedInstitutionFilter(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodGet, "/api/members?institutionId=inst-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doJSON(router, http.MethodGet, "/api/members?institutionId=0f8fad5b-d9cb-469f-a165-70867728950e", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for uuid filter, got %d", rec.Code)
	}
}
