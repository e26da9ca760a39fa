package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

const (
	knownDocID  = "1b4e28ba-2fa1-4d3b-9a5c-7e8f9a0b1c2d"
	unknownUUID = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newHandlerRouter(t *testing.T, repo Repo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &Service{Repo: repo, Now: func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }}
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api"))
	return router
}

func newMemoryRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	repo.Documents = func(id string) (DocumentRef, bool) {
		if id != knownDocID {
			return DocumentRef{}, false
		}
		return DocumentRef{ID: id, OriginalName: "recibo.pdf", MimeType: "application/pdf"}, true
	}
	return newHandlerRouter(t, repo), repo
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

func decodeJob(t *testing.T, rec *httptest.ResponseRecorder) JobResponse {
	t.Helper()
	var out JobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode job: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestEnqueueClampsPriorityAndAttempts(t *testing.T) {
	router, _ := newMemoryRouter(t)

	cases := []struct {
		priority, maxAttempts   int
		wantPriority, wantMaxAt int
	}{
		{-5, 0, 0, 3},
		{99, 50, 10, 10},
		{7, -1, 7, 1},
		{3, 5, 3, 5},
	}
	for _, tc := range cases {
		rec := doJSON(router, http.MethodPost, "/api/jobs", map[string]any{
			"type":        "export",
			"payload":     map[string]any{"documentId": knownDocID},
			"priority":    tc.priority,
			"maxAttempts": tc.maxAttempts,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		job := decodeJob(t, rec)
		if job.Priority != tc.wantPriority || job.MaxAttempts != tc.wantMaxAt {
			t.Fatalf("priority=%d maxAttempts=%d: got %d/%d", tc.priority, tc.maxAttempts, job.Priority, job.MaxAttempts)
		}
		if job.Type != TypeExport || job.Status != StatusQueued || job.Attempts != 0 {
			t.Fatalf("unexpected job: %+v", job)
		}
	}
}

func TestHandlerEnqueueRejectsUnknownType(t *testing.T) {
	router, repo := newMemoryRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/jobs", map[string]any{"type": "RENDER"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if _, total, _ := repo.List(context.Background(), ListFilter{Take: 10}); total != 0 {
		t.Fatalf("expected nothing stored, got %d", total)
	}
}

func TestActionRejectsUnknownAction(t *testing.T) {
	router, _ := newMemoryRouter(t)
	created := decodeJob(t, doJSON(router, http.MethodPost, "/api/jobs", map[string]any{"type": "OCR"}))

	rec := doJSON(router, http.MethodPost, "/api/jobs/"+created.ID, map[string]any{"action": "pause"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	actions, ok := env.Error.Details["validActions"].([]any)
	if !ok || len(actions) != 2 || actions[0] != "retry" || actions[1] != "cancel" {
		t.Fatalf("expected validActions [retry cancel], got %v", env.Error.Details)
	}
}

func TestRetryRequiresErrorStatus(t *testing.T) {
	router, _ := newMemoryRouter(t)
	created := decodeJob(t, doJSON(router, http.MethodPost, "/api/jobs", map[string]any{"type": "OCR"}))

	rec := doJSON(router, http.MethodPost, "/api/jobs/"+created.ID, map[string]any{"action": "retry"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for retry of QUEUED job, got %d", rec.Code)
	}
	var env errorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %q", env.Error.Code)
	}

	rec = doJSON(router, http.MethodPost, "/api/jobs/"+created.ID, map[string]any{"action": "cancel"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}
	cancelled := decodeJob(t, rec)
	if cancelled.Status != StatusError || cancelled.LastError == nil || *cancelled.LastError != cancelledMessage {
		t.Fatalf("unexpected cancelled job: %+v", cancelled)
	}

	rec = doJSON(router, http.MethodPost, "/api/jobs/"+created.ID, map[string]any{"action": "retry"})
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", rec.Code)
	}
	if retried := decodeJob(t, rec); retried.Status != StatusQueued || retried.Attempts != 0 {
		t.Fatalf("unexpected retried job: %+v", retried)
	}
}

func TestUnknownJobIsNotFound(t *testing.T) {
	router, _ := newMemoryRouter(t)

	if rec := doJSON(router, http.MethodGet, "/api/jobs/"+unknownUUID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPost, "/api/jobs/"+unknownUUID, map[string]any{"action": "retry"}); rec.Code != http.StatusNotFound {
		t.Fatalf("retry: expected 404, got %d", rec.Code)
	}
}

func TestMalformedJobIDIsNotFoundWithoutQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	router := newHandlerRouter(t, &PGRepo{DB: db})

	if rec := doJSON(router, http.MethodGet, "/api/jobs/not-a-uuid", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPost, "/api/jobs/not-a-uuid", map[string]any{"action": "cancel"}); rec.Code != http.StatusNotFound {
		t.Fatalf("cancel: expected 404, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestGetIncludesDocument(t *testing.T) {
	router, _ := newMemoryRouter(t)
	created := decodeJob(t, doJSON(router, http.MethodPost, "/api/jobs", map[string]any{
		"type":    "OCR",
		"payload": map[string]any{"documentId": knownDocID, "sha256": "abc"},
	}))

	rec := doJSON(router, http.MethodGet, "/api/jobs/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	job := decodeJob(t, rec)
	if job.Document == nil || job.Document.ID != knownDocID || job.Document.OriginalName != "recibo.pdf" {
		t.Fatalf("expected document block, got %+v", job.Document)
	}
	if job.DocumentID == nil || *job.DocumentID != knownDocID {
		t.Fatalf("expected documentId, got %v", job.DocumentID)
	}
}
