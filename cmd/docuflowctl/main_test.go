package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docuflow/internal/bootstrap"
	"docuflow/internal/documents"
	"docuflow/internal/jobs"
	"docuflow/internal/shared/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Env:               "test",
		LocalStoreDir:     t.TempDir(),
		ExportPrefix:      "exports",
		MaxUploadMB:       10,
		WorkerConcurrency: 1,
		JobMaxAttempts:    3,
		JobRetryBaseDelay: time.Minute,
		JobRetryMaxDelay:  time.Hour,
	}
	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.RoleCLI)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func run(t *testing.T, app *bootstrap.App, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(context.Context) (*bootstrap.App, error) { return app, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedDefaultFixtures(t *testing.T) {
	app := newTestApp(t)
	out, err := run(t, app, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "institutions: 2 created") || !strings.Contains(out, "members: 3 created") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, app, "seed")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !strings.Contains(out, "institutions: 0 created, 2 updated") {
		t.Fatalf("expected updates on rerun, got %q", out)
	}
}

func TestSeedMissingFile(t *testing.T) {
	app := newTestApp(t)
	if _, err := run(t, app, "seed", "--file", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing fixtures file")
	}
}

func TestExtractTextFile(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(t.TempDir(), "nota.txt")
	if err := os.WriteFile(path, []byte("Banco Nación\nComprobante de transferencia"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, app, "extract", path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "pages: 1") || !strings.Contains(out, "Comprobante de transferencia") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestJobsEnqueueListRetry(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	obj, err := app.Store.Save(ctx, "documents", "nota.txt", strings.NewReader("hola"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc, err := app.DocumentsService.Register(ctx, documents.NewDocument{Object: obj, OriginalName: "nota.txt", MimeType: "text/plain"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	out, err := run(t, app, "jobs", "enqueue", "--type", "ocr", "--document", doc.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !strings.Contains(out, "enqueued OCR job") {
		t.Fatalf("unexpected output %q", out)
	}
	queued, err := app.JobsService.ListByDocument(ctx, doc.ID)
	if err != nil || len(queued) != 1 {
		t.Fatalf("expected one job, got %d (err=%v)", len(queued), err)
	}
	payload, err := jobs.DecodeOCR(queued[0].Payload)
	if err != nil || payload.SHA256 != doc.SHA256 || payload.Filename != "nota.txt" {
		t.Fatalf("unexpected payload %+v (err=%v)", payload, err)
	}

	out, err = run(t, app, "jobs", "list", "--status", "queued")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, queued[0].ID) || !strings.Contains(out, "1 of 1 jobs") {
		t.Fatalf("unexpected list output %q", out)
	}

	if _, err := app.JobsService.Cancel(ctx, queued[0].ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	out, err = run(t, app, "jobs", "retry", queued[0].ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !strings.Contains(out, "is QUEUED") {
		t.Fatalf("unexpected retry output %q", out)
	}
}

func TestJobsEnqueueRejectsUnknownType(t *testing.T) {
	app := newTestApp(t)
	if _, err := run(t, app, "jobs", "enqueue", "--type", "print", "--document", "x"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestUsersCreate(t *testing.T) {
	app := newTestApp(t)
	out, err := run(t, app, "users", "create", "--email", "ops@example.com", "--name", "Ops", "--password", "s3cret-pass")
	if err != nil {
		t.Fatalf("users create: %v", err)
	}
	if !strings.Contains(out, "<ops@example.com>") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := run(t, app, "users", "create", "--email", "ops@example.com", "--password", "another-pass"); err == nil {
		t.Fatal("expected duplicate email to fail")
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	if got := preview("añoñ", 2); got != "añ" {
		t.Fatalf("got %q", got)
	}
	if got := preview("ok", 10); got != "ok" {
		t.Fatalf("got %q", got)
	}
}
