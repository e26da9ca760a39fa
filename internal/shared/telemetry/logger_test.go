package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Setup("info", false)

	Info("worker.job.claimed", map[string]any{"job_id": "j1", "attempt": 2, "err": errors.New("boom")})

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["msg"] != "worker.job.claimed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts field")
	}
	if payload["job_id"] != "j1" {
		t.Fatalf("unexpected job_id: %v", payload["job_id"])
	}
	if payload["err"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", payload["err"])
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	Setup("info", false)
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Setup("info", false)

	Debug("noisy", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
