package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := base.WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetStage(ctx, "analyze")

	if got := GetJobID(ctx); got != "job-1" {
		t.Errorf("GetJobID = %q, want job-1", got)
	}
	if got := GetStage(ctx); got != "analyze" {
		t.Errorf("GetStage = %q, want analyze", got)
	}

	With(Fields{FieldDurationMs: int64(12)}).Info(ctx, "stage done")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["message"] != "stage done" {
		t.Errorf("message = %v", line["message"])
	}
	if line[FieldJobID] != "job-1" || line[FieldStage] != "analyze" {
		t.Errorf("missing context fields: %v", line)
	}
	if line["service"] != "test" {
		t.Errorf("service = %v, want test", line["service"])
	}
	if _, ok := line[FieldDurationMs]; !ok {
		t.Errorf("missing %s field", FieldDurationMs)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: "text", Output: &buf, ServiceName: "svc"})
	l.WithField("k", "v").Info("hello")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "k=v") {
		t.Errorf("unexpected text output: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "test"})
	ctx := base.WithContext(context.Background())

	With(Fields{FieldDocument: "data/a.pdf"}).WithStatus("text").WithCount(3).WithSize(42).
		Info(ctx, "Document extracted")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line[FieldStatus] != "text" {
		t.Errorf("%s = %v, want text", FieldStatus, line[FieldStatus])
	}
	// JSON numbers decode as float64.
	if line[FieldCount] != float64(3) || line[FieldSize] != float64(42) {
		t.Errorf("count/size = %v/%v", line[FieldCount], line[FieldSize])
	}
	if line[FieldDocument] != "data/a.pdf" {
		t.Errorf("%s = %v", FieldDocument, line[FieldDocument])
	}
}
