package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext_AddsIDs(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(&buf, "debug", "json")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = WithRunID(ctx, "run-1")
	WithFields(ctx, "table_count", 3).Info("compare finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["run_id"] != "run-1" {
		t.Errorf("run_id = %v", entry["run_id"])
	}
	if entry["table_count"] != float64(3) {
		t.Errorf("table_count = %v", entry["table_count"])
	}
}

func TestFromContext_Empty(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(&buf, "info", "text")
	FromContext(context.Background()).Debug("hidden")
	FromContext(context.Background()).Info("shown")

	out := buf.String()
	if bytes.Contains([]byte(out), []byte("hidden")) {
		t.Errorf("debug entry written at info level: %q", out)
	}
	if bytes.Contains([]byte(out), []byte("run_id")) {
		t.Errorf("unexpected run_id: %q", out)
	}
}
