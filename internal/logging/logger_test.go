package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("import completed", "accepted", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %s", out)
	}
	if !strings.Contains(out, `"accepted":3`) {
		t.Errorf("expected JSON field in output, got %s", out)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("refresh", "contacts", 2)

	if !strings.Contains(buf.String(), "contacts=2") {
		t.Errorf("expected text field in output, got %s", buf.String())
	}
}

func TestFromContext_CarriesAttachedFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = Attach(ctx, "client_ip", "203.0.113.7")
	child := Attach(ctx, "import_id", "imp-1")

	FromContext(child).Info("import started")
	WithFields(ctx, "op", "delete").Info("bulk done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %s", len(lines), buf.String())
	}
	for _, want := range []string{"request_id=req-1", "client_ip=203.0.113.7", "import_id=imp-1"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("first line missing %s: %s", want, lines[0])
		}
	}
	if strings.Contains(lines[1], "import_id") {
		t.Errorf("child fields leaked into parent context: %s", lines[1])
	}
	if !strings.Contains(lines[1], "op=delete") || !strings.Contains(lines[1], "client_ip=203.0.113.7") {
		t.Errorf("second line = %s", lines[1])
	}
}
