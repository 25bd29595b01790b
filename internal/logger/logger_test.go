package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	log.Debug("hidden")
	log.Info("visible", slog.String("module", "search"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if record["msg"] != "visible" || record["module"] != "search" {
		t.Fatalf("unexpected record: %#v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("ready", slog.Int("n", 2))
	if !strings.Contains(buf.String(), "msg=ready") || !strings.Contains(buf.String(), "n=2") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestInitInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	Init("warn", "json")
	if slog.Default() != L {
		t.Fatalf("Init should install L as the slog default")
	}
	if L.Enabled(context.Background(), slog.LevelInfo) || !L.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatalf("Init should honor the configured level")
	}
}
