package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestCustomHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Level: slog.LevelDebug, Prefix: "Test", Writer: &buf}))

	log.Info("Spin handled",
		slog.String("type", "spin"),
		slog.String("name", "web"),
		slog.String("status", "ok"),
		slog.String("member", "alice"),
		slog.Duration("took", 3*time.Millisecond),
	)

	line := buf.String()
	for _, want := range []string{"[Test]", "[INFO]", "[SPIN]", "Spin handled [web]", "[Status: ok]", "(took 3ms)", "member=alice"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "\033[") {
		t.Errorf("colors written while disabled: %q", line)
	}
}

func TestCustomHandler_ErrorAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Level: slog.LevelWarn, Writer: &buf}))

	log.Info("hidden")
	log.Error("Query failed", slog.String("type", "db"), slog.Any("error", errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written below the configured level: %q", out)
	}
	if !strings.Contains(out, "[DB] Query failed: boom") {
		t.Errorf("unexpected error line %q", out)
	}
}

func TestCustomHandler_SkipsGatewayNoise(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Level: slog.LevelDebug, Writer: &buf}))

	log.Debug("sending heartbeat", slog.Int("seq", 4))
	if buf.Len() != 0 {
		t.Errorf("noise was logged: %q", buf.String())
	}
}

func TestCustomHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Writer: &buf})).With(slog.String("type", "http"))

	log.Info("Request", slog.Int("code", 200))
	if !strings.Contains(buf.String(), "[HTTP] Request code=200") {
		t.Errorf("unexpected line %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
