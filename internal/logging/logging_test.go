package logging

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"carva/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range testCases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	t.Parallel()

	var debugBuf, warnBuf bytes.Buffer
	h := multiHandler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h).With("component", "test")

	logger.Info("hello")
	logger.Warn("careful")

	if !strings.Contains(debugBuf.String(), "hello") || !strings.Contains(debugBuf.String(), "careful") {
		t.Errorf("debug handler missing records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "hello") {
		t.Errorf("warn handler should not receive info records: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=test") {
		t.Errorf("attrs not propagated: %q", warnBuf.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug-1) {
		t.Error("expected level below debug to be disabled")
	}
}

func TestNewLogger_WithFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "carva.log")
	logger, closer, err := NewLogger(config.LogConfig{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled")
	}
}
