package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetInitializesLazily(t *testing.T) {
	defaultLogger = nil
	defer func() { defaultLogger = nil }()

	first := Get()
	if first == nil {
		t.Fatal("Get() should return a logger")
	}
	if second := Get(); first != second {
		t.Error("Get() should return the same logger instance")
	}
}

func TestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	defer func() { defaultLogger = nil }()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")

	InfoContext(ctx, "sync complete", "entries", 4)
	out := buf.String()
	if !strings.Contains(out, "sync complete") {
		t.Error("message not logged")
	}
	if !strings.Contains(out, "req-123") {
		t.Error("request ID not included in log")
	}

	buf.Reset()
	ErrorContext(context.Background(), "persist failed")
	if !strings.Contains(buf.String(), "persist failed") {
		t.Error("message without request ID not logged")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	defer func() { defaultLogger = nil }()

	WithComponent("cache").Info("hit")
	if !strings.Contains(buf.String(), "component=cache") {
		t.Error("component label missing from log")
	}
}
