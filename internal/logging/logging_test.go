package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitializeWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snowctl.log")
	if err := Initialize(Config{Level: "debug", File: FileConfig{Path: path}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer Close()

	Get().Debug("hello from the test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestGetBeforeInitialize(t *testing.T) {
	if Get() == nil {
		t.Error("Get must always return a usable logger")
	}
}

func TestWithComponent(t *testing.T) {
	if WithComponent("stream") == nil {
		t.Error("component logger is nil")
	}
	if Client() == nil || Stream() == nil || Transport() == nil || Session() == nil {
		t.Error("component helpers returned nil")
	}
}
