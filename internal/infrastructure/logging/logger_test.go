package logging

import (
	"log/slog"
	"testing"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_Formats(t *testing.T) {
	formats := []string{"json", "text", ""}
	for _, format := range formats {
		log := New(config.LoggingConfig{
			Level:  "info",
			Format: format,
			Output: "stdout",
		}, "test")
		if log == nil || log.Logger == nil {
			t.Fatalf("New() with format %q returned nil logger", format)
		}
	}
}

func TestWith_ReturnsNewLogger(t *testing.T) {
	base := Default()
	child := base.With("component", "mqtt")

	if child == base {
		t.Error("With() should return a new Logger instance")
	}
	if child.Logger == nil {
		t.Error("With() returned logger with nil slog.Logger")
	}
}
