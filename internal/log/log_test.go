package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		logLevel slog.Level
		message  string
		want     bool // whether the message should appear in output
	}{
		{
			name:     "info logged at default level",
			cfg:      Config{},
			logLevel: slog.LevelInfo,
			message:  "hello",
			want:     true,
		},
		{
			name:     "debug suppressed at default level",
			cfg:      Config{},
			logLevel: slog.LevelDebug,
			message:  "quiet",
			want:     false,
		},
		{
			name:     "debug logged when level lowered",
			cfg:      Config{Level: slog.LevelDebug},
			logLevel: slog.LevelDebug,
			message:  "verbose",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)

			logger.Log(t.Context(), tt.logLevel, tt.message)

			got := strings.Contains(buf.String(), tt.message)
			if got != tt.want {
				t.Errorf("message %q in output = %v, want %v (output: %q)", tt.message, got, tt.want, buf.String())
			}
		})
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{JSON: true})

	logger.Info("structured", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"structured"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected attribute in JSON output, got %q", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic; output goes nowhere.
	logger.Info("dropped")
	logger.Error("also dropped")
}
