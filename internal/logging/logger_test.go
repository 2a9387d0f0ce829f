package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	t.Parallel()

	t.Run("text renames error key", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, slog.LevelInfo, "text")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("render.failed", "error", errors.New("boom"))

		if !strings.Contains(buf.String(), "err=boom") {
			t.Errorf("expected err key, got %q", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, slog.LevelInfo, "JSON")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("engine.ready", "generation", 1)

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
		}
		if rec["msg"] != "engine.ready" {
			t.Errorf("msg = %v, want engine.ready", rec["msg"])
		}
	})

	t.Run("level filters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, slog.LevelWarn, "")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("info record written at warn level: %q", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if _, err := New(&bytes.Buffer{}, slog.LevelInfo, "xml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewNop(t *testing.T) {
	t.Parallel()

	NewNop().Error("discarded")
}
