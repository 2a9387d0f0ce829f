package fileutil

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestScope_RemoveFailureLoggedNotReturned(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	dir := t.TempDir()
	scope := NewScopeIn(dir, logger)

	var calls []string
	scope.remove = func(path string) error {
		calls = append(calls, path)
		if strings.HasSuffix(path, ".png") {
			return errors.New("device busy")
		}
		return os.Remove(path)
	}

	if _, err := scope.Write([]byte("doc"), KindDocument); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	img, err := scope.Write([]byte("img"), KindImage)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	scope.Release()
	scope.Release()

	if len(calls) != 2 {
		t.Errorf("remove called %d times, want exactly 2", len(calls))
	}
	if !strings.Contains(logs.String(), "cleanup.failed") || !strings.Contains(logs.String(), "device busy") {
		t.Errorf("expected cleanup warning in logs, got %q", logs.String())
	}

	_ = os.Remove(img.Path)
}

func TestScope_MissingFileIsNotAFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	scope := NewScopeIn(t.TempDir(), slog.New(slog.NewTextHandler(&logs, nil)))

	tf, err := scope.Write([]byte("x"), KindDocument)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := os.Remove(tf.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	scope.Release()

	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %q", logs.String())
	}
}
