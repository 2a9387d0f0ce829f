package fileutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Kind classifies a transient file.
type Kind int

// Transient file kinds.
const (
	KindDocument Kind = iota // composed HTML document
	KindImage                // captured PNG
)

// Extension returns the file extension used for kind, without the dot.
func (k Kind) Extension() string {
	switch k {
	case KindDocument:
		return "html"
	case KindImage:
		return "png"
	default:
		return "tmp"
	}
}

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TransientFile is a temp file owned by exactly one Scope.
type TransientFile struct {
	Path string
	Kind Kind
}

// Scope owns the transient files of one operation and removes them on Release.
// Callers defer Release right after NewScopeIn so every exit path cleans up.
// Removal failures are logged and never returned.
type Scope struct {
	mu       sync.Mutex
	dir      string
	logger   *slog.Logger
	files    []TransientFile
	released bool

	remove func(string) error // replaced in tests
}

// NewScopeIn creates a Scope writing to dir ("" = system temp directory).
// A nil logger discards cleanup warnings.
func NewScopeIn(dir string, logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scope{dir: dir, logger: logger, remove: os.Remove}
}

// Write stores content in a new uniquely named file of the given kind.
// The file is registered before any write, so a partial write is still cleaned up.
func (s *Scope) Write(content []byte, kind Kind) (*TransientFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, ErrScopeReleased
	}

	tmpFile, err := os.CreateTemp(s.dir, tempPrefix+"*."+kind.Extension())
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	tf := TransientFile{Path: tmpFile.Name(), Kind: kind}
	s.files = append(s.files, tf)

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	return &tf, nil
}

// Files returns a copy of the files currently owned by the scope.
func (s *Scope) Files() []TransientFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TransientFile, len(s.files))
	copy(out, s.files)
	return out
}

// Release removes every owned file once. Later calls are no-ops.
func (s *Scope) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	files := s.files
	s.files = nil
	s.mu.Unlock()

	for _, f := range files {
		err := s.remove(f.Path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		s.logger.Warn("cleanup.failed", "path", f.Path, "kind", f.Kind.String(), "err", err)
	}
}
