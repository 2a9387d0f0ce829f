package texshot

import (
	"errors"
	"strings"
)

// Sentinel errors for library operations.
var (
	ErrEmptyMarkup        = errors.New("markup content cannot be empty")
	ErrMarkupFailure      = errors.New("markup could not be typeset")
	ErrTypesetterNotFound = errors.New("typesetting engine not found")
	ErrTemplate           = errors.New("document template rendering failed")

	// Browser and rendering errors.
	ErrBrowserConnect  = errors.New("failed to connect to browser")
	ErrPageCreate      = errors.New("failed to create browser page")
	ErrPageLoad        = errors.New("failed to load page")
	ErrStyleLoad       = errors.New("stylesheet failed to load")
	ErrElementGeometry = errors.New("element bounding box unavailable")
	ErrScreenshot      = errors.New("screenshot capture failed")
	ErrEngineCrashed   = errors.New("render engine crashed")
	ErrEngineClosed    = errors.New("render engine closed")
	ErrNoEngine        = errors.New("render engine is required")

	// Request boundary errors.
	ErrPost = errors.New("posting reply failed")

	// Option validation errors.
	ErrInvalidFontSize   = errors.New("invalid font size")
	ErrInvalidStylesheet = errors.New("invalid stylesheet URL")
	ErrInvalidMaxWidth   = errors.New("invalid max width")
)

// MarkupError reports a typesetting failure together with the engine's
// diagnostic output. It matches ErrMarkupFailure with errors.Is.
type MarkupError struct {
	Stderr string // diagnostic text produced by the typesetting engine
	Err    error  // underlying process or parser error, may be nil
}

func (e *MarkupError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return ErrMarkupFailure.Error()
	}
	return ErrMarkupFailure.Error() + ": " + msg
}

func (e *MarkupError) Is(target error) bool {
	return target == ErrMarkupFailure
}

func (e *MarkupError) Unwrap() error {
	return e.Err
}
