package texshot

import (
	"log/slog"
	"time"
)

// Option configures a Renderer.
type Option func(*rendererConfig)

// rendererConfig holds internal configuration for Renderer.
type rendererConfig struct {
	timeout       time.Duration
	typesetter    Typesetter
	stylesheetURL string
	fontSize      string
	assetPath     string
	maxWidth      int
	trim          bool
	tempDir       string
	logger        *slog.Logger
	metrics       *Metrics
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

// WithTimeout bounds one render from typesetting to capture.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("texshot: WithTimeout duration must be positive")
	}
	return func(c *rendererConfig) {
		c.timeout = d
	}
}

// WithTypesetter replaces the default KaTeX typesetter.
func WithTypesetter(t Typesetter) Option {
	return func(c *rendererConfig) {
		c.typesetter = t
	}
}

// WithStylesheetURL sets the stylesheet linked from the render document.
// http(s) and file URLs are accepted; "" links none.
func WithStylesheetURL(u string) Option {
	return func(c *rendererConfig) {
		c.stylesheetURL = u
	}
}

// WithFontSize sets the CSS font size of the content node, e.g. "2.5em" or "32px".
func WithFontSize(size string) Option {
	return func(c *rendererConfig) {
		c.fontSize = size
	}
}

// WithAssetPath loads document templates and styles from dir, falling back
// to the embedded ones for anything missing.
func WithAssetPath(dir string) Option {
	return func(c *rendererConfig) {
		c.assetPath = dir
	}
}

// WithMaxWidth downscales captures wider than px pixels. 0 disables.
func WithMaxWidth(px int) Option {
	return func(c *rendererConfig) {
		c.maxWidth = px
	}
}

// WithTrim crops transparent margins from captures.
func WithTrim(v bool) Option {
	return func(c *rendererConfig) {
		c.trim = v
	}
}

// WithTempDir sets where transient documents are written ("" = system temp dir).
func WithTempDir(dir string) Option {
	return func(c *rendererConfig) {
		c.tempDir = dir
	}
}

// WithLogger sets the render logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *rendererConfig) {
		c.logger = logger
	}
}

// WithMetrics records render outcomes and durations in m.
func WithMetrics(m *Metrics) Option {
	return func(c *rendererConfig) {
		c.metrics = m
	}
}
