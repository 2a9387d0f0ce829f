package texshot

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-texshot/internal/assets"
	"github.com/alnah/go-texshot/internal/fileutil"
	"github.com/alnah/go-texshot/internal/logging"
)

// Renderer turns markup into a cropped PNG using a shared Engine.
// It is safe for concurrent use; create it once and reuse it.
type Renderer struct {
	cfg        rendererConfig
	engine     *Engine
	typesetter Typesetter
	composer   *Composer
	cropper    *Cropper
}

// NewRenderer creates a Renderer on engine.
// Use options to customize behavior (e.g., WithTimeout, WithTypesetter, WithTrim).
// Returns error if option values are invalid or assets cannot be loaded.
func NewRenderer(engine *Engine, opts ...Option) (*Renderer, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}

	cfg := rendererConfig{
		timeout:       defaultTimeout,
		stylesheetURL: DefaultStylesheetURL,
		fontSize:      DefaultFontSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxWidth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxWidth, cfg.maxWidth)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	if cfg.typesetter == nil {
		cfg.typesetter = NewKaTeXTypesetter("")
	}

	loader, err := assets.NewResolver(cfg.assetPath)
	if err != nil {
		return nil, err
	}
	composer, err := NewComposer(loader, cfg.stylesheetURL, cfg.fontSize)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		cfg:        cfg,
		engine:     engine,
		typesetter: cfg.typesetter,
		composer:   composer,
		cropper:    &Cropper{MaxWidth: cfg.maxWidth, Trim: cfg.trim},
	}, nil
}

// Render typesets markup, loads it in a browser page and captures the
// content node. The transient document is removed before Render returns,
// whatever the outcome. Recovers from internal panics to prevent crashes
// from propagating to callers.
func (r *Renderer) Render(ctx context.Context, markup string) (result *Result, err error) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("internal error: %v", rec)
		}
		r.cfg.metrics.renderFinished(err, time.Since(started))
		if err != nil {
			r.cfg.logger.Warn("render.failed", "outcome", outcomeFor(err), "err", err)
			return
		}
		r.cfg.logger.Info("render.done",
			"width", result.Width,
			"height", result.Height,
			"bytes", len(result.PNG),
			"elapsed", time.Since(started))
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	doc, err := r.compose(ctx, markup)
	if err != nil {
		return nil, err
	}

	scope := fileutil.NewScopeIn(r.cfg.tempDir, r.cfg.logger)
	defer scope.Release()

	session, err := r.engine.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			r.cfg.logger.Debug("session.close_failed", "err", closeErr)
		}
	}()

	file, err := scope.Write([]byte(doc.HTML), fileutil.KindDocument)
	if err != nil {
		return nil, fmt.Errorf("writing render document: %w", err)
	}

	if err := session.Load(ctx, fileURL(file.Path)); err != nil {
		return nil, err
	}

	return r.cropper.Capture(ctx, session, doc.ContentID)
}

// RenderHTML typesets markup and returns the composed document without
// touching the browser. Useful for debugging templates and styles.
func (r *Renderer) RenderHTML(ctx context.Context, markup string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	doc, err := r.compose(ctx, markup)
	if err != nil {
		return "", err
	}
	return doc.HTML, nil
}

func (r *Renderer) compose(ctx context.Context, markup string) (*Document, error) {
	fragment, err := r.typesetter.Typeset(ctx, markup)
	if err != nil {
		return nil, err
	}
	return r.composer.Compose(fragment)
}

// fileURL converts an absolute path into a file:// URL.
func fileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows drive letter
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
