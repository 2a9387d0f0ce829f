package texshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alnah/go-texshot/internal/fileutil"
	"github.com/alnah/go-texshot/internal/logging"
)

// Thread identifies the conversation a reply belongs to.
type Thread struct {
	Channel   string
	Timestamp string
}

// Message is one incoming chat message.
type Message struct {
	Thread Thread
	Text   string
}

// Poster delivers replies to the chat platform.
type Poster interface {
	// PostImage uploads the PNG at imagePath as a reply in thread.
	// The file is removed once PostImage returns.
	PostImage(ctx context.Context, thread Thread, imagePath string) error
	// PostError posts text as a reply in thread.
	PostError(ctx context.Context, thread Thread, text string) error
}

// MarkupRenderer renders one markup block. *Renderer implements it.
type MarkupRenderer interface {
	Render(ctx context.Context, markup string) (*Result, error)
}

var _ MarkupRenderer = (*Renderer)(nil)

// Handler answers chat messages that contain a markup block with the
// rendered image, and failures with an error reply.
type Handler struct {
	renderer MarkupRenderer
	poster   Poster
	logger   *slog.Logger
	tempDir  string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithHandlerTempDir sets where reply images are staged ("" = system temp dir).
func WithHandlerTempDir(dir string) HandlerOption {
	return func(h *Handler) { h.tempDir = dir }
}

// NewHandler creates a Handler.
func NewHandler(renderer MarkupRenderer, poster Poster, opts ...HandlerOption) *Handler {
	h := &Handler{renderer: renderer, poster: poster}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	return h
}

// Handle processes msg. Messages without a markup block are ignored and
// nothing else happens. A render failure is reported in the thread and
// also returned. The staged image is removed on every path.
func (h *Handler) Handle(ctx context.Context, msg Message) error {
	req := NewRequest(msg.Text)
	if !req.HasMarkup {
		return nil
	}

	res, err := h.renderer.Render(ctx, req.Markup)
	if err != nil {
		if postErr := h.poster.PostError(ctx, msg.Thread, ErrorMessage(err)); postErr != nil {
			return errors.Join(err, fmt.Errorf("%w: %v", ErrPost, postErr))
		}
		return err
	}

	scope := fileutil.NewScopeIn(h.tempDir, h.logger)
	defer scope.Release()

	img, err := scope.Write(res.PNG, fileutil.KindImage)
	if err != nil {
		return fmt.Errorf("staging image: %w", err)
	}

	if err := h.poster.PostImage(ctx, msg.Thread, img.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrPost, err)
	}

	h.logger.Debug("reply.posted", "channel", msg.Thread.Channel, "thread", msg.Thread.Timestamp)
	return nil
}

// errorReplyPrefix starts every error reply.
const errorReplyPrefix = "Error rendering LaTeX: "

// ErrorMessage returns the user-facing reply for a render error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var markupErr *MarkupError
	var detail string

	switch {
	case errors.As(err, &markupErr):
		detail = markupErr.Error()
	case errors.Is(err, ErrEmptyMarkup):
		detail = "the equation is empty"
	case errors.Is(err, ErrTypesetterNotFound):
		detail = "the typesetting engine is not installed on the server"
	case errors.Is(err, ErrStyleLoad):
		detail = "the math stylesheet could not be loaded, check the server's network access"
	case errors.Is(err, ErrElementGeometry):
		detail = "the rendered equation has no visible size"
	case errors.Is(err, ErrEngineCrashed):
		detail = "the render engine crashed, please try again"
	case errors.Is(err, ErrEngineClosed):
		detail = "the render engine is shutting down"
	case errors.Is(err, ErrBrowserConnect):
		detail = "the render engine could not be started"
	case errors.Is(err, ErrPageCreate), errors.Is(err, ErrPageLoad), errors.Is(err, ErrScreenshot):
		detail = "the browser failed to render the equation"
	case errors.Is(err, context.DeadlineExceeded):
		detail = "rendering timed out"
	case errors.Is(err, context.Canceled):
		detail = "rendering was canceled"
	default:
		detail = err.Error()
	}

	return errorReplyPrefix + "`" + strings.ReplaceAll(detail, "`", "'") + "`"
}
