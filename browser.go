package texshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-texshot/internal/process"
)

// Page load tuning.
const (
	// networkIdleWindow is how long the page must issue no requests
	// before it counts as settled.
	networkIdleWindow = 500 * time.Millisecond

	browserCloseTimeout = 5 * time.Second
)

// unloadedStylesheetsJS lists the href of every stylesheet link whose
// sheet was never attached (blocked, offline, 404).
const unloadedStylesheetsJS = `() => Array.from(document.querySelectorAll('link[rel="stylesheet"]'))
	.filter(l => !l.sheet)
	.map(l => l.href)`

// rodLauncher implements Launcher with go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodLauncher struct {
	bin       string
	noSandbox bool
}

var (
	_ Launcher = (*rodLauncher)(nil)
	_ Browser  = (*rodBrowser)(nil)
	_ Session  = (*rodSession)(nil)
)

func newRodLauncher(bin string, noSandbox bool) *rodLauncher {
	return &rodLauncher{bin: bin, noSandbox: noSandbox}
}

// Launch starts headless Chrome and connects to it over the DevTools protocol.
func (r *rodLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Leakless makes Chrome exit with this process even on SIGKILL.
	l := launcher.New().Headless(true).Leakless(true)

	// Use pre-installed browser if specified (Docker/containerized environments)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	if r.noSandbox {
		l = l.NoSandbox(true)
	}

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := l.Launch()
		done <- result{u, err}
	}()

	var u string
	select {
	case res := <-done:
		if res.err != nil {
			l.Kill()
			return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, res.err)
		}
		u = res.url
	case <-ctx.Done():
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, ctx.Err())
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		killLauncher(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	return &rodBrowser{browser: browser, launcher: l}, nil
}

// killLauncher kills the Chrome process tree started by l.
func killLauncher(l *launcher.Launcher) {
	pid := l.PID()
	l.Kill()
	_ = process.KillTree(pid)
}

// rodBrowser implements Browser for one launched Chrome process.
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewSession opens a blank page with a transparent default background.
func (b *rodBrowser) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	transparent := proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: floatPtr(0)},
	}
	if err := transparent.Call(page); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("%w: setting transparent background: %v", ErrPageCreate, err)
	}

	return &rodSession{page: page, idle: networkIdleWindow}, nil
}

// Ping asks the browser for its version.
func (b *rodBrowser) Ping(ctx context.Context) error {
	_, err := proto.BrowserGetVersion{}.Call(b.browser.Context(ctx))
	return err
}

// Close closes the browser and kills its process group.
func (b *rodBrowser) Close() error {
	err := b.browser.Timeout(browserCloseTimeout).Close()
	killLauncher(b.launcher)
	b.launcher.Cleanup()
	return err
}

// rodSession implements Session on one rod page.
type rodSession struct {
	page *rod.Page
	idle time.Duration
}

// Load navigates to url and waits until the network has been idle for the
// idle window. A deadline hit while waiting, or a stylesheet that did not
// attach, is reported as ErrStyleLoad.
func (s *rodSession) Load(ctx context.Context, url string) error {
	page := s.page.Context(ctx)

	// Must be armed before navigating so no request is missed.
	waitIdle := page.WaitRequestIdle(s.idle, nil, nil, nil)

	if err := page.Navigate(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: page did not finish loading: %v", ErrStyleLoad, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	waitIdle()
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: network did not settle: %v", ErrStyleLoad, err)
		}
		return err
	}

	res, err := page.Eval(unloadedStylesheetsJS)
	if err != nil {
		return fmt.Errorf("%w: checking stylesheets: %v", ErrStyleLoad, err)
	}
	var missing []string
	for _, v := range res.Value.Arr() {
		missing = append(missing, v.Str())
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrStyleLoad, strings.Join(missing, ", "))
	}
	return nil
}

// Bounds returns the content-quad bounding box of the first element
// matching selector.
func (s *rodSession) Bounds(ctx context.Context, selector string) (Rect, bool, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return Rect{}, false, fmt.Errorf("%w: looking up %s: %v", ErrElementGeometry, selector, err)
	}
	if !has {
		return Rect{}, false, nil
	}

	shape, err := el.Shape()
	if err != nil {
		return Rect{}, true, fmt.Errorf("%w: %s: %v", ErrElementGeometry, selector, err)
	}
	box := shape.Box()
	if box == nil {
		return Rect{}, true, nil
	}
	return Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, true, nil
}

// Capture screenshots clip as PNG.
func (s *rodSession) Capture(ctx context.Context, clip Rect) ([]byte, error) {
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      clip.X,
			Y:      clip.Y,
			Width:  clip.Width,
			Height: clip.Height,
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	return data, nil
}

// Close closes the page.
func (s *rodSession) Close() error {
	return s.page.Close()
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
