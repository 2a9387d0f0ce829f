package texshot

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestRenderer builds a renderer on a fake engine writing into a fresh
// temp dir, returned for cleanup assertions.
func newTestRenderer(t *testing.T, l *fakeLauncher, ts Typesetter, opts ...Option) (*Renderer, *Engine, string) {
	t.Helper()
	dir := t.TempDir()
	e := newTestEngine(t, l)
	r, err := NewRenderer(e, append([]Option{WithTypesetter(ts), WithTempDir(dir)}, opts...)...)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r, e, dir
}

// assertNoTransientFiles fails if dir still holds files.
func assertNoTransientFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	for _, e := range entries {
		t.Errorf("transient file left behind: %s", e.Name())
	}
}

// pathFromURL returns the filesystem path of a file:// URL.
func pathFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Errorf("url.Parse(%q) error = %v", raw, err)
		return ""
	}
	if u.Scheme != "file" {
		t.Errorf("loaded URL scheme = %q, want file", u.Scheme)
	}
	return u.Path
}

// ---------------------------------------------------------------------------
// TestNewRenderer - Construction and validation
// ---------------------------------------------------------------------------

func TestNewRenderer_Validation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &fakeLauncher{})

	tests := []struct {
		name    string
		engine  *Engine
		opts    []Option
		wantErr error
	}{
		{name: "nil engine", engine: nil, wantErr: ErrNoEngine},
		{name: "negative max width", engine: e, opts: []Option{WithMaxWidth(-1)}, wantErr: ErrInvalidMaxWidth},
		{name: "bad font size", engine: e, opts: []Option{WithFontSize("big")}, wantErr: ErrInvalidFontSize},
		{name: "bad stylesheet scheme", engine: e, opts: []Option{WithStylesheetURL("ftp://x/katex.css")}, wantErr: ErrInvalidStylesheet},
		{name: "defaults", engine: e},
		{name: "mathml backend", engine: e, opts: []Option{WithTypesetter(NewMathMLTypesetter())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := NewRenderer(tt.engine, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewRenderer() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || r == nil {
				t.Errorf("NewRenderer() = %v, %v", r, err)
			}
		})
	}
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative timeout")
		}
	}()
	WithTimeout(-time.Second)
}

// ---------------------------------------------------------------------------
// TestRenderer_Render - Happy path and cleanup
// ---------------------------------------------------------------------------

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		loadedURL string
		existed   bool
	)
	l := &fakeLauncher{configure: func(s *fakeSession) {
		s.onLoad = func(u string) {
			mu.Lock()
			defer mu.Unlock()
			loadedURL = u
			_, err := os.Stat(pathFromURL(t, u))
			existed = err == nil
		}
	}}
	ts := &stubTypesetter{}
	r, _, dir := newTestRenderer(t, l, ts)

	res, err := r.Render(context.Background(), `x^2`)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if res.Width != 40 || res.Height != 30 {
		t.Errorf("result size = %dx%d, want 40x30", res.Width, res.Height)
	}
	mu.Lock()
	if !strings.HasPrefix(loadedURL, "file://") || !strings.HasSuffix(loadedURL, ".html") {
		t.Errorf("loaded URL = %q, want file:// HTML document", loadedURL)
	}
	if !existed {
		t.Error("document did not exist while the page loaded it")
	}
	mu.Unlock()

	assertNoTransientFiles(t, dir)
	if n := l.Browser(0).openSessions(); n != 0 {
		t.Errorf("open sessions = %d, want 0", n)
	}
	if ts.Calls() != 1 {
		t.Errorf("typesetter calls = %d, want 1", ts.Calls())
	}
}

func TestRenderer_TypesetFailureDoesNotTouchBrowser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ts      *stubTypesetter
		wantErr error
	}{
		{name: "markup error", ts: &stubTypesetter{err: &MarkupError{Stderr: "ParseError"}}, wantErr: ErrMarkupFailure},
		{name: "empty markup", ts: &stubTypesetter{err: ErrEmptyMarkup}, wantErr: ErrEmptyMarkup},
		{name: "missing typesetter", ts: &stubTypesetter{err: ErrTypesetterNotFound}, wantErr: ErrTypesetterNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := &fakeLauncher{}
			r, e, dir := newTestRenderer(t, l, tt.ts)

			_, err := r.Render(context.Background(), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
			}
			if l.Launches() != 0 || e.State() != StateUninitialized {
				t.Errorf("browser touched: launches=%d state=%v", l.Launches(), e.State())
			}
			assertNoTransientFiles(t, dir)
		})
	}
}

func TestRenderer_LoadFailureCleansUp(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{configure: func(s *fakeSession) {
		s.loadErr = ErrStyleLoad
	}}
	r, e, dir := newTestRenderer(t, l, &stubTypesetter{})

	_, err := r.Render(context.Background(), "x")
	if !errors.Is(err, ErrStyleLoad) {
		t.Fatalf("Render() error = %v, want ErrStyleLoad", err)
	}
	if errors.Is(err, ErrEngineCrashed) {
		t.Error("style failure on a live browser reported as crash")
	}
	assertNoTransientFiles(t, dir)
	if n := l.Browser(0).openSessions(); n != 0 {
		t.Errorf("open sessions = %d, want 0", n)
	}
	if e.State() != StateReady {
		t.Errorf("State() = %v, want ready", e.State())
	}
}

func TestRenderer_PanicCleansUp(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{configure: func(s *fakeSession) {
		s.onLoad = func(string) { panic("page exploded") }
	}}
	r, _, dir := newTestRenderer(t, l, &stubTypesetter{})

	_, err := r.Render(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "internal error: page exploded") {
		t.Fatalf("Render() error = %v, want recovered panic", err)
	}
	assertNoTransientFiles(t, dir)
	if n := l.Browser(0).openSessions(); n != 0 {
		t.Errorf("open sessions = %d, want 0", n)
	}
}

func TestRenderer_TypesetterPanicRecovered(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	r, _, _ := newTestRenderer(t, l, &stubTypesetter{panicMsg: "boom"})

	_, err := r.Render(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "internal error: boom") {
		t.Errorf("Render() error = %v, want recovered panic", err)
	}
}

func TestRenderer_Timeout(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	r, _, dir := newTestRenderer(t, l, &stubTypesetter{block: true}, WithTimeout(20*time.Millisecond))

	_, err := r.Render(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Render() error = %v, want DeadlineExceeded", err)
	}
	assertNoTransientFiles(t, dir)
}

func TestRenderer_CallerCanceled(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRenderer(t, &fakeLauncher{}, &stubTypesetter{block: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Concurrency - Shared engine under load
// ---------------------------------------------------------------------------

func TestRenderer_ConcurrentRendersShareOneBrowser(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths = map[string]int{}
	)
	l := &fakeLauncher{configure: func(s *fakeSession) {
		s.onLoad = func(u string) {
			mu.Lock()
			defer mu.Unlock()
			paths[u]++
		}
	}}
	r, e, dir := newTestRenderer(t, l, &stubTypesetter{})

	const renders = 24
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < renders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Render(context.Background(), "x"); err != nil {
				failures.Add(1)
				t.Errorf("Render() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		return
	}
	if got := l.Launches(); got != 1 {
		t.Errorf("launches = %d, want 1", got)
	}
	mu.Lock()
	if len(paths) != renders {
		t.Errorf("distinct documents = %d, want %d", len(paths), renders)
	}
	for p, n := range paths {
		if n != 1 {
			t.Errorf("document %s loaded %d times", p, n)
		}
	}
	mu.Unlock()
	if n := l.Browser(0).openSessions(); n != 0 {
		t.Errorf("open sessions = %d, want 0", n)
	}
	if n := e.sessions.InUse(); n != 0 {
		t.Errorf("pool slots in use = %d, want 0", n)
	}
	assertNoTransientFiles(t, dir)
}

func TestRenderer_RecoversAfterCrash(t *testing.T) {
	t.Parallel()

	var crashed atomic.Bool
	l := &fakeLauncher{configure: func(s *fakeSession) {
		s.onLoad = func(string) {
			if crashed.CompareAndSwap(false, true) {
				s.browser.kill()
			}
		}
	}}
	m := NewMetrics(nil)
	r, e, dir := newTestRenderer(t, l, &stubTypesetter{}, WithMetrics(m))

	_, err := r.Render(context.Background(), "x")
	if !errors.Is(err, ErrEngineCrashed) {
		t.Fatalf("first Render() error = %v, want ErrEngineCrashed", err)
	}
	if e.State() != StateCrashed {
		t.Errorf("State() = %v, want crashed", e.State())
	}
	assertNoTransientFiles(t, dir)

	if _, err := r.Render(context.Background(), "x"); err != nil {
		t.Fatalf("second Render() error = %v", err)
	}
	if got := e.Generation(); got != 2 {
		t.Errorf("Generation() = %d, want 2", got)
	}
	if got := l.Launches(); got != 2 {
		t.Errorf("launches = %d, want 2", got)
	}

	if got := testutil.ToFloat64(m.renders.WithLabelValues(outcomeCrashed)); got != 1 {
		t.Errorf("crashed renders = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.renders.WithLabelValues(outcomeOK)); got != 1 {
		t.Errorf("ok renders = %v, want 1", got)
	}
}

func TestRenderer_RecoversWhenKilledBetweenRequests(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	m := NewMetrics(nil)
	r, e, dir := newTestRenderer(t, l, &stubTypesetter{}, WithMetrics(m))

	if _, err := r.Render(context.Background(), "x"); err != nil {
		t.Fatalf("first Render() error = %v", err)
	}
	l.Browser(0).kill()

	res, err := r.Render(context.Background(), "x")
	if err != nil {
		t.Fatalf("Render() after external kill error = %v (state %v, generation %d)", err, e.State(), e.Generation())
	}
	if len(res.PNG) == 0 {
		t.Error("Render() returned an empty image")
	}
	if got := e.Generation(); got != 2 {
		t.Errorf("Generation() = %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.renders.WithLabelValues(outcomeOK)); got != 2 {
		t.Errorf("ok renders = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.renders.WithLabelValues(outcomeCrashed)); got != 0 {
		t.Errorf("crashed renders = %v, want 0", got)
	}
	assertNoTransientFiles(t, dir)
}

// ---------------------------------------------------------------------------
// TestRenderer_RenderHTML
// ---------------------------------------------------------------------------

func TestRenderer_RenderHTML(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	r, _, _ := newTestRenderer(t, l, &stubTypesetter{fragment: `<span class="katex">y</span>`})

	html, err := r.RenderHTML(context.Background(), "y")
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if !strings.Contains(html, `<div id="math"><span class="katex">y</span></div>`) {
		t.Errorf("document missing wrapped fragment:\n%s", html)
	}
	if l.Launches() != 0 {
		t.Error("RenderHTML launched a browser")
	}
}

// ---------------------------------------------------------------------------
// TestFileURL
// ---------------------------------------------------------------------------

func TestFileURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "/tmp/texshot-1.html", want: "file:///tmp/texshot-1.html"},
		{path: "/tmp/with space/a.html", want: "file:///tmp/with%20space/a.html"},
	}
	for _, tt := range tests {
		if got := fileURL(tt.path); got != tt.want {
			t.Errorf("fileURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
