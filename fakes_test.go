package texshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/alnah/go-texshot/internal/imageutil"
)

// ---------------------------------------------------------------------------
// fakeLauncher / fakeBrowser / fakeSession - in-memory engine backend
// ---------------------------------------------------------------------------

// fakeLauncher implements Launcher without a real browser.
type fakeLauncher struct {
	mu        sync.Mutex
	launches  int
	err       error         // returned by every Launch while set
	gate      chan struct{} // when set, Launch blocks until closed
	browsers  []*fakeBrowser
	stillborn bool // launched browsers are already dead

	// configure is applied to every session opened on launched browsers.
	configure func(*fakeSession)
}

func (l *fakeLauncher) Launch(ctx context.Context) (Browser, error) {
	l.mu.Lock()
	l.launches++
	err, gate, stillborn := l.err, l.gate, l.stillborn
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	b := &fakeBrowser{configure: l.configure, dead: stillborn}
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

func (l *fakeLauncher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func (l *fakeLauncher) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Browser returns the i-th launched browser.
func (l *fakeLauncher) Browser(i int) *fakeBrowser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.browsers[i]
}

// fakeBrowser implements Browser. kill simulates a crashed process.
type fakeBrowser struct {
	mu         sync.Mutex
	dead       bool
	closed     bool
	sessionErr error
	sessions   []*fakeSession
	configure  func(*fakeSession)
}

func (b *fakeBrowser) NewSession(ctx context.Context) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dead || b.closed {
		return nil, errors.New("websocket: close 1006")
	}
	if b.sessionErr != nil {
		return nil, b.sessionErr
	}
	s := &fakeSession{
		browser: b,
		bounds:  map[string]Rect{"#" + ContentID: {X: 10, Y: 20, Width: 40, Height: 30}},
	}
	if b.configure != nil {
		b.configure(s)
	}
	b.sessions = append(b.sessions, s)
	return s, nil
}

func (b *fakeBrowser) Ping(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead || b.closed {
		return errors.New("browser not responding")
	}
	return nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = true
}

func (b *fakeBrowser) isAlive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.dead
}

func (b *fakeBrowser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// openSessions counts sessions not yet closed.
func (b *fakeBrowser) openSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.sessions {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

// fakeSession implements Session. bounds maps selectors to boxes; a
// selector absent from the map is "not found".
type fakeSession struct {
	browser *fakeBrowser

	mu         sync.Mutex
	loadErr    error
	loaded     []string
	bounds     map[string]Rect
	boundsErr  error
	png        []byte
	captureErr error
	captured   []Rect
	closed     int

	onLoad func(url string) // called before Load returns
}

func (s *fakeSession) dead() bool {
	return s.browser != nil && !s.browser.isAlive()
}

func (s *fakeSession) Load(ctx context.Context, url string) error {
	if s.dead() {
		return errors.New("connection reset")
	}
	s.mu.Lock()
	s.loaded = append(s.loaded, url)
	hook, err := s.onLoad, s.loadErr
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *fakeSession) Bounds(ctx context.Context, selector string) (Rect, bool, error) {
	if s.dead() {
		return Rect{}, false, errors.New("connection reset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundsErr != nil {
		return Rect{}, false, s.boundsErr
	}
	r, ok := s.bounds[selector]
	return r, ok, nil
}

func (s *fakeSession) Capture(ctx context.Context, clip Rect) ([]byte, error) {
	if s.dead() {
		return nil, errors.New("connection reset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = append(s.captured, clip)
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	if s.png != nil {
		return s.png, nil
	}
	return solidPNG(int(clip.Width), int(clip.Height)), nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// ---------------------------------------------------------------------------
// stubTypesetter
// ---------------------------------------------------------------------------

// stubTypesetter implements Typesetter with a fixed answer.
type stubTypesetter struct {
	fragment string
	err      error
	block    bool // wait for ctx instead of answering
	panicMsg string

	mu    sync.Mutex
	calls int
}

func (s *stubTypesetter) Typeset(ctx context.Context, markup string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	if s.fragment != "" {
		return s.fragment, nil
	}
	return `<span class="katex-display">` + markup + `</span>`, nil
}

func (s *stubTypesetter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// solidPNG returns a fully opaque w x h PNG.
func solidPNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.Set(x, y, color.NRGBA{A: 255})
		}
	}
	data, err := imageutil.Encode(img)
	if err != nil {
		panic(err)
	}
	return data
}

// newTestEngine returns an engine on a fake launcher, closed with the test.
func newTestEngine(t *testing.T, l *fakeLauncher, opts ...EngineOption) *Engine {
	t.Helper()
	e := NewEngine(append([]EngineOption{WithLauncher(l)}, opts...)...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
