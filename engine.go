package texshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alnah/go-texshot/internal/logging"
)

// EngineState is the lifecycle state of the shared browser.
type EngineState int

// Engine states.
const (
	StateUninitialized EngineState = iota
	StateStarting
	StateReady
	StateCrashed
)

func (s EngineState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Rect is a page-space rectangle in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is one running browser process (one engine generation).
type Browser interface {
	// NewSession opens a fresh page.
	NewSession(ctx context.Context) (Session, error)
	// Ping fails when the browser no longer answers.
	Ping(ctx context.Context) error
	// Close terminates the process and its children.
	Close() error
}

// Session is one page used for exactly one render.
type Session interface {
	// Load navigates to url, waits for network quiescence and verifies
	// that every stylesheet applied.
	Load(ctx context.Context, url string) error
	// Bounds returns the bounding box of the first element matching
	// selector; found is false when no element matches.
	Bounds(ctx context.Context, selector string) (r Rect, found bool, err error)
	// Capture returns a PNG of clip with a transparent background.
	Capture(ctx context.Context, clip Rect) ([]byte, error)
	Close() error
}

// Engine defaults.
const (
	DefaultLaunchTimeout = 60 * time.Second
	pingTimeout          = 3 * time.Second
)

// launchAttempt is the single-flight latch of one launch.
type launchAttempt struct {
	done chan struct{}
	err  error
}

// Engine owns the one headless browser shared by every render in the
// process. It launches lazily, relaunches after a crash and bounds the
// number of concurrently open pages.
type Engine struct {
	launcher      Launcher
	sessions      *SessionPool
	logger        *slog.Logger
	metrics       *Metrics
	launchTimeout time.Duration

	mu       sync.Mutex
	state    EngineState
	gen      uint64
	browser  Browser
	starting *launchAttempt
	closed   bool
}

// engineConfig collects EngineOption values before the engine is built.
type engineConfig struct {
	browserBin    string
	noSandbox     bool
	maxSessions   int
	launcher      Launcher
	logger        *slog.Logger
	metrics       *Metrics
	launchTimeout time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

// WithBrowserBin sets the Chrome binary. Defaults to ROD_BROWSER_BIN, then rod's lookup.
func WithBrowserBin(path string) EngineOption {
	return func(c *engineConfig) { c.browserBin = path }
}

// WithNoSandbox disables the Chrome sandbox. Also enabled by ROD_NO_SANDBOX=1 or CI=true.
func WithNoSandbox(v bool) EngineOption {
	return func(c *engineConfig) { c.noSandbox = v }
}

// WithMaxSessions bounds concurrently open pages. 0 derives it from the CPU count.
func WithMaxSessions(n int) EngineOption {
	return func(c *engineConfig) { c.maxSessions = n }
}

// WithLauncher replaces the rod launcher.
func WithLauncher(l Launcher) EngineOption {
	return func(c *engineConfig) { c.launcher = l }
}

// WithEngineLogger sets the engine lifecycle logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = logger }
}

// WithEngineMetrics records launches, crashes and open sessions in m.
func WithEngineMetrics(m *Metrics) EngineOption {
	return func(c *engineConfig) { c.metrics = m }
}

// WithLaunchTimeout bounds one browser launch.
// Panics if d <= 0 (programmer error).
func WithLaunchTimeout(d time.Duration) EngineOption {
	if d <= 0 {
		panic("texshot: launch timeout must be positive")
	}
	return func(c *engineConfig) { c.launchTimeout = d }
}

// NewEngine creates an engine. No browser is started until first use.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := engineConfig{
		browserBin:    os.Getenv("ROD_BROWSER_BIN"),
		noSandbox:     envNoSandbox(),
		launchTimeout: DefaultLaunchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	if cfg.launcher == nil {
		cfg.launcher = newRodLauncher(cfg.browserBin, cfg.noSandbox)
	}

	return &Engine{
		launcher:      cfg.launcher,
		sessions:      NewSessionPool(ResolvePoolSize(cfg.maxSessions)),
		logger:        cfg.logger,
		metrics:       cfg.metrics,
		launchTimeout: cfg.launchTimeout,
	}
}

// envNoSandbox reports whether the environment asks for a sandbox-less browser.
func envNoSandbox() bool {
	return os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true"
}

// State returns the current lifecycle state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Generation returns the number of successful launches so far.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

// MaxSessions returns the session limit.
func (e *Engine) MaxSessions() int {
	return e.sessions.Size()
}

// EnsureReady launches the browser unless it is already running.
// Concurrent callers share one launch; each waits on its own ctx. A failed
// launch returns the engine to StateUninitialized and reports the error to
// every caller that waited on it.
func (e *Engine) EnsureReady(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return ErrEngineClosed
		}

		switch e.state {
		case StateReady:
			e.mu.Unlock()
			return nil

		case StateStarting:
			attempt := e.starting
			e.mu.Unlock()
			if err := e.wait(ctx, attempt); err != nil {
				return err
			}

		default: // StateUninitialized, StateCrashed
			stale := e.browser
			e.browser = nil
			e.state = StateStarting
			attempt := &launchAttempt{done: make(chan struct{})}
			e.starting = attempt
			e.mu.Unlock()

			go e.launch(attempt, stale)
			if err := e.wait(ctx, attempt); err != nil {
				return err
			}
		}
	}
}

// wait blocks until attempt finishes or ctx ends.
func (e *Engine) wait(ctx context.Context, attempt *launchAttempt) error {
	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch runs one launch attempt. stale is the crashed browser of the
// previous generation, torn down first.
func (e *Engine) launch(attempt *launchAttempt, stale Browser) {
	if stale != nil {
		if err := stale.Close(); err != nil {
			e.logger.Debug("engine.stale_close", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.launchTimeout)
	defer cancel()

	e.logger.Info("engine.launch")
	started := time.Now()
	browser, err := e.launcher.Launch(ctx)

	e.mu.Lock()
	switch {
	case err != nil:
		e.state = StateUninitialized
		if !errors.Is(err, ErrBrowserConnect) {
			err = fmt.Errorf("%w: %v", ErrBrowserConnect, err)
		}
	case e.closed:
		e.state = StateUninitialized
	default:
		e.browser = browser
		e.gen++
		e.state = StateReady
	}
	gen := e.gen
	closed := e.closed
	e.starting = nil
	e.mu.Unlock()

	// Waiters are released last so they observe the logs and metrics.
	switch {
	case err != nil:
		attempt.err = err
		e.logger.Error("engine.launch_failed", "err", err)
	case closed:
		attempt.err = ErrEngineClosed
		_ = browser.Close()
	default:
		e.metrics.engineLaunched()
		e.logger.Info("engine.ready", "generation", gen, "elapsed", time.Since(started))
	}
	close(attempt.done)
}

// Session opens a page on the running browser, launching it if needed.
// The session holds one pool slot until closed. A browser found dead while
// opening the page is marked crashed and relaunched once, since no session
// was running on it. If the fresh generation fails the same way,
// ErrEngineCrashed is returned.
func (e *Engine) Session(ctx context.Context) (Session, error) {
	s, dead, err := e.openSession(ctx)
	if dead {
		e.logger.Info("engine.relaunch_for_session")
		s, _, err = e.openSession(ctx)
	}
	return s, err
}

// openSession makes one attempt. dead reports that the generation it
// tried was gone before any page existed on it.
func (e *Engine) openSession(ctx context.Context) (s Session, dead bool, err error) {
	if err := e.EnsureReady(ctx); err != nil {
		return nil, false, err
	}
	if err := e.sessions.Acquire(ctx); err != nil {
		return nil, false, err
	}

	e.mu.Lock()
	browser, gen, state, closed := e.browser, e.gen, e.state, e.closed
	e.mu.Unlock()

	if closed {
		e.sessions.Release()
		return nil, false, ErrEngineClosed
	}
	if state != StateReady || browser == nil {
		e.sessions.Release()
		return nil, true, fmt.Errorf("%w: engine is %s", ErrEngineCrashed, state)
	}

	inner, err := browser.NewSession(ctx)
	if err != nil {
		e.sessions.Release()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		if e.checkCrashed(gen, browser) {
			return nil, true, fmt.Errorf("%w: %v", ErrEngineCrashed, err)
		}
		if !errors.Is(err, ErrPageCreate) {
			err = fmt.Errorf("%w: %v", ErrPageCreate, err)
		}
		return nil, false, err
	}

	e.metrics.sessionOpened()
	return &engineSession{inner: inner, engine: e, browser: browser, gen: gen}, false, nil
}

// checkCrashed probes browser and marks generation gen crashed if it is
// gone. It also reports true when gen was already superseded.
func (e *Engine) checkCrashed(gen uint64, browser Browser) bool {
	e.mu.Lock()
	if e.gen != gen || e.state == StateCrashed {
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	pingErr := browser.Ping(ctx)
	if pingErr == nil {
		return false
	}

	e.mu.Lock()
	marked := e.gen == gen && e.state == StateReady
	if marked {
		e.state = StateCrashed
	}
	e.mu.Unlock()

	if marked {
		e.metrics.engineCrashed()
		e.logger.Warn("engine.crashed", "generation", gen, "err", pingErr)
	}
	return true
}

// Close shuts the browser down. Open sessions fail afterwards and waiting
// callers get ErrEngineClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	browser := e.browser
	e.browser = nil
	e.state = StateUninitialized
	e.mu.Unlock()

	e.sessions.Close()

	var err error
	if browser != nil {
		err = browser.Close()
	}
	e.logger.Info("engine.closed")
	return err
}

// engineSession ties a page to the generation it was opened on. Errors on
// a dead generation surface as ErrEngineCrashed.
type engineSession struct {
	inner   Session
	engine  *Engine
	browser Browser
	gen     uint64

	closeOnce sync.Once
	closeErr  error
}

var _ Session = (*engineSession)(nil)

func (s *engineSession) Load(ctx context.Context, url string) error {
	return s.classify(ctx, s.inner.Load(ctx, url))
}

func (s *engineSession) Bounds(ctx context.Context, selector string) (Rect, bool, error) {
	r, found, err := s.inner.Bounds(ctx, selector)
	return r, found, s.classify(ctx, err)
}

func (s *engineSession) Capture(ctx context.Context, clip Rect) ([]byte, error) {
	data, err := s.inner.Capture(ctx, clip)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	return data, nil
}

// Close closes the page and frees its pool slot. Later calls return the first result.
func (s *engineSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.inner.Close()
		s.engine.sessions.Release()
		s.engine.metrics.sessionClosed()
	})
	return s.closeErr
}

// classify rewrites err to ErrEngineCrashed when the session's generation died.
func (s *engineSession) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && !errors.Is(err, ErrStyleLoad) {
		return err
	}
	if s.engine.checkCrashed(s.gen, s.browser) {
		return fmt.Errorf("%w: %v", ErrEngineCrashed, err)
	}
	return err
}
