package texshot

import (
	"context"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one session can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent pages to limit renderer memory in the shared browser.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// SessionPool bounds the number of pages open at once on the shared engine.
// Acquire blocks until a slot frees up or the context ends.
type SessionPool struct {
	size  int
	slots chan struct{}
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewSessionPool creates a pool admitting n concurrent sessions.
func NewSessionPool(n int) *SessionPool {
	if n < 1 {
		n = 1
	}

	return &SessionPool{
		size:  n,
		slots: make(chan struct{}, n),
		done:  make(chan struct{}),
	}
}

// Acquire takes a slot. It returns ctx.Err() if ctx ends first and
// ErrEngineClosed once the pool is closed.
func (p *SessionPool) Acquire(ctx context.Context) error {
	select {
	case <-p.done:
		return ErrEngineClosed
	default:
	}

	select {
	case p.slots <- struct{}{}:
		return nil
	case <-p.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (p *SessionPool) Release() {
	select {
	case <-p.slots:
	default:
	}
}

// Close wakes every waiter with ErrEngineClosed. Held slots stay valid
// until released.
func (p *SessionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
}

// Size returns the pool capacity.
func (p *SessionPool) Size() int {
	return p.size
}

// InUse returns the number of slots currently held.
func (p *SessionPool) InUse() int {
	return len(p.slots)
}

// ResolvePoolSize returns workers when positive. Otherwise it derives a
// size from GOMAXPROCS, clamped to [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
