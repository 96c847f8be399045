package session

import (
	"sync"
	"time"
)

// Countdown is a deadline-based countdown timer. Remaining time is computed
// from an absolute deadline rather than by counting decrements, so a stalled
// or backgrounded caller still converges to the correct wall-clock expiry.
//
// Start while running is a no-op; Stop is idempotent and freezes the
// remaining time. The expiry callback fires at most once for the lifetime of
// the countdown, and never after a Stop that won the race with expiry.
type Countdown struct {
	mu        sync.Mutex
	clock     Clock
	remaining time.Duration // authoritative while stopped
	deadline  time.Time     // authoritative while running
	running   bool
	expired   bool
	handle    TimerHandle
	onExpire  func()
}

// NewCountdown creates a stopped countdown for the given duration. onExpire
// may be nil.
func NewCountdown(d time.Duration, clock Clock, onExpire func()) *Countdown {
	if d < 0 {
		d = 0
	}
	return &Countdown{
		clock:     clock,
		remaining: d,
		onExpire:  onExpire,
	}
}

// Start begins (or resumes) the countdown from its current remaining time.
// Calling Start on a running or already-expired countdown is a no-op.
func (t *Countdown) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || t.expired {
		return
	}
	if t.remaining <= 0 {
		// Zero-duration start: expire on the next tick of the scheduler so
		// the callback never fires synchronously inside Start.
		t.remaining = 0
	}

	t.running = true
	t.deadline = t.clock.Now().Add(t.remaining)
	t.handle = t.clock.AfterFunc(t.remaining, t.fire)
}

// Stop freezes the countdown. Stopping an already-stopped countdown is a
// no-op, not an error.
func (t *Countdown) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}

	t.running = false
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
	t.remaining = t.deadline.Sub(t.clock.Now())
	if t.remaining < 0 {
		t.remaining = 0
	}
}

// TimeLeft returns the current remaining time, never negative. It is
// monotonically non-increasing while the countdown runs and constant while
// it is stopped.
func (t *Countdown) TimeLeft() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return t.remaining
	}
	left := t.deadline.Sub(t.clock.Now())
	if left < 0 {
		left = 0
	}
	return left
}

// Expired reports whether the countdown has reached zero and fired.
func (t *Countdown) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Running reports whether the countdown is currently decrementing.
func (t *Countdown) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// fire runs when the deadline passes. A Stop that acquired the lock first
// wins the race and suppresses the callback entirely.
func (t *Countdown) fire() {
	t.mu.Lock()
	if !t.running || t.expired {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.expired = true
	t.remaining = 0
	t.handle = nil
	cb := t.onExpire
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}
