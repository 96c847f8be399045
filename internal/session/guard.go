package session

import "sync"

// ExitGuard intercepts attempts to leave a live session. While armed, an
// exit attempt does not tear the session down; it invokes the registered
// intent handler so the orchestrator can demand an explicit confirmation.
//
// Arm returns a release handle. The orchestrator holds the handle and calls
// it symmetrically on every path out of the Active phase, so no interceptor
// outlives the session.
type ExitGuard struct {
	mu       sync.Mutex
	armed    bool
	onIntent func()
}

// NewExitGuard creates a disarmed guard.
func NewExitGuard() *ExitGuard {
	return &ExitGuard{}
}

// Arm installs the exit-intent interceptor and returns its release handle.
// Releasing an already-released guard is a no-op.
func (g *ExitGuard) Arm(onIntent func()) (release func()) {
	g.mu.Lock()
	g.armed = true
	g.onIntent = onIntent
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.armed = false
			g.onIntent = nil
			g.mu.Unlock()
		})
	}
}

// Armed reports whether the guard currently intercepts exits.
func (g *ExitGuard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

// RequestExit is the interception point. It reports whether the exit was
// intercepted; when armed, the intent handler runs and the caller must wait
// for an explicit confirm or cancel instead of navigating away.
func (g *ExitGuard) RequestExit() bool {
	g.mu.Lock()
	armed := g.armed
	handler := g.onIntent
	g.mu.Unlock()

	if !armed {
		return false
	}
	if handler != nil {
		handler()
	}
	return true
}
