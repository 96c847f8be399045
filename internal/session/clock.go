package session

import "time"

// TimerHandle is a cancelable pending callback, as returned by Clock.AfterFunc.
type TimerHandle interface {
	// Stop cancels the pending callback. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Clock abstracts wall-clock access so the countdown and the orchestrator can
// be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) TimerHandle
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) TimerHandle {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }
