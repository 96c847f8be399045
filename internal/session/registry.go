package session

import (
	"fmt"
	"sync"
)

// Registry tracks the live sessions of this process, at most one per
// (exam, participant) pair. Opening an exam a second time from the same
// identity returns the existing session instead of racing a duplicate timer.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func registryKey(examID int64, identityKey string) string {
	return fmt.Sprintf("%d|%s", examID, identityKey)
}

// GetOrCreate returns the live session for the pair, creating it with
// build() when none exists. The second return reports whether the session
// was created by this call.
func (r *Registry) GetOrCreate(examID int64, identityKey string, build func() *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(examID, identityKey)
	if sess, ok := r.sessions[key]; ok {
		return sess, false
	}
	sess := build()
	r.sessions[key] = sess
	return sess, true
}

// Get returns the live session for the pair, or nil.
func (r *Registry) Get(examID int64, identityKey string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[registryKey(examID, identityKey)]
}

// Remove closes and drops the session for the pair. Removing an absent pair
// is a no-op.
func (r *Registry) Remove(examID int64, identityKey string) {
	r.mu.Lock()
	key := registryKey(examID, identityKey)
	sess := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}

// Snapshots returns a point-in-time view of every live session, for the
// proctoring monitor.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
