package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrySession(t *testing.T) *Session {
	t.Helper()
	return New(Config{
		Exam:      sessionExam(1, nil),
		Identity:  AuthenticatedIdentity{UserID: 9},
		Clock:     newFakeClock(testEpoch),
		Submitter: &stubSubmitter{},
		Attempts:  &stubAttempts{},
		Logger:    zerolog.Nop(),
	})
}

func TestRegistryOnePerExamAndIdentity(t *testing.T) {
	reg := NewRegistry()

	first, created := reg.GetOrCreate(42, "user:9", func() *Session { return registrySession(t) })
	require.True(t, created)

	// Re-opening the same pair returns the live session, never a duplicate.
	again, created := reg.GetOrCreate(42, "user:9", func() *Session {
		t.Fatal("build must not run for an existing pair")
		return nil
	})
	assert.False(t, created)
	assert.Same(t, first, again)

	// A different identity on the same exam gets its own session.
	other, created := reg.GetOrCreate(42, "user:10", func() *Session { return registrySession(t) })
	require.True(t, created)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, reg.Count())
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Get(1, "user:1"))
}

func TestRegistryRemoveClosesSession(t *testing.T) {
	reg := NewRegistry()
	sess, _ := reg.GetOrCreate(42, "user:9", func() *Session { return registrySession(t) })

	reg.Remove(42, "user:9")
	assert.Nil(t, reg.Get(42, "user:9"))
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)

	// Removing an absent pair is a no-op.
	reg.Remove(42, "user:9")
}

func TestRegistrySnapshots(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrCreate(42, "user:9", func() *Session { return registrySession(t) })
	reg.GetOrCreate(43, "guest:abc", func() *Session { return registrySession(t) })

	snaps := reg.Snapshots()
	assert.Len(t, snaps, 2)
}
