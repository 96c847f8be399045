package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitGuardDisarmedPassesThrough(t *testing.T) {
	guard := NewExitGuard()
	assert.False(t, guard.Armed())
	assert.False(t, guard.RequestExit())
}

func TestExitGuardInterceptsWhileArmed(t *testing.T) {
	guard := NewExitGuard()
	intents := 0
	release := guard.Arm(func() { intents++ })

	assert.True(t, guard.Armed())
	assert.True(t, guard.RequestExit())
	assert.True(t, guard.RequestExit())
	assert.Equal(t, 2, intents)

	release()
	assert.False(t, guard.Armed())
	assert.False(t, guard.RequestExit())
	assert.Equal(t, 2, intents)
}

func TestExitGuardReleaseIsIdempotent(t *testing.T) {
	guard := NewExitGuard()
	release := guard.Arm(func() {})

	release()
	release()
	assert.False(t, guard.Armed())
}

func TestExitGuardRearmAfterRelease(t *testing.T) {
	guard := NewExitGuard()
	first := guard.Arm(func() {})
	first()

	intercepted := false
	second := guard.Arm(func() { intercepted = true })
	defer second()

	// The stale handle from the first arming must not disarm the new one.
	first()
	assert.True(t, guard.Armed())
	assert.True(t, guard.RequestExit())
	assert.True(t, intercepted)
}
