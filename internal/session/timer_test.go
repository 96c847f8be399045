package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func TestCountdownTicksDownFromDeadline(t *testing.T) {
	clock := newFakeClock(testEpoch)
	timer := NewCountdown(30*time.Minute, clock, nil)

	assert.Equal(t, 30*time.Minute, timer.TimeLeft())
	assert.False(t, timer.Running())

	timer.Start()
	require.True(t, timer.Running())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 20*time.Minute, timer.TimeLeft())
}

func TestCountdownStopFreezesRemaining(t *testing.T) {
	clock := newFakeClock(testEpoch)
	timer := NewCountdown(30*time.Minute, clock, nil)

	timer.Start()
	clock.Advance(12 * time.Minute)
	timer.Stop()

	frozen := timer.TimeLeft()
	assert.Equal(t, 18*time.Minute, frozen)

	// Time passing while stopped must not change the reading.
	clock.Advance(time.Hour)
	assert.Equal(t, frozen, timer.TimeLeft())
	assert.False(t, timer.Expired())
}

func TestCountdownResumesFromFrozenRemaining(t *testing.T) {
	clock := newFakeClock(testEpoch)
	fired := 0
	timer := NewCountdown(30*time.Minute, clock, func() { fired++ })

	timer.Start()
	clock.Advance(25 * time.Minute)
	timer.Stop()
	clock.Advance(2 * time.Hour)

	timer.Start()
	clock.Advance(4 * time.Minute)
	assert.Equal(t, time.Minute, timer.TimeLeft())
	assert.Zero(t, fired)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, fired)
	assert.True(t, timer.Expired())
}

func TestCountdownExpiryFiresAtMostOnce(t *testing.T) {
	clock := newFakeClock(testEpoch)
	fired := 0
	timer := NewCountdown(time.Minute, clock, func() { fired++ })

	timer.Start()
	clock.Advance(time.Minute)
	require.Equal(t, 1, fired)

	// Restart attempts and further time must not re-fire.
	timer.Start()
	clock.Advance(time.Hour)
	assert.Equal(t, 1, fired)
	assert.Zero(t, timer.TimeLeft())
}

func TestCountdownStopSuppressesCallback(t *testing.T) {
	clock := newFakeClock(testEpoch)
	fired := 0
	timer := NewCountdown(time.Minute, clock, func() { fired++ })

	timer.Start()
	timer.Stop()
	clock.Advance(time.Hour)

	assert.Zero(t, fired)
	assert.False(t, timer.Expired())
}

func TestCountdownStartWhileRunningIsNoop(t *testing.T) {
	clock := newFakeClock(testEpoch)
	timer := NewCountdown(30*time.Minute, clock, nil)

	timer.Start()
	clock.Advance(10 * time.Minute)

	// A redundant Start must not reset the deadline.
	timer.Start()
	assert.Equal(t, 20*time.Minute, timer.TimeLeft())
}

func TestCountdownStopIsIdempotent(t *testing.T) {
	clock := newFakeClock(testEpoch)
	timer := NewCountdown(30*time.Minute, clock, nil)

	timer.Start()
	clock.Advance(5 * time.Minute)
	timer.Stop()
	timer.Stop()

	assert.Equal(t, 25*time.Minute, timer.TimeLeft())
}

func TestCountdownTimeLeftNeverNegative(t *testing.T) {
	clock := newFakeClock(testEpoch)
	timer := NewCountdown(time.Minute, clock, nil)

	timer.Start()
	clock.Advance(time.Hour)
	assert.Zero(t, timer.TimeLeft())
}
