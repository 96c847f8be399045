package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttempts struct {
	attempted bool
	err       error
	calls     int
}

func (s *stubAttempts) HasAttempted(ctx context.Context, examID, userID int64) (bool, error) {
	s.calls++
	return s.attempted, s.err
}

func gateExam(mutate func(*model.Exam)) *model.Exam {
	exam := &model.Exam{
		ID:              42,
		Title:           "Mock Aptitude Test",
		StartTime:       testEpoch.Add(-time.Hour),
		EndTime:         testEpoch.Add(24 * time.Hour),
		DurationMinutes: 30,
		IsActive:        true,
		IsFree:          true,
	}
	if mutate != nil {
		mutate(exam)
	}
	return exam
}

func TestGatePassesFreeExamForAnonymous(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))

	failure, err := gate.Check(context.Background(), gateExam(nil), AnonymousIdentity{GuestKey: "g1"})
	require.NoError(t, err)
	assert.Nil(t, failure)
}

func TestGateBlocksAnonymousOnPaidExam(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) { e.IsFree = false })

	failure, err := gate.Check(context.Background(), exam, AnonymousIdentity{GuestKey: "g1"})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateLoginRequired, failure.Reason)
	assert.Equal(t, RedirectLogin, failure.Redirect)
}

func TestGateBlocksInactiveExam(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) { e.IsActive = false })

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateExamInactive, failure.Reason)
	assert.Equal(t, RedirectCatalog, failure.Redirect)
}

func TestGateBlocksExamNotStarted(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) { e.StartTime = testEpoch.Add(time.Hour) })

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateExamNotStarted, failure.Reason)
}

func TestGateBlocksExamEnded(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) {
		e.StartTime = testEpoch.Add(-48 * time.Hour)
		e.EndTime = testEpoch.Add(-time.Hour)
	})

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateExamEnded, failure.Reason)
}

func TestGateBlocksNonPremiumUserOnPaidExam(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) { e.IsFree = false })

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1, IsPremium: false})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GatePremiumRequired, failure.Reason)
	assert.Equal(t, RedirectUpgrade, failure.Redirect)
}

func TestGatePassesPremiumUserOnPaidExam(t *testing.T) {
	gate := NewGate(&stubAttempts{}, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) { e.IsFree = false })

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1, IsPremium: true})
	require.NoError(t, err)
	assert.Nil(t, failure)
}

func TestGateBlocksRepeatAttempt(t *testing.T) {
	attempts := &stubAttempts{attempted: true}
	gate := NewGate(attempts, newFakeClock(testEpoch))

	failure, err := gate.Check(context.Background(), gateExam(nil), AuthenticatedIdentity{UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateAlreadyAttempted, failure.Reason)
	assert.Equal(t, RedirectResult, failure.Redirect)
}

func TestGateSkipsAttemptCheckWhenRetakesAllowed(t *testing.T) {
	attempts := &stubAttempts{attempted: true}
	gate := NewGate(attempts, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) { e.AllowMultipleAttempts = true })

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1})
	require.NoError(t, err)
	assert.Nil(t, failure)
	assert.Zero(t, attempts.calls)
}

func TestGateChecksShortCircuitInOrder(t *testing.T) {
	// Inactive, not started, and paid all at once: the inactive check wins
	// because it runs first, and the attempt store is never consulted.
	attempts := &stubAttempts{attempted: true}
	gate := NewGate(attempts, newFakeClock(testEpoch))
	exam := gateExam(func(e *model.Exam) {
		e.IsActive = false
		e.IsFree = false
		e.StartTime = testEpoch.Add(time.Hour)
	})

	failure, err := gate.Check(context.Background(), exam, AuthenticatedIdentity{UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateExamInactive, failure.Reason)
	assert.Zero(t, attempts.calls)
}

func TestGatePropagatesAttemptStoreError(t *testing.T) {
	attempts := &stubAttempts{err: errors.New("store down")}
	gate := NewGate(attempts, newFakeClock(testEpoch))

	failure, err := gate.Check(context.Background(), gateExam(nil), AuthenticatedIdentity{UserID: 1})
	require.Error(t, err)
	assert.Nil(t, failure)
}
