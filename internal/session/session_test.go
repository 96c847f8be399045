package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	mu            sync.Mutex
	calls         int
	anonCalls     int
	lastAnswers   []model.Answer
	lastTimeSpent int
	lastUserID    int64
	lastProfile   model.AnonymousProfile
	result        *model.Result
	err           error
	entered       chan struct{} // signaled when a call reaches the submitter
	block         chan struct{} // when non-nil, calls wait here before returning
}

func (s *stubSubmitter) Submit(ctx context.Context, examID, userID int64, answers []model.Answer, timeSpent int) (*model.Result, error) {
	s.mu.Lock()
	s.calls++
	s.lastUserID = userID
	s.lastAnswers = answers
	s.lastTimeSpent = timeSpent
	entered, block := s.entered, s.block
	result, err := s.result, s.err
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return result, err
}

func (s *stubSubmitter) SubmitAnonymous(ctx context.Context, examID int64, profile model.AnonymousProfile, answers []model.Answer, timeSpent int) (*model.Result, error) {
	s.mu.Lock()
	s.anonCalls++
	s.lastProfile = profile
	s.lastAnswers = answers
	s.lastTimeSpent = timeSpent
	result, err := s.result, s.err
	s.mu.Unlock()
	return result, err
}

func (s *stubSubmitter) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls + s.anonCalls
}

func sessionExam(questionCount int, mutate func(*model.Exam)) *model.Exam {
	exam := gateExam(mutate)
	for i := 1; i <= questionCount; i++ {
		exam.Questions = append(exam.Questions, model.Question{
			ID:       int64(i),
			ExamID:   exam.ID,
			Type:     model.QuestionTypeMCQ,
			Content:  fmt.Sprintf("question %d", i),
			Marks:    1,
			OrderNum: i,
		})
	}
	return exam
}

func newTestSession(exam *model.Exam, id Identity, sub *stubSubmitter, attempts AttemptChecker) (*Session, *fakeClock) {
	if attempts == nil {
		attempts = &stubAttempts{}
	}
	clock := newFakeClock(testEpoch)
	sess := New(Config{
		Exam:      exam,
		Identity:  id,
		Clock:     clock,
		Submitter: sub,
		Attempts:  attempts,
		Logger:    zerolog.Nop(),
	})
	return sess, clock
}

func TestOpenStartsTimerAndArmsGuard(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 1}}
	sess, clock := newTestSession(sessionExam(5, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	failure, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.Nil(t, failure)

	snap := sess.Snapshot()
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, 1800, snap.RemainingSeconds)
	assert.Equal(t, 5, snap.TotalQuestions)
	assert.Equal(t, testEpoch, snap.StartedAt)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 20*time.Minute, sess.Remaining())
	assert.True(t, sess.RequestExit())
}

func TestOpenGateFailureNeverStartsTimer(t *testing.T) {
	sub := &stubSubmitter{}
	exam := sessionExam(5, func(e *model.Exam) { e.StartTime = testEpoch.Add(time.Hour) })
	sess, clock := newTestSession(exam, AuthenticatedIdentity{UserID: 9}, sub, nil)

	failure, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, GateExamNotStarted, failure.Reason)

	snap := sess.Snapshot()
	assert.Equal(t, PhaseGated, snap.Phase)
	assert.Zero(t, snap.RemainingSeconds)
	assert.False(t, sess.RequestExit())

	// No clock, no auto-submit: the gated session is inert.
	clock.Advance(48 * time.Hour)
	assert.Zero(t, sub.totalCalls())
}

func TestTimeUpAutoSubmitsWithEmptyLedger(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 7, Mark: 0}}
	sess, clock := newTestSession(sessionExam(5, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, sub.calls)
	assert.Empty(t, sub.lastAnswers)
	assert.Equal(t, 1800, sub.lastTimeSpent)
	assert.Equal(t, int64(9), sub.lastUserID)

	snap := sess.Snapshot()
	assert.Equal(t, PhaseTerminated, snap.Phase)
	require.NotNil(t, sess.Result())
	assert.Equal(t, int64(7), sess.Result().ID)
	assert.False(t, sess.RequestExit())
}

func TestManualSubmitPromptsOnUnansweredQuestions(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 3}}
	sess, clock := newTestSession(sessionExam(5, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)

	for q := int64(1); q <= 3; q++ {
		require.NoError(t, sess.SetAnswer(optionAnswer(q, 1)))
	}
	clock.Advance(10 * time.Minute)

	out, err := sess.Submit(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)
	assert.Equal(t, 2, out.Prompt.Unanswered)
	assert.Zero(t, sub.totalCalls())

	// The countdown keeps running while the confirmation is up, so the time
	// spent deliberating counts against the learner.
	clock.Advance(5 * time.Minute)
	assert.Equal(t, 15*time.Minute, sess.Remaining())
	assert.True(t, sess.Snapshot().ConfirmPending)

	sess.DeclineSubmit()
	assert.False(t, sess.Snapshot().ConfirmPending)
	clock.Advance(5 * time.Minute)
	assert.Equal(t, 10*time.Minute, sess.Remaining())

	out, err = sess.Submit(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, 1, sub.calls)
	assert.Len(t, sub.lastAnswers, 3)
	assert.Equal(t, 1200, sub.lastTimeSpent)
}

func TestExitCancelAfterSubmitPromptKeepsCountdownLive(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 9}}
	sess, clock := newTestSession(sessionExam(4, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 1)))

	// An unconfirmed submit leaves the confirmation up; the learner then
	// tries to navigate away and changes their mind.
	out, err := sess.Submit(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)

	require.True(t, sess.RequestExit())
	assert.False(t, sess.Snapshot().ConfirmPending)
	sess.CancelExit()
	assert.Equal(t, PhaseActive, sess.Snapshot().Phase)

	// The countdown never stopped through any of that.
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 20*time.Minute, sess.Remaining())

	// Expiry still auto-submits with the full duration on the clock.
	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, 1800, sub.lastTimeSpent)
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
}

func TestTimeUpDuringSubmitPromptAutoSubmits(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 10}}
	sess, clock := newTestSession(sessionExam(4, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 1)))

	out, err := sess.Submit(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, out.Prompt)

	// The learner stalls at the prompt until time runs out.
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, sub.calls)
	assert.Len(t, sub.lastAnswers, 1)
	assert.Equal(t, 1800, sub.lastTimeSpent)
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
	sess.DeclineSubmit() // no-op after termination
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
}

func TestManualSubmitSkipsPromptWhenAllAnswered(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 3}}
	sess, _ := newTestSession(sessionExam(2, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 0)))
	require.NoError(t, sess.SetAnswer(optionAnswer(2, 2)))

	out, err := sess.Submit(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, out.Prompt)
	require.NotNil(t, out.Result)
	assert.Equal(t, 1, sub.calls)
}

func TestAnonymousSubmitRequiresCapturedProfile(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 4}}
	sess, _ := newTestSession(sessionExam(2, nil), AnonymousIdentity{GuestKey: "g7"}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 1)))

	// No profile captured yet: nothing may reach the network.
	_, err = sess.Submit(context.Background(), true)
	require.ErrorIs(t, err, ErrIdentityRequired)
	assert.Zero(t, sub.totalCalls())
	assert.Equal(t, PhaseActive, sess.Snapshot().Phase)

	require.NoError(t, sess.ProvideIdentity(model.AnonymousProfile{
		Name:         "Asha Rahman",
		Email:        "asha@example.com",
		ActiveMobile: "01700000000",
	}))

	out, err := sess.Submit(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, 1, sub.anonCalls)
	assert.Equal(t, "asha@example.com", sub.lastProfile.Email)
}

func TestProvideIdentityRejectedForAuthenticatedSession(t *testing.T) {
	sub := &stubSubmitter{}
	sess, _ := newTestSession(sessionExam(1, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)

	err = sess.ProvideIdentity(model.AnonymousProfile{Name: "x", Email: "x@y.z"})
	require.Error(t, err)
}

func TestFailedSubmitRestoresActiveSession(t *testing.T) {
	sub := &stubSubmitter{err: errors.New("gateway timeout")}
	sess, clock := newTestSession(sessionExam(5, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 1)))
	require.NoError(t, sess.SetAnswer(optionAnswer(2, 3)))
	clock.Advance(10 * time.Minute)

	_, err = sess.Submit(context.Background(), true)
	require.Error(t, err)

	// Active again, ledger intact, countdown resumed from the frozen value.
	snap := sess.Snapshot()
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, 2, snap.Answered)
	assert.Equal(t, 20*time.Minute, sess.Remaining())
	assert.Equal(t, 1, sub.calls)

	// Retry succeeds and terminates the session.
	sub.mu.Lock()
	sub.err = nil
	sub.result = &model.Result{ID: 11}
	sub.mu.Unlock()

	out, err := sess.Submit(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
	assert.Equal(t, 2, sub.calls)
}

func TestUnauthorizedSubmitRedirectsToLogin(t *testing.T) {
	sub := &stubSubmitter{err: fmt.Errorf("submit: %w", ErrUnauthorized)}
	sess, _ := newTestSession(sessionExam(1, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 0)))

	out, err := sess.Submit(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, out.LoginRedirect)
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
	assert.False(t, sess.RequestExit())
}

func TestConcurrentTriggersSubmitExactlyOnce(t *testing.T) {
	sub := &stubSubmitter{
		result:  &model.Result{ID: 5},
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	sess, clock := newTestSession(sessionExam(1, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Submit(context.Background(), true)
		done <- err
	}()
	<-sub.entered

	// While the first submission is in flight, every other trigger bounces.
	_, err = sess.Submit(context.Background(), true)
	assert.ErrorIs(t, err, ErrAlreadySubmitting)
	_, err = sess.ConfirmExit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitting)
	clock.Advance(time.Hour) // countdown already stopped; must not fire

	close(sub.block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, sub.totalCalls())
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
}

func TestExitConfirmationFlow(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 6}}
	sess, clock := newTestSession(sessionExam(3, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 2)))
	clock.Advance(5 * time.Minute)

	require.True(t, sess.RequestExit())
	assert.Equal(t, PhaseExitConfirmPending, sess.Snapshot().Phase)

	// Answers are not accepted while the exit dialog is up.
	assert.ErrorIs(t, sess.SetAnswer(optionAnswer(2, 0)), ErrNotActive)

	sess.CancelExit()
	assert.Equal(t, PhaseActive, sess.Snapshot().Phase)
	require.NoError(t, sess.SetAnswer(optionAnswer(2, 0)))

	require.True(t, sess.RequestExit())
	out, err := sess.ConfirmExit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Result)

	// Forced exit submits whatever the ledger holds, no content confirmation.
	assert.Equal(t, 1, sub.calls)
	assert.Len(t, sub.lastAnswers, 2)
	assert.Equal(t, 300, sub.lastTimeSpent)
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
}

func TestConfirmExitOutsidePendingPhaseFails(t *testing.T) {
	sub := &stubSubmitter{}
	sess, _ := newTestSession(sessionExam(1, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)

	_, err = sess.ConfirmExit(context.Background())
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Zero(t, sub.totalCalls())
}

func TestCloseDiscardsInFlightResponse(t *testing.T) {
	sub := &stubSubmitter{
		result:  &model.Result{ID: 8},
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	sess, _ := newTestSession(sessionExam(1, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Submit(context.Background(), true)
		done <- err
	}()
	<-sub.entered

	sess.Close()
	close(sub.block)

	assert.ErrorIs(t, <-done, ErrTerminated)
	assert.Nil(t, sess.Result())
	assert.Equal(t, PhaseTerminated, sess.Snapshot().Phase)
}

func TestSetAnswerOutsideActivePhase(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 2}}
	sess, clock := newTestSession(sessionExam(2, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	// Before open.
	assert.ErrorIs(t, sess.SetAnswer(optionAnswer(1, 0)), ErrNotActive)

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)

	// After termination.
	assert.ErrorIs(t, sess.SetAnswer(optionAnswer(1, 0)), ErrNotActive)
}

func TestSubscribeDeliversEventsUntilUnsubscribed(t *testing.T) {
	sub := &stubSubmitter{result: &model.Result{ID: 1}}
	sess, _ := newTestSession(sessionExam(1, nil), AuthenticatedIdentity{UserID: 9}, sub, nil)

	var mu sync.Mutex
	var types []EventType
	unsubscribe := sess.Subscribe(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	})

	_, err := sess.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.SetAnswer(optionAnswer(1, 1)))
	_, err = sess.Submit(context.Background(), true)
	require.NoError(t, err)

	mu.Lock()
	got := append([]EventType(nil), types...)
	mu.Unlock()
	assert.Contains(t, got, EventPhaseChanged)
	assert.Contains(t, got, EventAnswerSaved)
	assert.Contains(t, got, EventSubmitted)

	before := len(got)
	unsubscribe()
	sess.Close()

	mu.Lock()
	assert.Len(t, types, before)
	mu.Unlock()
}
