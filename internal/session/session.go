package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/rs/zerolog"
)

// Phase is the tagged session state. Transitions are performed only by the
// Session itself, so combinations like "submitting before started" are
// unreachable by construction.
type Phase string

const (
	PhaseLoading            Phase = "LOADING"
	PhaseGated              Phase = "GATED"
	PhaseActive             Phase = "ACTIVE"
	PhaseExitConfirmPending Phase = "EXIT_CONFIRM_PENDING"
	PhaseSubmitting         Phase = "SUBMITTING"
	PhaseTerminated         Phase = "TERMINATED"
)

// Trigger identifies which path initiated a submission.
type Trigger string

const (
	TriggerManual     Trigger = "MANUAL"
	TriggerTimeUp     Trigger = "TIME_UP"
	TriggerForcedExit Trigger = "FORCED_EXIT"
)

// Sentinel errors surfaced by session operations.
var (
	ErrNotActive         = errors.New("session is not active")
	ErrAlreadySubmitting = errors.New("a submission is already in flight")
	ErrTerminated        = errors.New("session has terminated")
	ErrIdentityRequired  = errors.New("anonymous identity must be captured before submitting")
	ErrUnauthorized      = errors.New("credentials rejected")
)

// Submitter dispatches the one network submission of a session. Implementors
// grade and persist the attempt. A Submit that fails because the caller's
// credentials are no longer valid must return (or wrap) ErrUnauthorized.
type Submitter interface {
	Submit(ctx context.Context, examID, userID int64, answers []model.Answer, timeSpent int) (*model.Result, error)
	SubmitAnonymous(ctx context.Context, examID int64, profile model.AnonymousProfile, answers []model.Answer, timeSpent int) (*model.Result, error)
}

// EventType tags session events delivered to subscribers.
type EventType string

const (
	EventPhaseChanged     EventType = "phase_changed"
	EventAnswerSaved      EventType = "answer_saved"
	EventIdentityRequired EventType = "identity_required"
	EventSubmitted        EventType = "submitted"
	EventSubmitFailed     EventType = "submit_failed"
)

// Event is pushed to subscribers on every observable session change.
type Event struct {
	Type             EventType     `json:"type"`
	Phase            Phase         `json:"phase"`
	Trigger          Trigger       `json:"trigger,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Answered         int           `json:"answered"`
	Result           *model.Result `json:"result,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// UnansweredPrompt asks the learner to confirm a manual submission that
// would leave questions unanswered.
type UnansweredPrompt struct {
	Unanswered int `json:"unanswered"`
}

// SubmitResult describes how a submit call concluded. Exactly one field is
// populated: a pending confirmation prompt, a successful result, or a
// login-redirect instruction for rejected credentials.
type SubmitResult struct {
	Prompt        *UnansweredPrompt `json:"prompt,omitempty"`
	Result        *model.Result     `json:"result,omitempty"`
	LoginRedirect bool              `json:"login_redirect,omitempty"`
}

// Snapshot is a point-in-time view of a session for state endpoints and
// monitoring.
type Snapshot struct {
	ExamID           int64        `json:"exam_id"`
	IdentityKey      string       `json:"identity_key"`
	Phase            Phase        `json:"phase"`
	Gate             *GateFailure `json:"gate,omitempty"`
	DurationSeconds  int          `json:"duration_seconds"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Answered         int          `json:"answered"`
	TotalQuestions   int          `json:"total_questions"`
	ConfirmPending   bool         `json:"confirm_pending"`
	StartedAt        time.Time    `json:"started_at"`
}

// Config wires a Session's collaborators.
type Config struct {
	Exam      *model.Exam
	Identity  Identity
	Clock     Clock
	Submitter Submitter
	Attempts  AttemptChecker
	Logger    zerolog.Logger
}

// Session is the exam-taking orchestrator: the sole owner of the countdown
// timer, the answer ledger, and the exit guard for one opened exam. All
// lifecycle transitions go through it, and the submission pipeline runs at
// most once per session regardless of which trigger fires first.
type Session struct {
	mu sync.Mutex

	log       zerolog.Logger
	clock     Clock
	exam      *model.Exam
	identity  Identity
	submitter Submitter
	gate      *Gate

	phase          Phase
	gated          *GateFailure
	ledger         *Ledger
	timer          *Countdown
	guard          *ExitGuard
	guardRelease   func()
	confirmPending bool
	closed         bool
	startedAt      time.Time
	result         *model.Result

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a session in the Loading phase. Call Open to run the
// eligibility gate and start the clock.
func New(cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}
	return &Session{
		log:       cfg.Logger.With().Int64("exam_id", cfg.Exam.ID).Str("identity", cfg.Identity.Key()).Logger(),
		clock:     clock,
		exam:      cfg.Exam,
		identity:  cfg.Identity,
		submitter: cfg.Submitter,
		gate:      NewGate(cfg.Attempts, clock),
		phase:     PhaseLoading,
		ledger:    NewLedger(),
		guard:     NewExitGuard(),
		subs:      make(map[int]func(Event)),
	}
}

// Open runs the eligibility gate against the fetched exam. On a gate failure
// the session lands in Gated, the timer is never started, and the failure is
// returned; gate failures are terminal for this open. On success the session
// becomes Active: the countdown starts and the exit guard is armed.
func (s *Session) Open(ctx context.Context) (*GateFailure, error) {
	s.mu.Lock()
	if s.phase != PhaseLoading {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	s.mu.Unlock()

	// Gate checks may hit the attempt store; run them unlocked.
	failure, err := s.gate.Check(ctx, s.exam, s.identity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrTerminated
	}
	if failure != nil {
		s.phase = PhaseGated
		s.gated = failure
		s.mu.Unlock()
		s.emit(EventPhaseChanged, Trigger(""), nil, "")
		return failure, nil
	}

	s.phase = PhaseActive
	s.startedAt = s.clock.Now()
	s.timer = NewCountdown(s.exam.Duration(), s.clock, s.handleTimeUp)
	s.timer.Start()
	s.guardRelease = s.guard.Arm(s.handleExitIntent)
	s.mu.Unlock()

	s.log.Info().Int("duration_min", s.exam.DurationMinutes).Msg("Session opened")
	s.emit(EventPhaseChanged, Trigger(""), nil, "")
	return nil, nil
}

// SetAnswer upserts one answer in the ledger. Answers are only accepted
// while the session is Active (including a pending submit confirmation).
func (s *Session) SetAnswer(a model.Answer) error {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.ledger.Set(a)
	s.mu.Unlock()

	s.emit(EventAnswerSaved, Trigger(""), nil, "")
	return nil
}

// ProvideIdentity completes the anonymous capture step. The identity context
// is decided once: an authenticated session rejects it, and it is refused
// once a submission has been dispatched.
func (s *Session) ProvideIdentity(p model.AnonymousProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	anon, ok := s.identity.(AnonymousIdentity)
	if !ok {
		return errors.New("session already bound to an authenticated identity")
	}
	if s.phase == PhaseSubmitting || s.phase == PhaseTerminated {
		return ErrTerminated
	}
	anon.Profile = &p
	s.identity = anon
	return nil
}

// Submit is the manual trigger. When unanswered questions remain and the
// caller has not confirmed, a prompt is returned instead of dispatching; the
// countdown keeps running while the learner deliberates, so expiry during the
// prompt still auto-submits. DeclineSubmit dismisses the prompt, a confirmed
// Submit dispatches.
func (s *Session) Submit(ctx context.Context, confirmed bool) (*SubmitResult, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseSubmitting:
		s.mu.Unlock()
		return nil, ErrAlreadySubmitting
	case PhaseTerminated, PhaseGated, PhaseLoading:
		s.mu.Unlock()
		return nil, ErrTerminated
	case PhaseExitConfirmPending:
		s.mu.Unlock()
		return nil, ErrNotActive
	}

	if !confirmed {
		unanswered := len(s.exam.Questions) - s.ledger.Count()
		if unanswered > 0 {
			s.confirmPending = true
			s.mu.Unlock()
			s.emit(EventPhaseChanged, TriggerManual, nil, "")
			return &SubmitResult{Prompt: &UnansweredPrompt{Unanswered: unanswered}}, nil
		}
	}
	s.mu.Unlock()

	return s.dispatch(ctx, TriggerManual)
}

// DeclineSubmit dismisses a pending unanswered-questions confirmation and
// returns the learner to the exam. The countdown was never interrupted, so
// there is nothing to resume. It has no effect in any other state.
func (s *Session) DeclineSubmit() {
	s.mu.Lock()
	dismissed := false
	if s.phase == PhaseActive && s.confirmPending {
		s.confirmPending = false
		dismissed = true
	}
	s.mu.Unlock()

	if dismissed {
		s.emit(EventPhaseChanged, Trigger(""), nil, "")
	}
}

// RequestExit is the navigation interception point. While the guard is
// armed it moves an Active session to ExitConfirmPending and reports true;
// once the session has left Active the exit proceeds uneventfully.
func (s *Session) RequestExit() bool {
	return s.guard.RequestExit()
}

// ConfirmExit is the forced-exit trigger: the learner confirmed they want to
// leave, so the session submits immediately with whatever the ledger holds,
// skipping the content confirmation.
func (s *Session) ConfirmExit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	if s.phase != PhaseExitConfirmPending {
		phase := s.phase
		s.mu.Unlock()
		if phase == PhaseSubmitting {
			return nil, ErrAlreadySubmitting
		}
		return nil, ErrNotActive
	}
	s.mu.Unlock()

	return s.dispatch(ctx, TriggerForcedExit)
}

// CancelExit dismisses the exit confirmation and returns the session to
// Active with the guard still armed.
func (s *Session) CancelExit() {
	s.mu.Lock()
	restored := false
	if s.phase == PhaseExitConfirmPending {
		s.phase = PhaseActive
		restored = true
	}
	s.mu.Unlock()

	if restored {
		s.emit(EventPhaseChanged, Trigger(""), nil, "")
	}
}

// Close tears the session down from any state: the timer stops, the guard is
// released, and any in-flight submission response is discarded rather than
// applied to a dead session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.guardRelease != nil {
		s.guardRelease()
		s.guardRelease = nil
	}
	if s.phase != PhaseGated {
		s.phase = PhaseTerminated
	}
	s.mu.Unlock()

	s.log.Debug().Msg("Session closed")
}

// Remaining returns the countdown's current remaining time. Zero before the
// session opens.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	timer := s.timer
	s.mu.Unlock()
	if timer == nil {
		return 0
	}
	return timer.TimeLeft()
}

// Result returns the graded result once the session terminated successfully.
func (s *Session) Result() *model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Identity returns the identity context the session is bound to.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Snapshot returns a point-in-time view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := 0
	if s.timer != nil {
		remaining = int(s.timer.TimeLeft().Seconds())
	}
	return Snapshot{
		ExamID:           s.exam.ID,
		IdentityKey:      s.identity.Key(),
		Phase:            s.phase,
		Gate:             s.gated,
		DurationSeconds:  int(s.exam.Duration().Seconds()),
		RemainingSeconds: remaining,
		Answered:         s.ledger.Count(),
		TotalQuestions:   len(s.exam.Questions),
		ConfirmPending:   s.confirmPending,
		StartedAt:        s.startedAt,
	}
}

// Subscribe registers an event listener and returns its unsubscribe handle.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// handleTimeUp is the countdown's expiry callback: submit immediately with
// whatever the ledger holds, no confirmation. Fired at most once per session
// by the Countdown contract.
func (s *Session) handleTimeUp() {
	if _, err := s.dispatch(context.Background(), TriggerTimeUp); err != nil {
		if !errors.Is(err, ErrTerminated) && !errors.Is(err, ErrAlreadySubmitting) {
			s.log.Error().Err(err).Msg("Auto-submit on expiry failed")
		}
	}
}

// handleExitIntent runs when the armed guard intercepts an exit attempt.
func (s *Session) handleExitIntent() {
	s.mu.Lock()
	intercepted := false
	if s.phase == PhaseActive {
		s.phase = PhaseExitConfirmPending
		// The exit dialog supersedes any open submit confirmation.
		s.confirmPending = false
		intercepted = true
	}
	s.mu.Unlock()

	if intercepted {
		s.emit(EventPhaseChanged, Trigger(""), nil, "")
	}
}

// dispatch runs the submission pipeline exactly once. The timer is stopped
// before remaining time is read so the time-spent computation cannot race a
// tick; the phase CAS to Submitting makes repeat triggers no-ops. A failed
// dispatch restores Active with the ledger intact and the countdown resumed
// from the frozen remaining value.
func (s *Session) dispatch(ctx context.Context, trigger Trigger) (*SubmitResult, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseSubmitting:
		s.mu.Unlock()
		return nil, ErrAlreadySubmitting
	case PhaseActive, PhaseExitConfirmPending:
		// eligible
	default:
		s.mu.Unlock()
		return nil, ErrTerminated
	}

	s.timer.Stop()
	remaining := s.timer.TimeLeft()

	// The anonymous path must not reach the network without a captured
	// profile; restore Active so the capture form can be completed.
	if anon, ok := s.identity.(AnonymousIdentity); ok && !anon.Complete() {
		s.phase = PhaseActive
		s.confirmPending = false
		s.timer.Start()
		s.mu.Unlock()
		s.emit(EventIdentityRequired, trigger, nil, "")
		return nil, ErrIdentityRequired
	}

	s.phase = PhaseSubmitting
	s.confirmPending = false
	identity := s.identity
	answers := s.ledger.ToSlice()
	timeSpent := int(s.exam.Duration().Seconds()) - int(remaining.Seconds())
	if timeSpent < 0 {
		timeSpent = 0
	}
	s.mu.Unlock()
	s.emit(EventPhaseChanged, trigger, nil, "")

	var result *model.Result
	var err error
	switch id := identity.(type) {
	case AuthenticatedIdentity:
		result, err = s.submitter.Submit(ctx, s.exam.ID, id.UserID, answers, timeSpent)
	case AnonymousIdentity:
		result, err = s.submitter.SubmitAnonymous(ctx, s.exam.ID, *id.Profile, answers, timeSpent)
	default:
		err = errors.New("unknown identity context")
	}

	s.mu.Lock()
	if s.closed {
		// The session was torn down while the request was in flight; the
		// response must not be applied to a dead session.
		s.mu.Unlock()
		return nil, ErrTerminated
	}

	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.terminateLocked()
			s.mu.Unlock()
			s.log.Warn().Str("trigger", string(trigger)).Msg("Submission rejected: credentials invalid")
			s.emit(EventSubmitFailed, trigger, nil, err.Error())
			return &SubmitResult{LoginRedirect: true}, nil
		}

		s.phase = PhaseActive
		s.timer.Start()
		s.mu.Unlock()
		s.log.Error().Err(err).Str("trigger", string(trigger)).Msg("Submission failed, session restored")
		s.emit(EventSubmitFailed, trigger, nil, err.Error())
		return nil, err
	}

	s.result = result
	s.terminateLocked()
	s.mu.Unlock()

	s.log.Info().
		Str("trigger", string(trigger)).
		Int("answers", len(answers)).
		Int("time_spent", timeSpent).
		Msg("Session submitted")
	s.emit(EventSubmitted, trigger, result, "")
	return &SubmitResult{Result: result}, nil
}

// terminateLocked finalizes the session. Caller holds s.mu.
func (s *Session) terminateLocked() {
	s.phase = PhaseTerminated
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.guardRelease != nil {
		s.guardRelease()
		s.guardRelease = nil
	}
}

// emit delivers an event to all subscribers outside the session lock.
func (s *Session) emit(t EventType, trigger Trigger, result *model.Result, errMsg string) {
	snap := s.Snapshot()
	ev := Event{
		Type:             t,
		Phase:            snap.Phase,
		Trigger:          trigger,
		RemainingSeconds: snap.RemainingSeconds,
		Answered:         snap.Answered,
		Result:           result,
		Error:            errMsg,
	}

	s.subMu.Lock()
	listeners := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
