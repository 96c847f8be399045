package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
	"github.com/prepexam/prepexam-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionService fronts the in-memory session engine for the HTTP and
// WebSocket layers: it owns the registry, persists session records, caches
// deadlines in Redis, and fans engine events out to the audit queue.
type SessionService struct {
	cfg         *config.Config
	registry    *session.Registry
	examSvc     *ExamService
	submitSvc   *SubmitService
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	clock       session.Clock
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	examSvc *ExamService,
	submitSvc *SubmitService,
	sessionRepo *repository.SessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:         cfg,
		registry:    session.NewRegistry(),
		examSvc:     examSvc,
		submitSvc:   submitSvc,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		clock:       session.RealClock(),
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Open loads the exam, runs it through the engine's eligibility gate, and on
// success starts the countdown. Re-opening an exam with a live session is
// idempotent and returns the existing session. A gate failure is terminal:
// the session is discarded so the next open re-runs the full gate.
func (s *SessionService) Open(ctx context.Context, examID int64, id session.Identity) (*session.Session, *session.GateFailure, error) {
	exam, err := s.examSvc.GetExamWithQuestions(ctx, examID)
	if err != nil {
		return nil, nil, err
	}

	sess, created := s.registry.GetOrCreate(examID, id.Key(), func() *session.Session {
		return session.New(session.Config{
			Exam:      exam,
			Identity:  id,
			Clock:     s.clock,
			Submitter: s.submitSvc,
			Attempts:  s.submitSvc,
			Logger:    s.log,
		})
	})
	if !created {
		return sess, nil, nil
	}

	failure, err := sess.Open(ctx)
	if err != nil {
		s.registry.Remove(examID, id.Key())
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	if failure != nil {
		s.registry.Remove(examID, id.Key())
		return nil, failure, nil
	}

	s.attach(exam, sess, id)
	return sess, nil, nil
}

// attach wires a freshly opened session's durable side effects: the session
// record, the Redis deadline, and the audit event stream.
func (s *SessionService) attach(exam *model.Exam, sess *session.Session, id session.Identity) {
	snap := sess.Snapshot()
	record := &model.ExamSession{
		ExamID:    exam.ID,
		StartedAt: snap.StartedAt,
	}
	switch v := id.(type) {
	case session.AuthenticatedIdentity:
		record.UserID = &v.UserID
	case session.AnonymousIdentity:
		key := v.GuestKey
		record.GuestKey = &key
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.recoverStale(ctx, exam, id)

	if err := s.sessionRepo.Create(ctx, record); err != nil {
		s.log.Error().Err(err).Int64("exam_id", exam.ID).Msg("Failed to persist session record")
	}

	deadline := snap.StartedAt.Add(exam.Duration()).Add(s.cfg.SessionGrace)
	deadlineKey := config.CacheKey.SessionDeadlineKey(exam.ID, id.Key())
	ttl := time.Until(deadline) + time.Hour
	if err := s.rdb.Set(ctx, deadlineKey, deadline.Unix(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache session deadline")
	}

	sess.Subscribe(func(ev session.Event) {
		s.publishEvent(exam.ID, id.Key(), ev)
		if ev.Type != session.EventSubmitted {
			return
		}
		fctx, fcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer fcancel()
		timeSpent := int(exam.Duration().Seconds()) - ev.RemainingSeconds
		if err := s.sessionRepo.Finish(fctx, record.ID, model.SessionStatusSubmitted,
			timeSpent, string(ev.Trigger), time.Now()); err != nil {
			s.log.Error().Err(err).Int64("session_id", record.ID).Msg("Failed to close session record")
		}
		s.registry.Remove(exam.ID, id.Key())
		_ = s.rdb.Del(fctx, deadlineKey).Err()
	})
}

// recoverStale closes out a session record left ACTIVE by a previous
// process. The engine is in-memory, so a restart orphans its records; the
// deadline cached in Redis survives the restart and tells us whether the
// countdown ran out while no engine was watching.
func (s *SessionService) recoverStale(ctx context.Context, exam *model.Exam, id session.Identity) {
	rec, err := s.activeRecord(ctx, exam.ID, id)
	if err != nil || rec == nil {
		return
	}

	var cached time.Time
	key := config.CacheKey.SessionDeadlineKey(exam.ID, id.Key())
	if unix, err := s.rdb.Get(ctx, key).Int64(); err == nil {
		cached = time.Unix(unix, 0)
	}

	status, timeSpent := staleOutcome(rec, exam, cached, s.cfg.SessionGrace, s.clock.Now())
	if err := s.sessionRepo.Finish(ctx, rec.ID, status, timeSpent, "recovery", time.Now()); err != nil {
		s.log.Error().Err(err).Int64("session_id", rec.ID).Msg("Failed to close stale session record")
		return
	}
	_ = s.rdb.Del(ctx, key).Err()
	s.log.Info().
		Int64("session_id", rec.ID).
		Str("status", string(status)).
		Msg("Recovered stale session record")
}

// staleOutcome decides how an orphaned session record is closed. Past the
// deadline the learner ran the clock out, so the record expires with the
// full duration on it; before the deadline the engine state is simply gone,
// so the record is abandoned with the wall-clock elapsed time.
func staleOutcome(rec *model.ExamSession, exam *model.Exam, cachedDeadline time.Time,
	grace time.Duration, now time.Time) (model.SessionStatus, int) {
	deadline := cachedDeadline
	if deadline.IsZero() {
		deadline = rec.StartedAt.Add(exam.Duration()).Add(grace)
	}

	maxSpent := int(exam.Duration().Seconds())
	if !now.Before(deadline) {
		return model.SessionStatusExpired, maxSpent
	}

	elapsed := int(now.Sub(rec.StartedAt).Seconds())
	if elapsed > maxSpent {
		elapsed = maxSpent
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return model.SessionStatusAbandoned, elapsed
}

// publishEvent queues one audit event for the session event worker.
func (s *SessionService) publishEvent(examID int64, identityKey string, ev session.Event) {
	entry := model.SessionEvent{
		ExamID:      examID,
		IdentityKey: identityKey,
		EventType:   string(ev.Type),
		Phase:       string(ev.Phase),
		CreatedAt:   time.Now(),
	}
	if payload, err := json.Marshal(ev); err == nil {
		entry.Payload = payload
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rdb.RPush(ctx, config.WorkerKey.SessionEventsQueue, data).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to queue session event")
	}
}

// Get returns the live session for the pair, or nil when none is open.
func (s *SessionService) Get(examID int64, id session.Identity) *session.Session {
	return s.registry.Get(examID, id.Key())
}

// Teardown closes a live session without submitting. The persisted record is
// marked ABANDONED and the pair is freed for a fresh open.
func (s *SessionService) Teardown(ctx context.Context, examID int64, id session.Identity) {
	sess := s.registry.Get(examID, id.Key())
	if sess == nil {
		return
	}
	snap := sess.Snapshot()
	s.registry.Remove(examID, id.Key())

	if snap.Phase == session.PhaseTerminated {
		return // already closed by a submission
	}
	timeSpent := snap.DurationSeconds - snap.RemainingSeconds
	if rec, err := s.activeRecord(ctx, examID, id); err == nil && rec != nil {
		if err := s.sessionRepo.Finish(ctx, rec.ID, model.SessionStatusAbandoned,
			timeSpent, "teardown", time.Now()); err != nil {
			s.log.Error().Err(err).Int64("session_id", rec.ID).Msg("Failed to mark session abandoned")
		}
	}
	_ = s.rdb.Del(ctx, config.CacheKey.SessionDeadlineKey(examID, id.Key())).Err()
}

func (s *SessionService) activeRecord(ctx context.Context, examID int64, id session.Identity) (*model.ExamSession, error) {
	switch v := id.(type) {
	case session.AuthenticatedIdentity:
		return s.sessionRepo.GetActiveByUser(ctx, examID, v.UserID)
	case session.AnonymousIdentity:
		return s.sessionRepo.GetActiveByGuest(ctx, examID, v.GuestKey)
	}
	return nil, nil
}

// Snapshots returns the live session views for the proctoring monitor.
func (s *SessionService) Snapshots() []session.Snapshot {
	return s.registry.Snapshots()
}
