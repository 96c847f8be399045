package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/model"
)

// SessionRepository persists exam session records. The live state machine
// stays in memory; these rows are the durable audit of when sessions opened
// and how they ended.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session record in the ACTIVE state.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, user_id, guest_key, started_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.ExamID, s.UserID, s.GuestKey, s.StartedAt, model.SessionStatusActive,
	).Scan(&s.ID)
}

// GetActiveByUser retrieves a user's ACTIVE session for an exam, if any.
func (r *SessionRepository) GetActiveByUser(ctx context.Context, examID, userID int64) (*model.ExamSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, guest_key, started_at, finished_at, status, time_spent, submit_cause
		 FROM exam_sessions
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3
		 ORDER BY started_at DESC LIMIT 1`,
		examID, userID, model.SessionStatusActive))
}

// GetActiveByGuest retrieves a guest's ACTIVE session for an exam, if any.
func (r *SessionRepository) GetActiveByGuest(ctx context.Context, examID int64, guestKey string) (*model.ExamSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, guest_key, started_at, finished_at, status, time_spent, submit_cause
		 FROM exam_sessions
		 WHERE exam_id = $1 AND guest_key = $2 AND status = $3
		 ORDER BY started_at DESC LIMIT 1`,
		examID, guestKey, model.SessionStatusActive))
}

func (r *SessionRepository) scanOne(row interface{ Scan(...any) error }) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(&s.ID, &s.ExamID, &s.UserID, &s.GuestKey, &s.StartedAt,
		&s.FinishedAt, &s.Status, &s.TimeSpent, &s.SubmitCause)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Finish closes a session record with its outcome.
func (r *SessionRepository) Finish(ctx context.Context, id int64, status model.SessionStatus, timeSpent int, cause string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, time_spent = $2, submit_cause = $3, finished_at = $4
		 WHERE id = $5 AND status = $6`,
		status, timeSpent, cause, at, id, model.SessionStatusActive)
	return err
}

// CountActiveByExam reports how many sessions are currently open on an exam.
func (r *SessionRepository) CountActiveByExam(ctx context.Context, examID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE exam_id = $1 AND status = $2`,
		examID, model.SessionStatusActive).Scan(&n)
	return n, err
}

// InsertEvents appends audit events in one batch transaction. Used by the
// session event worker's drain loop.
func (r *SessionRepository) InsertEvents(ctx context.Context, events []model.SessionEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, ev := range events {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_events (exam_id, identity_key, event_type, phase, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			ev.ExamID, ev.IdentityKey, ev.EventType, ev.Phase, ev.Payload, ev.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
