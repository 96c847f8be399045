package model

import "time"

// SessionStatus enumerates persisted exam session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusAbandoned SessionStatus = "ABANDONED"
	SessionStatusExpired   SessionStatus = "EXPIRED"
)

// ExamSession is the persisted record of one exam-taking session. The live
// state machine lives in the session engine; this row tracks when the
// session was opened and how it ended.
type ExamSession struct {
	ID          int64         `json:"id"`
	ExamID      int64         `json:"exam_id"`
	UserID      *int64        `json:"user_id,omitempty"`
	GuestKey    *string       `json:"guest_key,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	Status      SessionStatus `json:"status"`
	TimeSpent   *int          `json:"time_spent,omitempty"`
	SubmitCause *string       `json:"submit_cause,omitempty"`
}

// AnonymousProfile is the just-in-time identity captured before a guest's
// first submission, persisted for reuse on later attempts.
type AnonymousProfile struct {
	Name         string `json:"name" binding:"required,min=2,max=120"`
	Email        string `json:"email" binding:"required,email"`
	ActiveMobile string `json:"active_mobile" binding:"omitempty,max=20"`
}
