package model

import (
	"encoding/json"
	"time"
)

// SessionEvent is one audit-trail entry for a live session, queued by the
// session engine and drained to PostgreSQL by the session event worker.
type SessionEvent struct {
	ID          int64           `json:"id"`
	ExamID      int64           `json:"exam_id"`
	IdentityKey string          `json:"identity_key"`
	EventType   string          `json:"event_type"`
	Phase       string          `json:"phase"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
