package websocket

import (
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSetAnswer       Action = "set_answer"
	ActionSubmit          Action = "submit"
	ActionDeclineSubmit   Action = "decline_submit"
	ActionRequestExit     Action = "request_exit"
	ActionConfirmExit     Action = "confirm_exit"
	ActionCancelExit      Action = "cancel_exit"
	ActionProvideIdentity Action = "provide_identity"
	ActionState           Action = "state"
	ActionPing            Action = "ping"
)

// ClientMessage is the single request shape of the session stream. Fields
// beyond Action are interpreted per action.
type ClientMessage struct {
	Action              Action                  `json:"action"`
	QuestionID          int64                   `json:"question_id,omitempty"`
	SelectedOption      *int                    `json:"selected_option,omitempty"`
	SubmittedAnswerText *string                 `json:"submitted_answer_text,omitempty"`
	Confirmed           bool                    `json:"confirmed,omitempty"`
	Profile             *model.AnonymousProfile `json:"profile,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState       Event = "state"
	EventTick        Event = "tick"
	EventPrompt      Event = "prompt"
	EventSubmitted   Event = "submitted"
	EventSession     Event = "session"
	EventIntercepted Event = "intercepted"
	EventError       Event = "error"
	EventPong        Event = "pong"
)

// ServerMessage is the single response shape of the session stream.
type ServerMessage struct {
	Event            Event                     `json:"event"`
	Snapshot         *session.Snapshot         `json:"snapshot,omitempty"`
	Prompt           *session.UnansweredPrompt `json:"prompt,omitempty"`
	Result           *model.Result             `json:"result,omitempty"`
	Session          *session.Event            `json:"session,omitempty"`
	RemainingSeconds int                       `json:"remaining_seconds,omitempty"`
	LoginRedirect    bool                      `json:"login_redirect,omitempty"`
	Error            string                    `json:"error,omitempty"`
}
