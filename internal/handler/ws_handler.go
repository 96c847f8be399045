package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/session"
	ws "github.com/prepexam/prepexam-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler drives a live session over one WebSocket connection: answers,
// submit triggers, and exit confirmations flow up; state changes and the
// countdown flow down as they happen.
type WSHandler struct {
	sessionService *service.SessionService
	guestService   *service.GuestService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, guestService *service.GuestService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		guestService:   guestService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/exams/:exam_id/session
// Requires an already-opened session. Browsers cannot set headers on
// WebSocket upgrades, so the token or guest key rides the query string.
func (h *WSHandler) SessionStream(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	identity := resolveIdentity(c, h.guestService)

	sess := h.sessionService.Get(examID, identity)
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int64("exam_id", examID).
		Str("identity", identity.Key()).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	// Push every engine event down the wire for the lifetime of the
	// connection. Writes are serialized through a channel because gorilla
	// connections allow one concurrent writer. The channel is never closed;
	// producers use non-blocking sends and streamDone tears everything down.
	outbound := make(chan ws.ServerMessage, 16)
	streamDone := make(chan struct{})
	defer close(streamDone)

	unsubscribe := sess.Subscribe(func(ev session.Event) {
		e := ev
		select {
		case outbound <- ws.ServerMessage{Event: ws.EventSession, Session: &e}:
		default:
			// Slow consumer: drop the event, the next state push resyncs.
		}
	})
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-streamDone:
				return
			case msg := <-outbound:
				if err := ws.WriteTyped(conn, msg); err != nil {
					return
				}
			}
		}
	}()

	// Per-second countdown tick. The authoritative deadline lives in the
	// engine; this just keeps the client's display honest.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-streamDone:
				return
			case <-ticker.C:
				remaining := int(sess.Remaining() / time.Second)
				select {
				case outbound <- ws.ServerMessage{Event: ws.EventTick, RemainingSeconds: remaining}:
				default:
				}
			}
		}
	}()

	snap := sess.Snapshot()
	outbound <- ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}

	for {
		var msg ws.ClientMessage
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Session stream closed")
			}
			return
		}

		reply, stop := h.handleMessage(c, sess, identity, &msg, wsLog)
		select {
		case outbound <- reply:
		case <-writerDone:
			return
		}
		if stop {
			return
		}
	}
}

// handleMessage executes one client action against the session. The second
// return value asks the loop to close the stream (terminal outcomes).
func (h *WSHandler) handleMessage(c *gin.Context, sess *session.Session, identity session.Identity, msg *ws.ClientMessage, wsLog zerolog.Logger) (ws.ServerMessage, bool) {
	ctx := c.Request.Context()

	switch msg.Action {
	case ws.ActionPing:
		return ws.ServerMessage{Event: ws.EventPong}, false

	case ws.ActionState:
		snap := sess.Snapshot()
		return ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}, false

	case ws.ActionSetAnswer:
		if msg.QuestionID < 1 {
			return ws.ServerMessage{Event: ws.EventError, Error: "question_id is required"}, false
		}
		answer := model.Answer{
			QuestionID:          msg.QuestionID,
			SelectedOption:      msg.SelectedOption,
			SubmittedAnswerText: msg.SubmittedAnswerText,
		}
		if err := sess.SetAnswer(answer); err != nil {
			return ws.ServerMessage{Event: ws.EventError, Error: "session is not accepting answers"}, false
		}
		snap := sess.Snapshot()
		return ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}, false

	case ws.ActionProvideIdentity:
		if msg.Profile == nil {
			return ws.ServerMessage{Event: ws.EventError, Error: "profile is required"}, false
		}
		if err := sess.ProvideIdentity(*msg.Profile); err != nil {
			return ws.ServerMessage{Event: ws.EventError, Error: err.Error()}, false
		}
		if anon, ok := identity.(session.AnonymousIdentity); ok {
			if err := h.guestService.SaveProfile(ctx, anon.GuestKey, *msg.Profile); err != nil {
				wsLog.Warn().Err(err).Msg("Failed to persist guest profile")
			}
		}
		snap := sess.Snapshot()
		return ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}, false

	case ws.ActionSubmit:
		return h.replySubmit(sess.Submit(ctx, msg.Confirmed))

	case ws.ActionDeclineSubmit:
		sess.DeclineSubmit()
		snap := sess.Snapshot()
		return ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}, false

	case ws.ActionRequestExit:
		intercepted := sess.RequestExit()
		snap := sess.Snapshot()
		if !intercepted {
			return ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}, false
		}
		return ws.ServerMessage{Event: ws.EventIntercepted, Snapshot: &snap}, false

	case ws.ActionConfirmExit:
		return h.replySubmit(sess.ConfirmExit(ctx))

	case ws.ActionCancelExit:
		sess.CancelExit()
		snap := sess.Snapshot()
		return ws.ServerMessage{Event: ws.EventState, Snapshot: &snap}, false

	default:
		return ws.ServerMessage{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}, false
	}
}

func (h *WSHandler) replySubmit(out *session.SubmitResult, err error) (ws.ServerMessage, bool) {
	if err != nil {
		return ws.ServerMessage{Event: ws.EventError, Error: err.Error()}, false
	}
	switch {
	case out.Prompt != nil:
		return ws.ServerMessage{Event: ws.EventPrompt, Prompt: out.Prompt}, false
	case out.LoginRedirect:
		return ws.ServerMessage{Event: ws.EventSubmitted, LoginRedirect: true}, true
	default:
		return ws.ServerMessage{Event: ws.EventSubmitted, Result: out.Result}, true
	}
}
